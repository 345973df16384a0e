package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/user/termbridge/internal/bridge"
	"github.com/user/termbridge/internal/channel"
	"github.com/user/termbridge/internal/config"
	"github.com/user/termbridge/internal/tui"
)

func runAttach(args []string) error {
	fs := flag.NewFlagSet("attach", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	url := fs.String("url", "", "websocket url of the server")
	token := fs.String("token", "", "auth token for the server")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.Client.URL = *url
		case "token":
			cfg.Client.Token = *token
		}
	})

	if !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("attach needs an interactive terminal")
	}

	// The UI owns the screen, so logs go to the status view buffer instead
	// of stdout.
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logbuf := tui.NewLogBuffer(512)
	logger := slog.New(slog.NewTextHandler(logbuf, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ch := channel.New(cfg.Client.URL, cfg.Client.Token, logger)
	ch.Start()
	defer ch.Close()

	store := bridge.NewStore()
	router := bridge.NewRouter(store, bridge.SystemClipboard(), logger)

	greeting := ""
	if cfg.Terminal.Greeting != "" {
		greeting = cfg.Terminal.Greeting + "\r\n"
	}
	app, err := tui.New(tui.Config{
		Channel:  ch,
		Store:    store,
		Router:   router,
		Log:      logbuf,
		Logger:   logger,
		Cols:     cfg.Terminal.Cols,
		Rows:     cfg.Terminal.Rows,
		Greeting: greeting,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx)
}
