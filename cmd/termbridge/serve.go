package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/termbridge/internal/api"
	"github.com/user/termbridge/internal/config"
	"github.com/user/termbridge/internal/db"
	"github.com/user/termbridge/internal/hub"
	"github.com/user/termbridge/internal/profile"
	"github.com/user/termbridge/internal/ptyhost"
	"github.com/user/termbridge/internal/server"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	addr := fs.String("addr", "", "listen address (host:port)")
	token := fs.String("token", "", "shared auth token; empty disables auth")
	profileName := fs.String("profile", "", "shell profile to spawn")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	// Only flags the user actually set override the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Server.Addr = *addr
		case "token":
			cfg.Server.Token = *token
		case "profile":
			cfg.Server.Profile = *profileName
		}
	})

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()
	runs := db.NewRunRepo(database.SQL())

	profiles, err := profile.NewRegistry(cfg.Server.ProfileDir)
	if err != nil {
		return err
	}
	p := profiles.Get(cfg.Server.Profile)
	if p == nil {
		return fmt.Errorf("profile %q not found in %s", cfg.Server.Profile, cfg.Server.ProfileDir)
	}
	argv, err := p.Argv()
	if err != nil {
		return err
	}
	cols, rows := cfg.Terminal.Cols, cfg.Terminal.Rows
	if p.Cols > 0 {
		cols = p.Cols
	}
	if p.Rows > 0 {
		rows = p.Rows
	}

	// The manager flushes into the hub and the hub drives the manager on
	// behalf of clients, so the flush sink is bound through a closure.
	var h *hub.Hub
	mgr := ptyhost.NewManager(slog.Default(), ptyhost.Config{
		Profile:  p.Name,
		Command:  argv,
		Env:      p.EnvSlice(),
		Cols:     cols,
		Rows:     rows,
		Interval: cfg.Server.SnapshotInterval(),
		Restart:  cfg.Server.Restart,
	}, runs, func(lines []string, x, y int) {
		h.BroadcastScreen(lines, x, y)
	})
	h = hub.New(cfg.Server.Token, mgr)
	h.SetOrigins(cfg.Server.AllowedOrigins)
	go h.Run(ctx)

	if err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Stop()

	banner := "http://" + cfg.Server.Addr
	if cfg.Server.Token != "" {
		banner += "/?token=" + cfg.Server.Token
	}
	fmt.Printf("\ntermbridge running at %s\n\n", banner)

	apiHandler := api.NewRouter(mgr, runs, profiles, cfg.Server.Token)
	return server.New(cfg, h, apiHandler).Start(ctx)
}
