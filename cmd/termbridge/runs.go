package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/user/termbridge/internal/config"
	"github.com/user/termbridge/internal/db"
)

func runRuns(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	serverURL := fs.String("url", "", "websocket url of the server")
	token := fs.String("token", "", "auth token for the server")
	limit := fs.Int("limit", 20, "maximum runs to list")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.Client.URL = *serverURL
		case "token":
			cfg.Client.Token = *token
		}
	})

	base, err := apiBaseURL(cfg.Client.URL)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/runs?limit=%d", base, *limit), nil)
	if err != nil {
		return err
	}
	if cfg.Client.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Client.Token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s: %s", resp.Status, apiErrorBody(resp.Body))
	}

	var runs []db.Run
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROFILE\tCOMMAND\tSTATUS\tSTARTED")
	for _, run := range runs {
		status := fmt.Sprintf("exit %d", run.ExitCode)
		if run.Running {
			status = "running"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			shortID(run.ID), run.Profile, run.Command, status, humanize.Time(run.StartedAt))
	}
	return w.Flush()
}

// apiBaseURL derives the REST endpoint from the configured websocket URL.
func apiBaseURL(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("parse server url %q: %w", wsURL, err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path, u.RawQuery = "", ""
	return u.String(), nil
}

func apiErrorBody(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 1<<16)).Decode(&body); err == nil && body.Error != "" {
		return body.Error
	}
	return "unknown error"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
