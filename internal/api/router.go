package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/user/termbridge/internal/db"
	"github.com/user/termbridge/internal/profile"
	"github.com/user/termbridge/internal/ptyhost"
)

type runManager interface {
	Info() (ptyhost.RunInfo, error)
	Restart(ctx context.Context) error
}

type handler struct {
	mgr      runManager
	runs     *db.RunRepo
	profiles *profile.Registry
}

// NewRouter builds the REST surface of the server. An empty token disables
// authentication.
func NewRouter(mgr runManager, runs *db.RunRepo, profiles *profile.Registry, token string) http.Handler {
	handler := &handler{
		mgr:      mgr,
		runs:     runs,
		profiles: profiles,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/run", handler.getRun)
	mux.HandleFunc("POST /api/run/restart", handler.restartRun)

	mux.HandleFunc("GET /api/runs", handler.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", handler.getRunByID)

	mux.HandleFunc("GET /api/profiles", handler.listProfiles)
	mux.HandleFunc("GET /api/profiles/{name}", handler.getProfile)
	mux.HandleFunc("PUT /api/profiles/{name}", handler.saveProfile)
	mux.HandleFunc("DELETE /api/profiles/{name}", handler.deleteProfile)

	wrapped := authMiddleware(token)(jsonMiddleware(corsMiddleware(mux)))
	return wrapped
}

func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				if strings.TrimSpace(authHeader[7:]) == token {
					next.ServeHTTP(w, r)
					return
				}
			}

			if r.URL.Query().Get("token") == token {
				next.ServeHTTP(w, r)
				return
			}

			jsonError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return io.ErrUnexpectedEOF
	}
	return nil
}
