package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/user/termbridge/internal/ptyhost"
)

func (h *handler) getRun(w http.ResponseWriter, r *http.Request) {
	info, err := h.mgr.Info()
	if err != nil {
		if errors.Is(err, ptyhost.ErrNoRun) {
			jsonError(w, http.StatusNotFound, "no active run")
			return
		}
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, info)
}

func (h *handler) restartRun(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Restart(r.Context()); err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	info, err := h.mgr.Info()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, info)
}

func (h *handler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit query parameter")
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, runs)
}

func (h *handler) getRunByID(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		jsonError(w, http.StatusNotFound, "run not found")
		return
	}
	jsonResponse(w, http.StatusOK, run)
}
