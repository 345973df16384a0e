package api

import (
	"net/http"

	"github.com/user/termbridge/internal/profile"
)

func (h *handler) listProfiles(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.profiles.List())
}

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	p := h.profiles.Get(r.PathValue("name"))
	if p == nil {
		jsonError(w, http.StatusNotFound, "profile not found")
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

func (h *handler) saveProfile(w http.ResponseWriter, r *http.Request) {
	var p profile.Profile
	if err := decodeJSON(r, &p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	// The path segment is authoritative for the profile name.
	p.Name = r.PathValue("name")

	if err := h.profiles.Save(&p); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, h.profiles.Get(p.Name))
}

func (h *handler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if h.profiles.Get(name) == nil {
		jsonError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err := h.profiles.Delete(name); err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}
