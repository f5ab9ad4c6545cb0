package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

var errInvalidNow = errors.New(ErrInvalidNow)

// readRequest returns the family ID from the path and the optional ?now=
// reference instant. A zero time means the current one.
func readRequest(r *http.Request) (int64, time.Time, error) {
	familyID, err := strconv.ParseInt(chi.URLParam(r, "familyID"), 10, 64)
	if err != nil || familyID <= 0 {
		return 0, time.Time{}, errors.New(ErrInvalidFamilyID)
	}

	raw := r.URL.Query().Get("now")
	if raw == "" {
		return familyID, time.Time{}, nil
	}
	now, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, time.Time{}, errInvalidNow
	}
	return familyID, now, nil
}

func (a *API) handleInsights(w http.ResponseWriter, r *http.Request) {
	familyID, now, err := readRequest(r)
	if err != nil {
		respondWithError(w, a.logger, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	insights, err := a.insights.ForFamily(r.Context(), familyID, now)
	if err != nil {
		respondWithServiceError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

func (a *API) handleWeeklyGrid(w http.ResponseWriter, r *http.Request) {
	familyID, now, err := readRequest(r)
	if err != nil {
		respondWithError(w, a.logger, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	grid, err := a.grid.ForFamily(r.Context(), familyID, now)
	if err != nil {
		respondWithServiceError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

// handleDigestPreview returns the digest as JSON, or one rendered body with
// ?format=html or ?format=text.
func (a *API) handleDigestPreview(w http.ResponseWriter, r *http.Request) {
	familyID, now, err := readRequest(r)
	if err != nil {
		respondWithError(w, a.logger, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	digest, err := a.digest.Preview(r.Context(), familyID, now)
	if err != nil {
		respondWithServiceError(w, a.logger, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(digest.HTML))
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(digest.Text))
	default:
		writeJSON(w, http.StatusOK, digest)
	}
}
