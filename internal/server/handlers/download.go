package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lorehall/lorehall/internal/ratelimit"
	"github.com/lorehall/lorehall/internal/store"
)

// Download mints a signed, expiring URL for a library item. The content id
// is the secondary identifier: one scraper hammering a single popular item
// from rotating IPs is throttled by the identity guard even when each IP
// stays under its own budget.
func (a *API) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > 128 {
		writeJSONError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if !a.Guardian.Admit(w, r, ratelimit.EndpointDownload, ratelimit.DimensionIdentity, id, ratelimit.ModeJSON, ratelimit.FailOpen) {
		return
	}

	item, err := a.Store.LibraryItemByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "item not found")
			return
		}
		a.logger().Error("library item lookup failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "download unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"title": item.Title,
		"url":   a.Signer.SignedURL(item.ObjectKey, time.Now().UTC()),
	})
}
