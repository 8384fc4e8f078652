package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, simplecms.ErrPostNotFound),
		errors.Is(err, simplecms.ErrTermNotFound),
		errors.Is(err, simplecms.ErrTypeNotRegistered),
		errors.Is(err, simplecms.ErrStorageBackendNotFound):
		return http.StatusNotFound
	case errors.Is(err, simplecms.ErrTitleRequired),
		errors.Is(err, simplecms.ErrInvalidPostStatus),
		errors.Is(err, simplecms.ErrNotAttachment):
		return http.StatusBadRequest
	case errors.Is(err, simplecms.ErrPostTrashed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a service error to the response. Store failures include
// the failed operation and its argument snapshot so callers can diagnose
// what was submitted.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)

	var storeErr *simplecms.StoreError
	if status == http.StatusInternalServerError && errors.As(err, &storeErr) {
		render.Status(r, status)
		render.JSON(w, r, map[string]interface{}{
			"error": map[string]interface{}{
				"message": storeErr.Error(),
				"op":      storeErr.Op,
				"args":    storeErr.Args,
			},
		})
		return
	}

	http.Error(w, err.Error(), status)
}
