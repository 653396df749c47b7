package handlers

import (
	"io"
	"net/http"
	"strconv"

	"my-trips/internal/middleware"
	"my-trips/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PhotoHandler serves stored trip photos
type PhotoHandler struct {
	tripService *services.TripService
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(tripService *services.TripService) *PhotoHandler {
	return &PhotoHandler{
		tripService: tripService,
	}
}

// GetPhoto handles GET /photos/{photoId}
func (h *PhotoHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := middleware.GetUsername(ctx)
	photoID := chi.URLParam(r, "photoId")

	obj, err := h.tripService.OpenPhoto(ctx, username, photoID)
	if err != nil {
		status := statusOf(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Str("username", username).Str("photo_id", photoID).Msg("Failed to open photo")
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, obj.Body); err != nil {
		log.Error().Err(err).Str("photo_id", photoID).Msg("Failed to stream photo")
	}
}
