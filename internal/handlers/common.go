package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"my-trips/internal/services"
	"my-trips/internal/views"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// TripsPagePath is where successful mutations land
const TripsPagePath = "/trips-page"

// render writes a page and logs template failures
func render(v *views.Renderer, w http.ResponseWriter, status int, name string, data any) {
	if err := v.Render(w, status, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render page")
	}
}

// respondError renders the error page
func respondError(v *views.Renderer, w http.ResponseWriter, username string, statusCode int, message string) {
	render(v, w, statusCode, views.Error, views.ErrorView{
		Base:    views.Base{Username: username},
		Status:  statusCode,
		Title:   http.StatusText(statusCode),
		Message: message,
	})
}

// statusOf maps service errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrTripNotFound), errors.Is(err, services.ErrPhotoNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	}
	if _, ok := services.AsValidationError(err); ok {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// outcomeOf labels an operation result for metrics
func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	switch statusOf(err) {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusUnprocessableEntity:
		return "invalid"
	}
	return "error"
}

func messageOf(status int) string {
	switch status {
	case http.StatusNotFound:
		return "The trip you are looking for does not exist."
	case http.StatusForbidden:
		return "This trip belongs to another user."
	case http.StatusBadRequest:
		return "The submitted form could not be read."
	case http.StatusRequestEntityTooLarge:
		return "The uploaded files are too large."
	}
	return "Something went wrong. Please try again later."
}

// tripIDParam parses the {tripId} route parameter
func tripIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tripId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
