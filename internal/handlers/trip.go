package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"my-trips/internal/metrics"
	"my-trips/internal/middleware"
	"my-trips/internal/services"
	"my-trips/internal/views"

	"github.com/rs/zerolog/log"
)

const (
	filesField    = "files"
	maxFieldBytes = 64 << 10
	formOverhead  = 1 << 20
)

// TripHandler handles trip-related HTTP requests
type TripHandler struct {
	tripService *services.TripService
	views       *views.Renderer
	maxUpload   int64
}

// NewTripHandler creates a new trip handler
func NewTripHandler(tripService *services.TripService, renderer *views.Renderer, maxUpload int64) *TripHandler {
	return &TripHandler{
		tripService: tripService,
		views:       renderer,
		maxUpload:   maxUpload,
	}
}

// TripsPage handles GET /trips-page
func (h *TripHandler) TripsPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := middleware.GetUsername(ctx)

	var requested *int64
	if raw := r.URL.Query().Get("tripId"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			requested = &id
		}
	}

	page, err := h.tripService.SelectTrip(ctx, username, requested)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("Failed to load trips page")
		respondError(h.views, w, username, http.StatusInternalServerError, messageOf(http.StatusInternalServerError))
		return
	}

	render(h.views, w, http.StatusOK, views.TripsPage, views.TripsPageView{
		Base:  views.Base{Username: username},
		Trip:  page.Trip,
		Trips: page.Trips,
	})
}

// NewTripForm handles GET /addtrips
func (h *TripHandler) NewTripForm(w http.ResponseWriter, r *http.Request) {
	username := middleware.GetUsername(r.Context())
	render(h.views, w, http.StatusOK, views.AddTrip, views.FormView{Base: views.Base{Username: username}})
}

// CreateTrip handles POST /addtrips
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := middleware.GetUsername(ctx)

	form, uploads, status := h.parseTripForm(w, r)
	if status != 0 {
		respondError(h.views, w, username, status, messageOf(status))
		return
	}

	trip, err := h.tripService.CreateTrip(ctx, username, form, uploads)
	metrics.RecordTripOperation("create", outcomeOf(err))
	if err != nil {
		if verr, ok := services.AsValidationError(err); ok {
			render(h.views, w, http.StatusUnprocessableEntity, views.AddTrip, views.FormView{
				Base:   views.Base{Username: username},
				Trip:   form,
				Errors: verr.Fields,
			})
			return
		}
		log.Error().Err(err).Str("username", username).Msg("Failed to create trip")
		respondError(h.views, w, username, statusOf(err), messageOf(statusOf(err)))
		return
	}

	log.Info().Str("username", username).Int64("trip_id", trip.ID).Msg("Trip saved")
	http.Redirect(w, r, TripsPagePath, http.StatusSeeOther)
}

// EditTripForm handles GET /edit/{tripId}
func (h *TripHandler) EditTripForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := middleware.GetUsername(ctx)

	tripID, ok := tripIDParam(r)
	if !ok {
		respondError(h.views, w, username, http.StatusNotFound, messageOf(http.StatusNotFound))
		return
	}

	trip, err := h.tripService.TripForEdit(ctx, username, tripID)
	if err != nil {
		h.failTrip(w, username, tripID, err, "Failed to load trip for edit")
		return
	}

	render(h.views, w, http.StatusOK, views.EditTrip, views.FormView{
		Base:   views.Base{Username: username},
		Trip:   services.TripFormFromModel(trip),
		ID:     trip.ID,
		Photo1: trip.Photo1,
		Photo2: trip.Photo2,
	})
}

// UpdateTrip handles POST /edit/{tripId}
func (h *TripHandler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := middleware.GetUsername(ctx)

	tripID, ok := tripIDParam(r)
	if !ok {
		respondError(h.views, w, username, http.StatusNotFound, messageOf(http.StatusNotFound))
		return
	}

	form, uploads, status := h.parseTripForm(w, r)
	if status != 0 {
		respondError(h.views, w, username, status, messageOf(status))
		return
	}

	_, err := h.tripService.UpdateTrip(ctx, username, tripID, form, uploads)
	metrics.RecordTripOperation("update", outcomeOf(err))
	if err != nil {
		if verr, ok := services.AsValidationError(err); ok {
			view := views.FormView{
				Base:   views.Base{Username: username},
				Trip:   form,
				Errors: verr.Fields,
				ID:     tripID,
			}
			if current, err := h.tripService.TripForEdit(ctx, username, tripID); err == nil {
				view.Photo1, view.Photo2 = current.Photo1, current.Photo2
			}
			render(h.views, w, http.StatusUnprocessableEntity, views.EditTrip, view)
			return
		}
		h.failTrip(w, username, tripID, err, "Failed to update trip")
		return
	}

	http.Redirect(w, r, TripsPagePath, http.StatusSeeOther)
}

// DeleteTripForm handles GET /delete/{tripId}
func (h *TripHandler) DeleteTripForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := middleware.GetUsername(ctx)

	tripID, ok := tripIDParam(r)
	if !ok {
		respondError(h.views, w, username, http.StatusNotFound, messageOf(http.StatusNotFound))
		return
	}

	trip, err := h.tripService.TripForDelete(ctx, username, tripID)
	if err != nil {
		h.failTrip(w, username, tripID, err, "Failed to load trip for delete")
		return
	}

	render(h.views, w, http.StatusOK, views.DeleteTrip, views.DeleteView{
		Base: views.Base{Username: username},
		Trip: trip,
	})
}

// DeleteTrip handles POST /delete/{tripId}
func (h *TripHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := middleware.GetUsername(ctx)

	tripID, ok := tripIDParam(r)
	if !ok {
		// nothing to delete
		http.Redirect(w, r, TripsPagePath, http.StatusSeeOther)
		return
	}

	err := h.tripService.DeleteTrip(ctx, username, tripID)
	metrics.RecordTripOperation("delete", outcomeOf(err))
	if err != nil {
		h.failTrip(w, username, tripID, err, "Failed to delete trip")
		return
	}

	http.Redirect(w, r, TripsPagePath, http.StatusSeeOther)
}

// failTrip renders the error page for a trip-scoped failure
func (h *TripHandler) failTrip(w http.ResponseWriter, username string, tripID int64, err error, msg string) {
	status := statusOf(err)
	event := log.Warn()
	if status == http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("username", username).Int64("trip_id", tripID).Msg(msg)
	respondError(h.views, w, username, status, messageOf(status))
}

// parseTripForm reads the text fields and the two "files" parts. Parts are
// streamed in order so an empty first slot does not shift the second.
// A non-zero status means the request itself is unusable.
func (h *TripHandler) parseTripForm(w http.ResponseWriter, r *http.Request) (services.TripForm, [2]services.Upload, int) {
	var uploads [2]services.Upload

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxUpload+formOverhead)
	}

	values, err := h.readParts(r, &uploads)
	if err != nil {
		// the multipart reader may hide the limit error; the body keeps it
		if _, rerr := r.Body.Read(make([]byte, 1)); tooLarge(rerr) {
			return services.TripForm{}, uploads, http.StatusRequestEntityTooLarge
		}
		log.Warn().Err(err).Msg("Failed to parse trip form")
		return services.TripForm{}, uploads, http.StatusBadRequest
	}

	form := services.TripForm{
		Tripname:     values.Get("tripname"),
		StartDate:    values.Get("startDate"),
		EndDate:      values.Get("endDate"),
		Location:     values.Get("location"),
		Impressions:  values.Get("impressions"),
		Description1: values.Get("description1"),
		Description2: values.Get("description2"),
		Title1:       values.Get("title1"),
		Title2:       values.Get("title2"),
	}
	return form, uploads, 0
}

func (h *TripHandler) readParts(r *http.Request, uploads *[2]services.Upload) (url.Values, error) {
	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.PostForm, nil
	}
	if err != nil {
		return nil, err
	}

	values := url.Values{}
	slot := 0
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return values, nil
		}
		if err != nil {
			return nil, err
		}

		name := part.FormName()
		if name == filesField {
			if slot < len(uploads) {
				data, err := h.readUpload(part)
				if err != nil {
					part.Close()
					return nil, err
				}
				uploads[slot] = services.Upload{Filename: part.FileName(), Data: data}
			}
			slot++
			part.Close()
			continue
		}

		v, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
		part.Close()
		if err != nil {
			return nil, err
		}
		values.Add(name, string(v))
	}
}

// readUpload reads at most maxUpload+1 bytes so oversize files are still
// reported by validation
func (h *TripHandler) readUpload(part io.Reader) ([]byte, error) {
	src := part
	if h.maxUpload > 0 {
		src = io.LimitReader(part, h.maxUpload+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
