package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"my-trips/internal/models"
	"my-trips/internal/repository"
	"my-trips/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TripStore is the persistence surface TripService needs
type TripStore interface {
	Create(ctx context.Context, trip *models.Trip) error
	Update(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, id int64) (*models.Trip, error)
	Delete(ctx context.Context, id int64) error
	LoadTripSet(ctx context.Context, username string) (*models.User, []*models.Trip, error)
}

// UserStore is the user lookup surface
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Notifier receives trip change events
type Notifier interface {
	NotifyTripsChanged(username string, tripID int64)
}

// TripPage is everything the trips page shows
type TripPage struct {
	User  *models.User
	Trip  *models.Trip
	Trips []*models.Trip
}

// TripService handles trip-related business logic
type TripService struct {
	trips     TripStore
	users     UserStore
	files     storage.FileStore
	notifier  Notifier
	validate  *validator.Validate
	loc       *time.Location
	maxUpload int64
	now       func() time.Time
	newID     func() (uuid.UUID, error)
}

// NewTripService creates a new trip service
func NewTripService(trips TripStore, users UserStore, files storage.FileStore, notifier Notifier, loc *time.Location, maxUpload int64) *TripService {
	if loc == nil {
		loc = time.UTC
	}
	return &TripService{
		trips:     trips,
		users:     users,
		files:     files,
		notifier:  notifier,
		validate:  newValidator(),
		loc:       loc,
		maxUpload: maxUpload,
		now:       time.Now,
		newID:     uuid.NewRandom,
	}
}

// SelectTrip loads the user's trips and picks the one to display
func (s *TripService) SelectTrip(ctx context.Context, username string, requestedID *int64) (*TripPage, error) {
	user, trips, err := s.trips.LoadTripSet(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load trips: %w", err)
	}

	trip := pickTrip(trips, requestedID)
	if trip == nil {
		trip = models.NewPlaceholderTrip(user.ID)
	}
	trip.UserID = user.ID

	return &TripPage{User: user, Trip: trip, Trips: trips}, nil
}

// pickTrip returns the requested trip if owned, else the one with the lowest ID.
// trips must be ordered by ID.
func pickTrip(trips []*models.Trip, requestedID *int64) *models.Trip {
	if len(trips) == 0 {
		return nil
	}
	if requestedID != nil {
		for _, t := range trips {
			if t.ID == *requestedID {
				return t
			}
		}
	}
	return trips[0]
}

// CreateTrip validates the form, assigns photo IDs and persists a new trip
func (s *TripService) CreateTrip(ctx context.Context, username string, form TripForm, uploads [2]Upload) (*models.Trip, error) {
	user, err := s.currentUser(ctx, username)
	if err != nil {
		return nil, err
	}

	trip, err := s.buildTrip(form, uploads)
	if err != nil {
		return nil, err
	}
	trip.UserID = user.ID

	ids, err := s.assignPhotoIDs(trip, uploads)
	if err != nil {
		return nil, err
	}

	if err := s.trips.Create(ctx, trip); err != nil {
		if errors.Is(err, repository.ErrDuplicateTripname) {
			return nil, duplicateNameError()
		}
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	if err := s.storePhotos(ctx, ids, uploads); err != nil {
		return nil, err
	}

	log.Info().Str("username", username).Int64("trip_id", trip.ID).Msg("Trip created")
	s.notify(username, trip.ID)
	return trip, nil
}

// UpdateTrip overwrites an owned trip; empty upload slots keep their photo
func (s *TripService) UpdateTrip(ctx context.Context, username string, tripID int64, form TripForm, uploads [2]Upload) (*models.Trip, error) {
	user, existing, err := s.ownedTrip(ctx, username, tripID)
	if err != nil {
		return nil, err
	}

	trip, err := s.buildTrip(form, uploads)
	if err != nil {
		return nil, err
	}
	trip.ID = existing.ID
	trip.UserID = user.ID
	trip.Photo1 = existing.Photo1
	trip.Photo2 = existing.Photo2

	ids, err := s.assignPhotoIDs(trip, uploads)
	if err != nil {
		return nil, err
	}

	if err := s.trips.Update(ctx, trip); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateTripname):
			return nil, duplicateNameError()
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("failed to update trip: %w", err)
	}

	if err := s.storePhotos(ctx, ids, uploads); err != nil {
		return nil, err
	}

	log.Info().Str("username", username).Int64("trip_id", trip.ID).Msg("Trip updated")
	s.notify(username, trip.ID)
	return trip, nil
}

// TripForEdit returns an owned trip for the edit form
func (s *TripService) TripForEdit(ctx context.Context, username string, tripID int64) (*models.Trip, error) {
	_, trip, err := s.ownedTrip(ctx, username, tripID)
	return trip, err
}

// TripForDelete returns an owned trip for the delete confirmation
func (s *TripService) TripForDelete(ctx context.Context, username string, tripID int64) (*models.Trip, error) {
	_, trip, err := s.ownedTrip(ctx, username, tripID)
	return trip, err
}

// DeleteTrip removes an owned trip. Deleting an unknown ID is a no-op.
// Photo payloads are left in the file store.
func (s *TripService) DeleteTrip(ctx context.Context, username string, tripID int64) error {
	_, _, err := s.ownedTrip(ctx, username, tripID)
	if errors.Is(err, ErrTripNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.trips.Delete(ctx, tripID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete trip: %w", err)
	}

	log.Info().Str("username", username).Int64("trip_id", tripID).Msg("Trip deleted")
	s.notify(username, tripID)
	return nil
}

// OpenPhoto opens a photo referenced by one of the user's trips
func (s *TripService) OpenPhoto(ctx context.Context, username, photoID string) (*storage.Object, error) {
	_, trips, err := s.trips.LoadTripSet(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load trips: %w", err)
	}

	referenced := false
	for _, t := range trips {
		if t.ReferencesPhoto(photoID) {
			referenced = true
			break
		}
	}
	if !referenced {
		return nil, ErrPhotoNotFound
	}

	obj, err := s.files.Get(ctx, photoID)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("failed to open photo: %w", err)
	}
	return obj, nil
}

func (s *TripService) currentUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return user, nil
}

// ownedTrip loads a trip and checks that username owns it
func (s *TripService) ownedTrip(ctx context.Context, username string, tripID int64) (*models.User, *models.Trip, error) {
	user, err := s.currentUser(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrTripNotFound
		}
		return nil, nil, fmt.Errorf("failed to get trip: %w", err)
	}

	if trip.UserID != user.ID {
		return nil, nil, ErrForbidden
	}
	return user, trip, nil
}

// buildTrip validates the submission and maps it onto a new Trip value
func (s *TripService) buildTrip(form TripForm, uploads [2]Upload) (*models.Trip, error) {
	form.Normalize()
	verr := newValidationError()

	if err := s.validate.Struct(form); err != nil {
		if err := appendFieldErrors(verr, err); err != nil {
			return nil, fmt.Errorf("failed to validate trip: %w", err)
		}
	}

	var start, end *time.Time
	if _, bad := verr.Fields["startDate"]; !bad {
		start, _ = parseDate(form.StartDate, s.loc)
	}
	if _, bad := verr.Fields["endDate"]; !bad {
		end, _ = parseDate(form.EndDate, s.loc)
	}
	checkDates(verr, start, end, s.today())

	checkUpload(verr, "photo1", uploads[0], s.maxUpload)
	checkUpload(verr, "photo2", uploads[1], s.maxUpload)

	if verr.HasErrors() {
		return nil, verr
	}

	return &models.Trip{
		Tripname:     form.Tripname,
		StartDate:    start,
		EndDate:      end,
		Location:     form.Location,
		Impressions:  form.Impressions,
		Description1: form.Description1,
		Description2: form.Description2,
		Title1:       form.Title1,
		Title2:       form.Title2,
	}, nil
}

// assignPhotoIDs sets a fresh ID on every slot that has an upload and
// returns the IDs per slot ("" for untouched slots)
func (s *TripService) assignPhotoIDs(trip *models.Trip, uploads [2]Upload) ([2]string, error) {
	var ids [2]string
	for i, u := range uploads {
		if u.Empty() {
			continue
		}
		id, err := s.newID()
		if err != nil {
			return ids, fmt.Errorf("failed to generate photo id: %w", err)
		}
		ids[i] = id.String()
	}

	if ids[0] != "" {
		trip.Photo1 = ids[0]
	}
	if ids[1] != "" {
		trip.Photo2 = ids[1]
	}
	return ids, nil
}

func (s *TripService) storePhotos(ctx context.Context, ids [2]string, uploads [2]Upload) error {
	for i, id := range ids {
		if id == "" {
			continue
		}
		u := uploads[i]
		if err := s.files.Put(ctx, id, bytes.NewReader(u.Data), int64(len(u.Data)), u.ContentType()); err != nil {
			return fmt.Errorf("failed to store photo %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *TripService) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *TripService) notify(username string, tripID int64) {
	if s.notifier != nil {
		s.notifier.NotifyTripsChanged(username, tripID)
	}
}

func duplicateNameError() *ValidationError {
	verr := newValidationError()
	verr.Add("tripname", msgDuplicateName)
	return verr
}
