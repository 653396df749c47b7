package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"my-trips/internal/models"
)

// MemoryStore keeps users and trips in process memory.
// It backs database.driver=memory and the package tests of the upper layers.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[int64]*models.User
	trips      map[int64]*models.Trip
	nextUserID int64
	nextTripID int64
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[int64]*models.User),
		trips: make(map[int64]*models.Trip),
		now:   time.Now,
	}
}

// Users returns the user repository view of the store
func (s *MemoryStore) Users() *MemoryUserRepository {
	return &MemoryUserRepository{s: s}
}

// Trips returns the trip repository view of the store
func (s *MemoryStore) Trips() *MemoryTripRepository {
	return &MemoryTripRepository{s: s}
}

// MemoryUserRepository is the user half of MemoryStore
type MemoryUserRepository struct {
	s *MemoryStore
}

// Create stores a new user
func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username {
			return ErrDuplicateUsername
		}
	}

	r.s.nextUserID++
	user.ID = r.s.nextUserID
	user.CreatedAt = r.s.now()
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

// GetByUsername retrieves a user by username
func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.userByName(username)
}

// MemoryTripRepository is the trip half of MemoryStore
type MemoryTripRepository struct {
	s *MemoryStore
}

// Create stores a new trip and assigns its ID
func (r *MemoryTripRepository) Create(_ context.Context, trip *models.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.nameTaken(trip.Tripname, 0) {
		return ErrDuplicateTripname
	}

	r.s.nextTripID++
	trip.ID = r.s.nextTripID
	trip.CreatedAt = r.s.now()
	trip.UpdatedAt = trip.CreatedAt
	stored := *trip
	r.s.trips[trip.ID] = &stored
	return nil
}

// Update overwrites an existing trip
func (r *MemoryTripRepository) Update(_ context.Context, trip *models.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.trips[trip.ID]
	if !ok {
		return fmt.Errorf("trip %d: %w", trip.ID, ErrNotFound)
	}
	if r.s.nameTaken(trip.Tripname, trip.ID) {
		return ErrDuplicateTripname
	}

	trip.CreatedAt = existing.CreatedAt
	trip.UpdatedAt = r.s.now()
	stored := *trip
	r.s.trips[trip.ID] = &stored
	return nil
}

// GetByID retrieves a trip by ID
func (r *MemoryTripRepository) GetByID(_ context.Context, id int64) (*models.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	trip, ok := r.s.trips[id]
	if !ok {
		return nil, fmt.Errorf("trip %d: %w", id, ErrNotFound)
	}
	cp := *trip
	return &cp, nil
}

// ListByUserID retrieves all trips of a user ordered by ID
func (r *MemoryTripRepository) ListByUserID(_ context.Context, userID int64) ([]*models.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.tripsOf(userID), nil
}

// Delete deletes a trip by ID
func (r *MemoryTripRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.trips[id]; !ok {
		return fmt.Errorf("trip %d: %w", id, ErrNotFound)
	}
	delete(r.s.trips, id)
	return nil
}

// LoadTripSet loads a user and their trips under one read lock
func (r *MemoryTripRepository) LoadTripSet(_ context.Context, username string) (*models.User, []*models.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, err := r.s.userByName(username)
	if err != nil {
		return nil, nil, err
	}
	return user, r.s.tripsOf(user.ID), nil
}

// Ping always succeeds
func (r *MemoryTripRepository) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) userByName(username string) (*models.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

func (s *MemoryStore) nameTaken(name string, exceptID int64) bool {
	for id, t := range s.trips {
		if id != exceptID && t.Tripname == name {
			return true
		}
	}
	return false
}

func (s *MemoryStore) tripsOf(userID int64) []*models.Trip {
	var trips []*models.Trip
	for _, t := range s.trips {
		if t.UserID == userID {
			cp := *t
			trips = append(trips, &cp)
		}
	}
	sort.Slice(trips, func(i, j int) bool { return trips[i].ID < trips[j].ID })
	return trips
}
