package repository

import (
	"context"
	"fmt"

	"my-trips/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the subset of pgxpool.Pool and pgx.Tx used by the read helpers
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const tripColumns = `id, user_id, tripname, start_date, end_date, location, impressions,
	description1, description2, title1, title2, photo1, photo2, created_at, updated_at`

// TripRepository handles database operations for trips
type TripRepository struct {
	db *pgxpool.Pool
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *pgxpool.Pool) *TripRepository {
	return &TripRepository{db: db}
}

// Create inserts a trip and fills in the assigned ID and timestamps
func (r *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	query := `
		INSERT INTO trips (user_id, tripname, start_date, end_date, location, impressions,
			description1, description2, title1, title2, photo1, photo2)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		trip.UserID, trip.Tripname, trip.StartDate, trip.EndDate, trip.Location, trip.Impressions,
		trip.Description1, trip.Description2, trip.Title1, trip.Title2, trip.Photo1, trip.Photo2,
	).Scan(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTripname
		}
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// Update overwrites every column of an existing trip
func (r *TripRepository) Update(ctx context.Context, trip *models.Trip) error {
	query := `
		UPDATE trips
		SET user_id = $2, tripname = $3, start_date = $4, end_date = $5, location = $6,
			impressions = $7, description1 = $8, description2 = $9, title1 = $10, title2 = $11,
			photo1 = $12, photo2 = $13, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		trip.ID, trip.UserID, trip.Tripname, trip.StartDate, trip.EndDate, trip.Location,
		trip.Impressions, trip.Description1, trip.Description2, trip.Title1, trip.Title2,
		trip.Photo1, trip.Photo2,
	).Scan(&trip.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return fmt.Errorf("trip %d: %w", trip.ID, ErrNotFound)
		}
		if isUniqueViolation(err) {
			return ErrDuplicateTripname
		}
		return fmt.Errorf("failed to update trip: %w", err)
	}
	return nil
}

// GetByID retrieves a trip by ID
func (r *TripRepository) GetByID(ctx context.Context, id int64) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	trip, err := scanTrip(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("trip %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// ListByUserID retrieves all trips of a user ordered by ID
func (r *TripRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Trip, error) {
	return listTripsByUser(ctx, r.db, userID)
}

// Delete deletes a trip by ID
func (r *TripRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM trips WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("trip %d: %w", id, ErrNotFound)
	}
	return nil
}

// LoadTripSet loads a user and all of their trips inside one read-only transaction
func (r *TripRepository) LoadTripSet(ctx context.Context, username string) (*models.User, []*models.Trip, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	// Rollback after Commit is a no-op
	defer tx.Rollback(ctx)

	user, err := getUserByUsername(ctx, tx, username)
	if err != nil {
		return nil, nil, err
	}

	trips, err := listTripsByUser(ctx, tx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit read transaction: %w", err)
	}
	return user, trips, nil
}

// Ping checks the database connection
func (r *TripRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func listTripsByUser(ctx context.Context, q querier, userID int64) ([]*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE user_id = $1 ORDER BY id`
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trips: %w", err)
	}

	return trips, nil
}

func scanTrip(row pgx.Row) (*models.Trip, error) {
	var trip models.Trip
	err := row.Scan(
		&trip.ID, &trip.UserID, &trip.Tripname, &trip.StartDate, &trip.EndDate,
		&trip.Location, &trip.Impressions, &trip.Description1, &trip.Description2,
		&trip.Title1, &trip.Title2, &trip.Photo1, &trip.Photo2,
		&trip.CreatedAt, &trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &trip, nil
}
