package repository

import (
	"context"
	"testing"

	"my-trips/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryStore().Users()

	alice := &models.User{Username: "alice", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, alice))
	assert.Equal(t, int64(1), alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())

	err := users.Create(ctx, &models.User{Username: "alice"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	got, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = users.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTripsLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	users, trips := store.Users(), store.Trips()

	alice := &models.User{Username: "alice"}
	require.NoError(t, users.Create(ctx, alice))

	paris := &models.Trip{UserID: alice.ID, Tripname: "Paris"}
	require.NoError(t, trips.Create(ctx, paris))
	assert.Equal(t, int64(1), paris.ID)

	rome := &models.Trip{UserID: alice.ID, Tripname: "Rome"}
	require.NoError(t, trips.Create(ctx, rome))

	assert.ErrorIs(t, trips.Create(ctx, &models.Trip{UserID: alice.ID, Tripname: "Paris"}), ErrDuplicateTripname)

	rome.Tripname = "Paris"
	assert.ErrorIs(t, trips.Update(ctx, rome), ErrDuplicateTripname)

	paris.Location = "France"
	require.NoError(t, trips.Update(ctx, paris))
	got, err := trips.GetByID(ctx, paris.ID)
	require.NoError(t, err)
	assert.Equal(t, "France", got.Location)

	// returned values are copies
	got.Location = "changed"
	again, err := trips.GetByID(ctx, paris.ID)
	require.NoError(t, err)
	assert.Equal(t, "France", again.Location)

	user, list, err := trips.LoadTripSet(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)
	require.Len(t, list, 2)
	assert.Equal(t, paris.ID, list[0].ID)
	assert.Equal(t, int64(2), list[1].ID)

	require.NoError(t, trips.Delete(ctx, paris.ID))
	_, err = trips.GetByID(ctx, paris.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, trips.Delete(ctx, paris.ID), ErrNotFound)
	assert.ErrorIs(t, trips.Update(ctx, paris), ErrNotFound)

	_, _, err = trips.LoadTripSet(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
