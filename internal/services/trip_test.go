package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"my-trips/internal/models"
	"my-trips/internal/repository"
	"my-trips/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jpegData = append([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), bytes.Repeat([]byte{0x42}, 32)...)
	pngData  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) NotifyTripsChanged(username string, _ int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, username)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type tripFixture struct {
	svc      *TripService
	store    *repository.MemoryStore
	files    storage.FileStore
	notifier *recordingNotifier
}

func newTripFixture(t *testing.T) *tripFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	svc := NewTripService(store.Trips(), store.Users(), files, notifier, time.UTC, 1<<20)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	return &tripFixture{svc: svc, store: store, files: files, notifier: notifier}
}

func (f *tripFixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, PasswordHash: "x"}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *tripFixture) trip(t *testing.T, owner *models.User, name string) *models.Trip {
	t.Helper()
	trip := &models.Trip{UserID: owner.ID, Tripname: name}
	require.NoError(t, f.store.Trips().Create(context.Background(), trip))
	return trip
}

func parisForm() TripForm {
	return TripForm{
		Tripname:     "Paris",
		StartDate:    "2024-05-01",
		EndDate:      "2024-05-10",
		Location:     "France",
		Impressions:  "Lovely",
		Description1: "Tower at night",
		Title1:       "Eiffel",
		Title2:       "Seine",
	}
}

func readPhoto(t *testing.T, files storage.FileStore, id string) []byte {
	t.Helper()
	obj, err := files.Get(context.Background(), id)
	require.NoError(t, err)
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	return data
}

func TestSelectTripPlaceholder(t *testing.T) {
	f := newTripFixture(t)
	alice := f.user(t, "alice")

	page, err := f.svc.SelectTrip(context.Background(), "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Trip.ID)
	assert.Equal(t, models.PlaceholderTripName, page.Trip.Tripname)
	assert.Equal(t, alice.ID, page.Trip.UserID)
	assert.Empty(t, page.Trips)
	assert.Equal(t, "alice", page.User.Username)

	trips, err := f.store.Trips().ListByUserID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, trips)
}

func TestSelectTripPrecedence(t *testing.T) {
	f := newTripFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	first := f.trip(t, alice, "Rome")
	second := f.trip(t, alice, "Oslo")
	foreign := f.trip(t, bob, "Lima")

	ctx := context.Background()
	tests := []struct {
		name      string
		requested *int64
		want      int64
	}{
		{"no id falls back to lowest", nil, first.ID},
		{"owned id wins", &second.ID, second.ID},
		{"foreign id falls back", &foreign.ID, first.ID},
		{"unknown id falls back", func() *int64 { v := int64(999); return &v }(), first.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.SelectTrip(ctx, "alice", tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Trip.ID)
			assert.Equal(t, alice.ID, page.Trip.UserID)
			require.Len(t, page.Trips, 2)
			assert.Equal(t, first.ID, page.Trips[0].ID)
		})
	}
}

func TestSelectTripUnknownUser(t *testing.T) {
	f := newTripFixture(t)
	_, err := f.svc.SelectTrip(context.Background(), "ghost", nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateTripWithTwoPhotos(t *testing.T) {
	f := newTripFixture(t)
	alice := f.user(t, "alice")

	trip, err := f.svc.CreateTrip(context.Background(), "alice", parisForm(), [2]Upload{
		{Filename: "a.jpg", Data: jpegData},
		{Filename: "b.png", Data: pngData},
	})
	require.NoError(t, err)

	assert.NotZero(t, trip.ID)
	assert.Equal(t, alice.ID, trip.UserID)
	require.NotEmpty(t, trip.Photo1)
	require.NotEmpty(t, trip.Photo2)
	assert.NotEqual(t, trip.Photo1, trip.Photo2)
	assert.Equal(t, jpegData, readPhoto(t, f.files, trip.Photo1))
	assert.Equal(t, pngData, readPhoto(t, f.files, trip.Photo2))

	stored, err := f.store.Trips().GetByID(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris", stored.Tripname)
	assert.Equal(t, "2024-05-01", stored.StartDate.Format(DateLayout))
	assert.Equal(t, "2024-05-10", stored.EndDate.Format(DateLayout))
	assert.Equal(t, 1, f.notifier.count())

	page, err := f.svc.SelectTrip(context.Background(), "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, trip.ID, page.Trip.ID)
}

func TestCreateTripOnlyFirstPhoto(t *testing.T) {
	f := newTripFixture(t)
	f.user(t, "alice")

	trip, err := f.svc.CreateTrip(context.Background(), "alice", parisForm(), [2]Upload{{Data: jpegData}, {}})
	require.NoError(t, err)
	assert.NotEmpty(t, trip.Photo1)
	assert.Empty(t, trip.Photo2)
}

func TestCreateTripValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TripForm)
		uploads [2]Upload
		field   string
		msg     string
	}{
		{"start after end", func(f *TripForm) { f.StartDate, f.EndDate = "2024-05-10", "2024-05-01" }, [2]Upload{}, "endDate", msgDateOrder},
		{"future start", func(f *TripForm) { f.StartDate, f.EndDate = "2024-06-16", "" }, [2]Upload{}, "startDate", msgDateFuture},
		{"future end", func(f *TripForm) { f.EndDate = "2030-01-01" }, [2]Upload{}, "endDate", msgDateFuture},
		{"missing name", func(f *TripForm) { f.Tripname = "   " }, [2]Upload{}, "tripname", "This field is required"},
		{"long name", func(f *TripForm) { f.Tripname = strings.Repeat("x", 101) }, [2]Upload{}, "tripname", "Must be at most 100 characters"},
		{"bad date", func(f *TripForm) { f.StartDate = "01/05/2024" }, [2]Upload{}, "startDate", "Invalid date, expected YYYY-MM-DD"},
		{"not an image", func(*TripForm) {}, [2]Upload{{Data: []byte("plain text")}, {}}, "photo1", "Only JPEG, PNG and GIF photos are allowed"},
		{"too large", func(*TripForm) {}, [2]Upload{{}, {Data: append(jpegData, make([]byte, 1<<20)...)}}, "photo2", "Photo is too large (max 1 MB)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTripFixture(t)
			alice := f.user(t, "alice")

			form := parisForm()
			tt.mutate(&form)
			_, err := f.svc.CreateTrip(context.Background(), "alice", form, tt.uploads)

			verr, ok := AsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tt.msg, verr.Fields[tt.field])

			trips, err := f.store.Trips().ListByUserID(context.Background(), alice.ID)
			require.NoError(t, err)
			assert.Empty(t, trips)
			assert.Zero(t, f.notifier.count())
		})
	}
}

func TestCreateTripSameDayAllowed(t *testing.T) {
	f := newTripFixture(t)
	f.user(t, "alice")

	form := parisForm()
	form.StartDate, form.EndDate = "2024-06-15", "2024-06-15"
	_, err := f.svc.CreateTrip(context.Background(), "alice", form, [2]Upload{})
	assert.NoError(t, err)
}

func TestCreateTripDuplicateName(t *testing.T) {
	f := newTripFixture(t)
	f.user(t, "alice")
	bob := f.user(t, "bob")
	f.trip(t, bob, "Paris")

	_, err := f.svc.CreateTrip(context.Background(), "alice", parisForm(), [2]Upload{})
	verr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, msgDuplicateName, verr.Fields["tripname"])
}

func TestUpdateTripPhotoSlots(t *testing.T) {
	f := newTripFixture(t)
	f.user(t, "alice")
	ctx := context.Background()

	created, err := f.svc.CreateTrip(ctx, "alice", parisForm(), [2]Upload{{Data: jpegData}, {Data: pngData}})
	require.NoError(t, err)

	form := parisForm()
	form.Tripname = "Paris again"
	updated, err := f.svc.UpdateTrip(ctx, "alice", created.ID, form, [2]Upload{})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.Photo1, updated.Photo1)
	assert.Equal(t, created.Photo2, updated.Photo2)
	assert.Equal(t, "Paris again", updated.Tripname)

	replaced, err := f.svc.UpdateTrip(ctx, "alice", created.ID, form, [2]Upload{{}, {Data: jpegData}})
	require.NoError(t, err)
	assert.Equal(t, created.Photo1, replaced.Photo1)
	assert.NotEqual(t, created.Photo2, replaced.Photo2)
	assert.Equal(t, jpegData, readPhoto(t, f.files, replaced.Photo2))

	// the old payload stays in the file store
	assert.Equal(t, pngData, readPhoto(t, f.files, created.Photo2))

	stored, err := f.store.Trips().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, replaced.Photo2, stored.Photo2)
	assert.Equal(t, 3, f.notifier.count())
}

func TestUpdateTripErrors(t *testing.T) {
	f := newTripFixture(t)
	f.user(t, "alice")
	bob := f.user(t, "bob")
	foreign := f.trip(t, bob, "Lima")
	ctx := context.Background()

	_, err := f.svc.UpdateTrip(ctx, "alice", 999, parisForm(), [2]Upload{})
	assert.ErrorIs(t, err, ErrTripNotFound)

	_, err = f.svc.UpdateTrip(ctx, "alice", foreign.ID, parisForm(), [2]Upload{})
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := f.store.Trips().GetByID(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lima", stored.Tripname)
	assert.Equal(t, bob.ID, stored.UserID)

	_, err = f.svc.TripForEdit(ctx, "alice", foreign.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.TripForDelete(ctx, "alice", 999)
	assert.ErrorIs(t, err, ErrTripNotFound)
}

func TestUpdateTripValidationKeepsRecord(t *testing.T) {
	f := newTripFixture(t)
	alice := f.user(t, "alice")
	trip := f.trip(t, alice, "Rome")

	form := parisForm()
	form.StartDate, form.EndDate = "2024-05-10", "2024-05-01"
	_, err := f.svc.UpdateTrip(context.Background(), "alice", trip.ID, form, [2]Upload{})
	_, ok := AsValidationError(err)
	assert.True(t, ok)

	stored, err := f.store.Trips().GetByID(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rome", stored.Tripname)
}

func TestDeleteTrip(t *testing.T) {
	f := newTripFixture(t)
	f.user(t, "alice")
	bob := f.user(t, "bob")
	foreign := f.trip(t, bob, "Lima")
	ctx := context.Background()

	created, err := f.svc.CreateTrip(ctx, "alice", parisForm(), [2]Upload{{Data: jpegData}, {}})
	require.NoError(t, err)

	assert.NoError(t, f.svc.DeleteTrip(ctx, "alice", 999))
	assert.ErrorIs(t, f.svc.DeleteTrip(ctx, "alice", foreign.ID), ErrForbidden)

	require.NoError(t, f.svc.DeleteTrip(ctx, "alice", created.ID))
	_, err = f.store.Trips().GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// photo blob is orphaned, not removed
	assert.Equal(t, jpegData, readPhoto(t, f.files, created.Photo1))

	_, err = f.store.Trips().GetByID(ctx, foreign.ID)
	assert.NoError(t, err)
}

func TestOpenPhoto(t *testing.T) {
	f := newTripFixture(t)
	f.user(t, "alice")
	f.user(t, "bob")
	ctx := context.Background()

	trip, err := f.svc.CreateTrip(ctx, "alice", parisForm(), [2]Upload{{Data: jpegData}, {}})
	require.NoError(t, err)

	obj, err := f.svc.OpenPhoto(ctx, "alice", trip.Photo1)
	require.NoError(t, err)
	obj.Body.Close()
	assert.Equal(t, "image/jpeg", obj.ContentType)

	_, err = f.svc.OpenPhoto(ctx, "bob", trip.Photo1)
	assert.ErrorIs(t, err, ErrPhotoNotFound)

	_, err = f.svc.OpenPhoto(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrPhotoNotFound)

	// referenced but never stored
	bare := &models.Trip{ID: trip.ID, UserID: trip.UserID, Tripname: trip.Tripname, Photo1: trip.Photo1, Photo2: "missing-blob"}
	require.NoError(t, f.store.Trips().Update(ctx, bare))
	_, err = f.svc.OpenPhoto(ctx, "alice", "missing-blob")
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestPickTrip(t *testing.T) {
	trips := []*models.Trip{{ID: 3}, {ID: 7}}
	seven := int64(7)
	eight := int64(8)

	assert.Nil(t, pickTrip(nil, &seven))
	assert.Equal(t, int64(3), pickTrip(trips, nil).ID)
	assert.Equal(t, int64(7), pickTrip(trips, &seven).ID)
	assert.Equal(t, int64(3), pickTrip(trips, &eight).ID)
}
