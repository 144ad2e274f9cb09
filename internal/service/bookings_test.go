package service_test

import (
	"context"
	"testing"
	"time"

	"shareit/internal/clock"
	"shareit/internal/models"
	"shareit/internal/repository"
	"shareit/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *repository.MemoryStore
	bookings *service.Bookings

	owner  models.User
	booker models.User
	item   models.Item
}

func newFixture(t *testing.T, opts ...service.BookingsOption) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	logger := zerolog.Nop()

	f := &fixture{store: store}

	f.owner = models.User{Name: "owner", Email: "owner@example.com"}
	require.NoError(t, store.CreateUser(ctx, &f.owner))
	f.booker = models.User{Name: "booker", Email: "booker@example.com"}
	require.NoError(t, store.CreateUser(ctx, &f.booker))

	f.item = models.Item{Name: "drill", Description: "a drill", Available: true, OwnerID: f.owner.ID}
	require.NoError(t, store.CreateItem(ctx, &f.item))

	opts = append([]service.BookingsOption{service.WithBookingsClock(clock.Fixed{T: testNow})}, opts...)
	f.bookings = service.NewBookings(store, store, store, &logger, opts...)
	return f
}

func (f *fixture) book(t *testing.T, start, end time.Time) *models.Booking {
	t.Helper()
	b, err := f.bookings.Create(context.Background(), f.booker.ID, f.item.ID, start, end)
	require.NoError(t, err)
	return b
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()
	day := 24 * time.Hour

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, testNow.Add(day), testNow.Add(3*day))

		assert.NotZero(t, b.ID)
		assert.Equal(t, models.StatusWaiting, b.Status)
		assert.Equal(t, f.booker.ID, b.BookerID)
		assert.Equal(t, f.item.ID, b.ItemID)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.bookings.Create(ctx, 999, f.item.ID, testNow.Add(day), testNow.Add(2*day))
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("UnknownItem", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.bookings.Create(ctx, f.booker.ID, 999, testNow.Add(day), testNow.Add(2*day))
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("EqualDates", func(t *testing.T) {
		f := newFixture(t)
		start := testNow.Add(day)
		_, err := f.bookings.Create(ctx, f.booker.ID, f.item.ID, start, start)
		assert.ErrorIs(t, err, service.ErrValidation)
		assert.ErrorContains(t, err, "Booking is not valid")
	})

	t.Run("InvertedDates", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.bookings.Create(ctx, f.booker.ID, f.item.ID, testNow.Add(2*day), testNow.Add(day))
		assert.ErrorIs(t, err, service.ErrValidation)
		assert.ErrorContains(t, err, "Booking is not valid")
	})

	t.Run("UnavailableItem", func(t *testing.T) {
		f := newFixture(t)
		f.item.Available = false
		require.NoError(t, f.store.UpdateItem(ctx, &f.item))

		_, err := f.bookings.Create(ctx, f.booker.ID, f.item.ID, testNow.Add(day), testNow.Add(2*day))
		assert.ErrorIs(t, err, service.ErrValidation)
		assert.ErrorContains(t, err, "Item is not available")
	})

	t.Run("OwnItem", func(t *testing.T) {
		// Reported as NotFound, never Forbidden
		f := newFixture(t)
		_, err := f.bookings.Create(ctx, f.owner.ID, f.item.ID, testNow.Add(day), testNow.Add(2*day))
		assert.ErrorIs(t, err, service.ErrNotFound)
		assert.ErrorContains(t, err, "Item is already reserved")
	})

	t.Run("OverlapRejected", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, testNow.Add(day), testNow.Add(3*day))
		_, err := f.bookings.Decide(ctx, f.owner.ID, b.ID, true)
		require.NoError(t, err)

		_, err = f.bookings.Create(ctx, f.booker.ID, f.item.ID, testNow.Add(2*day), testNow.Add(4*day))
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("OverlapCheckDisabled", func(t *testing.T) {
		f := newFixture(t, service.WithOverlapCheck(false))
		b := f.book(t, testNow.Add(day), testNow.Add(3*day))
		_, err := f.bookings.Decide(ctx, f.owner.ID, b.ID, true)
		require.NoError(t, err)

		_, err = f.bookings.Create(ctx, f.booker.ID, f.item.ID, testNow.Add(2*day), testNow.Add(4*day))
		assert.NoError(t, err)
	})

	t.Run("WaitingBookingDoesNotBlock", func(t *testing.T) {
		// Only APPROVED bookings count for overlap
		f := newFixture(t)
		f.book(t, testNow.Add(day), testNow.Add(3*day))

		_, err := f.bookings.Create(ctx, f.booker.ID, f.item.ID, testNow.Add(2*day), testNow.Add(4*day))
		assert.NoError(t, err)
	})
}

func TestDecideBooking(t *testing.T) {
	ctx := context.Background()
	day := 24 * time.Hour

	t.Run("Approve", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, testNow.Add(day), testNow.Add(2*day))

		decided, err := f.bookings.Decide(ctx, f.owner.ID, b.ID, true)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, decided.Status)
	})

	t.Run("Reject", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, testNow.Add(day), testNow.Add(2*day))

		decided, err := f.bookings.Decide(ctx, f.owner.ID, b.ID, false)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, decided.Status)
	})

	t.Run("UnknownBooking", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.bookings.Decide(ctx, f.owner.ID, 999, true)
		assert.ErrorIs(t, err, service.ErrNotFound)
		assert.ErrorContains(t, err, "Booking is not found")
	})

	t.Run("NotOwner", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, testNow.Add(day), testNow.Add(2*day))

		_, err := f.bookings.Decide(ctx, f.booker.ID, b.ID, true)
		assert.ErrorIs(t, err, service.ErrNotFound)
		assert.ErrorContains(t, err, "You can not edit this booking")
	})

	t.Run("TransitionOnce", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, testNow.Add(day), testNow.Add(2*day))

		_, err := f.bookings.Decide(ctx, f.owner.ID, b.ID, true)
		require.NoError(t, err)

		// The second decision fails even with the opposite direction,
		// and the stored status is not overwritten.
		_, err = f.bookings.Decide(ctx, f.owner.ID, b.ID, false)
		assert.ErrorIs(t, err, service.ErrValidation)
		assert.ErrorContains(t, err, "Item is already reserved")

		stored, err := f.store.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, stored.Status)
	})
}

func TestGetBooking(t *testing.T) {
	ctx := context.Background()
	day := 24 * time.Hour

	f := newFixture(t)
	b := f.book(t, testNow.Add(day), testNow.Add(2*day))

	stranger := models.User{Name: "stranger", Email: "stranger@example.com"}
	require.NoError(t, f.store.CreateUser(ctx, &stranger))

	got, err := f.bookings.Get(ctx, f.booker.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	got, err = f.bookings.Get(ctx, f.owner.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	// Existence is not leaked to third parties
	_, err = f.bookings.Get(ctx, stranger.ID, b.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.ErrorContains(t, err, "Booking is not found")
}

func TestListBookings(t *testing.T) {
	ctx := context.Background()
	day := 24 * time.Hour

	setup := func(t *testing.T) (*fixture, map[string]*models.Booking) {
		f := newFixture(t, service.WithOverlapCheck(false))
		byName := map[string]*models.Booking{
			// Time-based states must ignore status: the current one
			// stays WAITING, the past one gets APPROVED.
			"past":    f.book(t, testNow.Add(-5*day), testNow.Add(-3*day)),
			"current": f.book(t, testNow.Add(-day), testNow.Add(day)),
			"future":  f.book(t, testNow.Add(2*day), testNow.Add(4*day)),
		}
		_, err := f.bookings.Decide(ctx, f.owner.ID, byName["past"].ID, true)
		require.NoError(t, err)
		_, err = f.bookings.Decide(ctx, f.owner.ID, byName["future"].ID, false)
		require.NoError(t, err)
		return f, byName
	}

	ids := func(bookings []models.Booking) []int64 {
		out := make([]int64, 0, len(bookings))
		for _, b := range bookings {
			out = append(out, b.ID)
		}
		return out
	}

	t.Run("All", func(t *testing.T) {
		f, byName := setup(t)
		got, err := f.bookings.List(ctx, f.booker.ID, service.PerspectiveBooker, "ALL", 0, 10)
		require.NoError(t, err)
		// Sorted by start descending
		assert.Equal(t, []int64{byName["future"].ID, byName["current"].ID, byName["past"].ID}, ids(got))
	})

	t.Run("Current", func(t *testing.T) {
		f, byName := setup(t)
		got, err := f.bookings.List(ctx, f.booker.ID, service.PerspectiveBooker, "CURRENT", 0, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, byName["current"].ID, got[0].ID)
		// Still WAITING: time classification ignores status
		assert.Equal(t, models.StatusWaiting, got[0].Status)
	})

	t.Run("Past", func(t *testing.T) {
		f, byName := setup(t)
		got, err := f.bookings.List(ctx, f.booker.ID, service.PerspectiveBooker, "PAST", 0, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, byName["past"].ID, got[0].ID)
	})

	t.Run("Future", func(t *testing.T) {
		f, byName := setup(t)
		got, err := f.bookings.List(ctx, f.booker.ID, service.PerspectiveBooker, "FUTURE", 0, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, byName["future"].ID, got[0].ID)
	})

	t.Run("Waiting", func(t *testing.T) {
		f, byName := setup(t)
		got, err := f.bookings.List(ctx, f.booker.ID, service.PerspectiveBooker, "WAITING", 0, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, byName["current"].ID, got[0].ID)
	})

	t.Run("Rejected", func(t *testing.T) {
		f, byName := setup(t)
		got, err := f.bookings.List(ctx, f.booker.ID, service.PerspectiveBooker, "REJECTED", 0, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, byName["future"].ID, got[0].ID)
	})

	t.Run("OwnerPerspective", func(t *testing.T) {
		f, _ := setup(t)
		got, err := f.bookings.List(ctx, f.owner.ID, service.PerspectiveOwner, "ALL", 0, 10)
		require.NoError(t, err)
		assert.Len(t, got, 3)

		// The owner has no bookings as booker
		got, err = f.bookings.List(ctx, f.owner.ID, service.PerspectiveBooker, "ALL", 0, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Pagination", func(t *testing.T) {
		f, byName := setup(t)
		got, err := f.bookings.List(ctx, f.booker.ID, service.PerspectiveBooker, "ALL", 1, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		// Offset is a zero-based index into the sorted sequence
		assert.Equal(t, byName["current"].ID, got[0].ID)
	})

	t.Run("UnsupportedState", func(t *testing.T) {
		f, _ := setup(t)
		_, err := f.bookings.List(ctx, f.booker.ID, service.PerspectiveBooker, "FINISHED", 0, 10)
		assert.ErrorIs(t, err, service.ErrUnsupportedState)
		assert.ErrorContains(t, err, "Unknown state: FINISHED")
	})

	t.Run("CaseSensitive", func(t *testing.T) {
		f, _ := setup(t)
		_, err := f.bookings.List(ctx, f.booker.ID, service.PerspectiveBooker, "all", 0, 10)
		assert.ErrorIs(t, err, service.ErrUnsupportedState)
	})

	t.Run("BadPageParams", func(t *testing.T) {
		f, _ := setup(t)
		_, err := f.bookings.List(ctx, f.booker.ID, service.PerspectiveBooker, "ALL", -1, 10)
		assert.ErrorIs(t, err, service.ErrValidation)
		_, err = f.bookings.List(ctx, f.booker.ID, service.PerspectiveBooker, "ALL", 0, 0)
		assert.ErrorIs(t, err, service.ErrValidation)
	})
}

// The end-to-end example from the contract: a booking approved for
// [t0+1d, t0+3d] is CURRENT and not PAST at t0+2d.
func TestBookingScenario(t *testing.T) {
	ctx := context.Background()
	day := 24 * time.Hour
	t0 := testNow.Add(-2 * day)

	f := newFixture(t)
	b := f.book(t, t0.Add(day), t0.Add(3*day))
	assert.Equal(t, models.StatusWaiting, b.Status)

	decided, err := f.bookings.Decide(ctx, f.owner.ID, b.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, decided.Status)

	// The fixture clock sits at t0+2d
	current, err := f.bookings.List(ctx, f.booker.ID, service.PerspectiveBooker, "CURRENT", 0, 10)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, b.ID, current[0].ID)

	past, err := f.bookings.List(ctx, f.booker.ID, service.PerspectiveBooker, "PAST", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestParseState(t *testing.T) {
	for _, token := range []string{"ALL", "CURRENT", "PAST", "FUTURE", "WAITING", "REJECTED"} {
		state, err := service.ParseState(token)
		require.NoError(t, err)
		assert.Equal(t, service.State(token), state)
	}

	_, err := service.ParseState("APPROVED")
	assert.ErrorIs(t, err, service.ErrUnsupportedState)
	_, err = service.ParseState("")
	assert.ErrorIs(t, err, service.ErrUnsupportedState)
}
