package service

import (
	"context"
	"errors"
	"time"

	"shareit/internal/clock"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// Bookings implements the booking lifecycle and the listing/classification
// engine.
type Bookings struct {
	users    UserRepository
	items    ItemRepository
	bookings BookingRepository
	bus      *events.EventBus
	clk      clock.Clock
	logger   zerolog.Logger

	// overlapCheck rejects intervals intersecting an APPROVED booking on
	// the same item. Off restores the historical behavior where only the
	// item's availability flag is consulted.
	overlapCheck bool
}

type BookingsOption func(*Bookings)

func WithOverlapCheck(enabled bool) BookingsOption {
	return func(s *Bookings) { s.overlapCheck = enabled }
}

func WithBookingsClock(clk clock.Clock) BookingsOption {
	return func(s *Bookings) { s.clk = clk }
}

func WithBookingsEvents(bus *events.EventBus) BookingsOption {
	return func(s *Bookings) { s.bus = bus }
}

func NewBookings(users UserRepository, items ItemRepository, bookings BookingRepository,
	logger *zerolog.Logger, opts ...BookingsOption) *Bookings {
	s := &Bookings{
		users:        users,
		items:        items,
		bookings:     bookings,
		clk:          clock.System{},
		logger:       logger.With().Str("component", "bookings").Logger(),
		overlapCheck: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists a new WAITING booking for the acting user.
func (s *Bookings) Create(ctx context.Context, userID, itemID int64, start, end time.Time) (*models.Booking, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	item, err := s.items.GetItem(ctx, itemID)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("Item is not found")
	}
	if err != nil {
		return nil, err
	}

	if !end.After(start) {
		return nil, validation("Booking is not valid")
	}
	if !item.Available {
		return nil, validation("Item is not available")
	}
	// Owners cannot book their own items. Reported as NotFound, not
	// Forbidden; clients rely on that mapping.
	if item.OwnerID == userID {
		return nil, notFound("Item is already reserved")
	}

	if s.overlapCheck {
		overlaps, err := s.bookings.HasApprovedOverlap(ctx, itemID, start, end)
		if err != nil {
			return nil, err
		}
		if overlaps {
			return nil, conflict("Item is already booked for this period")
		}
	}

	booking := &models.Booking{
		ItemID:   itemID,
		BookerID: userID,
		Status:   models.StatusWaiting,
		Start:    start,
		End:      end,
	}
	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated()
	s.publishBooking(events.EventBookingCreated, *booking, item.OwnerID)
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("item_id", itemID).
		Int64("booker_id", userID).
		Msg("booking created")

	return booking, nil
}

// Decide applies the owner's approve/reject decision. The WAITING check and
// the status write are a single compare-and-swap in the store, so two
// concurrent decisions on one booking cannot both win.
func (s *Bookings) Decide(ctx context.Context, userID, bookingID int64, approve bool) (*models.Booking, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("Booking is not found")
	}
	if err != nil {
		return nil, err
	}

	// Re-deciding is rejected, not idempotent: the second call fails even
	// when it repeats the same decision.
	if booking.Status != models.StatusWaiting {
		return nil, validation("Item is already reserved")
	}

	item, err := s.items.GetItem(ctx, booking.ItemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != userID {
		return nil, notFound("You can not edit this booking")
	}

	decided, err := booking.Transition(approve)
	if err != nil {
		return nil, validation("Item is already reserved")
	}

	swapped, err := s.bookings.DecideBooking(ctx, bookingID, decided.Status)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// Lost the race to a concurrent decision.
		return nil, validation("Item is already reserved")
	}

	updated, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	eventType := events.EventBookingRejected
	if approve {
		eventType = events.EventBookingApproved
	}
	metrics.IncBookingDecided(approve)
	s.publishBooking(eventType, *updated, item.OwnerID)
	s.logger.Info().
		Int64("booking_id", bookingID).
		Bool("approved", approve).
		Msg("booking decided")

	return updated, nil
}

// Get returns a booking visible to its booker or the item's owner. Anyone
// else gets NotFound so the booking's existence is not leaked.
func (s *Bookings) Get(ctx context.Context, userID, bookingID int64) (*models.Booking, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("Booking is not found")
	}
	if err != nil {
		return nil, err
	}

	if booking.BookerID == userID {
		return booking, nil
	}

	item, err := s.items.GetItem(ctx, booking.ItemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != userID {
		return nil, notFound("Booking is not found")
	}

	return booking, nil
}

// List returns the acting user's bookings for the given perspective and
// state token, sorted by start descending, paginated by offset/size. The
// token is matched exactly; unknown tokens fail with ErrUnsupportedState.
func (s *Bookings) List(ctx context.Context, userID int64, p Perspective, stateToken string, from, size int) ([]models.Booking, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	state, err := ParseState(stateToken)
	if err != nil {
		return nil, err
	}
	if from < 0 || size <= 0 {
		return nil, validation("Page parameters are not valid")
	}

	filter := BookingFilter{
		State:  state,
		Now:    s.clk.Now(),
		Offset: from,
		Limit:  size,
	}

	if p == PerspectiveOwner {
		return s.bookings.ListByOwner(ctx, userID, filter)
	}
	return s.bookings.ListByBooker(ctx, userID, filter)
}

func (s *Bookings) requireUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("User is not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Bookings) publishBooking(eventType string, b models.Booking, ownerID int64) {
	if err := s.bus.PublishJSON(eventType, events.BookingEventPayload{
		BookingID: b.ID,
		ItemID:    b.ItemID,
		OwnerID:   ownerID,
		BookerID:  b.BookerID,
		Status:    string(b.Status),
		Start:     b.Start,
		End:       b.End,
	}); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish booking event")
	}
}
