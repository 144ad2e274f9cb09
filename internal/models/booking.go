package models

import (
	"errors"
	"time"
)

type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

// ErrAlreadyDecided is returned by Transition when the booking has left the
// WAITING state. WAITING is the only non-terminal status.
var ErrAlreadyDecided = errors.New("booking is already decided")

type Booking struct {
	ID        int64         `json:"id"`
	ItemID    int64         `json:"item_id"`
	BookerID  int64         `json:"booker_id"`
	Status    BookingStatus `json:"status"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Transition returns a copy of the booking moved to its terminal status.
// It never mutates the receiver; the single-transition rule is enforced here
// so every store applies the same state machine.
func (b Booking) Transition(approve bool) (Booking, error) {
	if b.Status != StatusWaiting {
		return Booking{}, ErrAlreadyDecided
	}
	if approve {
		b.Status = StatusApproved
	} else {
		b.Status = StatusRejected
	}
	return b, nil
}

// Overlaps reports whether the booking window intersects [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && start.Before(b.End)
}

// BookingBrief is the trimmed view of a booking attached to item details.
type BookingBrief struct {
	ID       int64     `json:"id"`
	BookerID int64     `json:"booker_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Brief converts a booking to its item-annotation view.
func (b Booking) Brief() BookingBrief {
	return BookingBrief{ID: b.ID, BookerID: b.BookerID, Start: b.Start, End: b.End}
}
