package service

import (
	"fmt"
	"time"

	"shareit/internal/models"
)

// State is the classification filter applied to a booking listing.
// CURRENT/PAST/FUTURE are evaluated purely on time bounds, independent of
// booking status; WAITING/REJECTED are status filters.
type State string

const (
	StateAll      State = "ALL"
	StateCurrent  State = "CURRENT"
	StatePast     State = "PAST"
	StateFuture   State = "FUTURE"
	StateWaiting  State = "WAITING"
	StateRejected State = "REJECTED"
)

// ParseState validates a state token. Matching is exact and case-sensitive;
// anything else fails instead of silently falling back to ALL.
func ParseState(raw string) (State, error) {
	switch State(raw) {
	case StateAll, StateCurrent, StatePast, StateFuture, StateWaiting, StateRejected:
		return State(raw), nil
	}
	return "", fmt.Errorf("%w: Unknown state: %s", ErrUnsupportedState, raw)
}

// Matches reports whether a booking falls under the state at the given "now".
// Shared by the in-memory store; the SQL store encodes the same predicates.
func (s State) Matches(b models.Booking, now time.Time) bool {
	switch s {
	case StateCurrent:
		return !b.Start.After(now) && !b.End.Before(now)
	case StatePast:
		return !b.End.After(now)
	case StateFuture:
		return !b.Start.Before(now)
	case StateWaiting:
		return b.Status == models.StatusWaiting
	case StateRejected:
		return b.Status == models.StatusRejected
	default:
		return true
	}
}

// Perspective scopes a booking listing to the acting user's role.
type Perspective int

const (
	PerspectiveBooker Perspective = iota
	PerspectiveOwner
)

func (p Perspective) String() string {
	if p == PerspectiveOwner {
		return "owner"
	}
	return "booker"
}
