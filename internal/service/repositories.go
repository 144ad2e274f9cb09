package service

import (
	"context"
	"time"

	"shareit/internal/models"
)

// Repository contracts consumed by the service layer. Implemented by the
// sqlite store (internal/database) and the in-memory store
// (internal/repository). Lookups report missing rows by wrapping
// ErrNotFound; user-facing messages are attached here, not in the stores.

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	ItemsByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]models.Item, error)
	// SearchItems matches available items by substring over name and
	// description, case-insensitive. No ranking.
	SearchItems(ctx context.Context, text string, offset, limit int) ([]models.Item, error)
}

// BookingFilter narrows a booking listing. Limit <= 0 means no limit.
type BookingFilter struct {
	State  State
	Now    time.Time
	Offset int
	Limit  int
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	// DecideBooking moves the booking to status only if it is still
	// WAITING, reporting whether the swap happened. The check and the
	// write must be atomic per booking id.
	DecideBooking(ctx context.Context, id int64, status models.BookingStatus) (bool, error)
	// ListByBooker / ListByOwner return bookings sorted by start
	// descending, filtered and paginated per the filter.
	ListByBooker(ctx context.Context, bookerID int64, f BookingFilter) ([]models.Booking, error)
	ListByOwner(ctx context.Context, ownerID int64, f BookingFilter) ([]models.Booking, error)
	// ApprovedByItemIDs bulk-fetches APPROVED bookings for the id set in
	// one call; the aggregator relies on this to avoid N+1 fetches.
	ApprovedByItemIDs(ctx context.Context, itemIDs []int64) ([]models.Booking, error)
	// HasFinishedBooking reports whether the user has an APPROVED booking
	// of the item that ended before now.
	HasFinishedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error)
	// HasApprovedOverlap reports whether an APPROVED booking on the item
	// intersects [start, end).
	HasApprovedOverlap(ctx context.Context, itemID int64, start, end time.Time) (bool, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	CommentsByItemIDs(ctx context.Context, itemIDs []int64) ([]models.Comment, error)
}

// ItemDetailsCache is an optional read-through cache for single-item
// detail lookups. Get returns (nil, nil) on miss.
type ItemDetailsCache interface {
	Get(ctx context.Context, itemID int64, ownerView bool) (*models.ItemDetails, error)
	Set(ctx context.Context, details models.ItemDetails, ownerView bool) error
	Invalidate(ctx context.Context, itemID int64) error
}
