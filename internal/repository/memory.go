// Package repository holds the in-memory implementations of the service
// repositories, used by tests and the demo mode.
package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"shareit/internal/models"
	"shareit/internal/service"
)

// MemoryStore implements every service repository in process. All methods
// are safe for concurrent use; DecideBooking holds the write lock across
// the check and the swap, matching the sqlite CAS.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[int64]models.User
	items    map[int64]models.Item
	bookings map[int64]models.Booking
	comments map[int64]models.Comment

	nextUserID    int64
	nextItemID    int64
	nextBookingID int64
	nextCommentID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]models.User),
		items:    make(map[int64]models.Item),
		bookings: make(map[int64]models.Booking),
		comments: make(map[int64]models.Comment),
	}
}

var (
	_ service.UserRepository    = (*MemoryStore)(nil)
	_ service.ItemRepository    = (*MemoryStore)(nil)
	_ service.BookingRepository = (*MemoryStore)(nil)
	_ service.CommentRepository = (*MemoryStore)(nil)
)

// Users

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == user.Email {
			return fmt.Errorf("%w: email %s", service.ErrConflict, user.Email)
		}
	}

	m.nextUserID++
	user.ID = m.nextUserID
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", service.ErrNotFound, id)
	}
	return &user, nil
}

func (m *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return fmt.Errorf("%w: user %d", service.ErrNotFound, user.ID)
	}
	for id, existing := range m.users {
		if id != user.ID && existing.Email == user.Email {
			return fmt.Errorf("%w: email %s", service.ErrConflict, user.Email)
		}
	}
	user.UpdatedAt = time.Now()
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("%w: user %d", service.ErrNotFound, id)
	}
	delete(m.users, id)
	return nil
}

// Items

func (m *MemoryStore) CreateItem(ctx context.Context, item *models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextItemID++
	item.ID = m.nextItemID
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	m.items[item.ID] = *item
	return nil
}

func (m *MemoryStore) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: item %d", service.ErrNotFound, id)
	}
	return &item, nil
}

func (m *MemoryStore) UpdateItem(ctx context.Context, item *models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[item.ID]; !ok {
		return fmt.Errorf("%w: item %d", service.ErrNotFound, item.ID)
	}
	item.UpdatedAt = time.Now()
	m.items[item.ID] = *item
	return nil
}

func (m *MemoryStore) ItemsByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []models.Item
	for _, item := range m.items {
		if item.OwnerID == ownerID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return paginate(items, offset, limit), nil
}

func (m *MemoryStore) SearchItems(ctx context.Context, text string, offset, limit int) ([]models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(text)
	var items []models.Item
	for _, item := range m.items {
		if !item.Available {
			continue
		}
		if strings.Contains(strings.ToLower(item.Name), needle) ||
			strings.Contains(strings.ToLower(item.Description), needle) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return paginate(items, offset, limit), nil
}

// Bookings

func (m *MemoryStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextBookingID++
	booking.ID = m.nextBookingID
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	m.bookings[booking.ID] = *booking
	return nil
}

func (m *MemoryStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	booking, ok := m.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: booking %d", service.ErrNotFound, id)
	}
	return &booking, nil
}

func (m *MemoryStore) DecideBooking(ctx context.Context, id int64, status models.BookingStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	booking, ok := m.bookings[id]
	if !ok {
		return false, fmt.Errorf("%w: booking %d", service.ErrNotFound, id)
	}
	if booking.Status != models.StatusWaiting {
		return false, nil
	}
	booking.Status = status
	booking.UpdatedAt = time.Now()
	m.bookings[id] = booking
	return true, nil
}

func (m *MemoryStore) ListByBooker(ctx context.Context, bookerID int64, f service.BookingFilter) ([]models.Booking, error) {
	return m.listBookings(func(b models.Booking) bool { return b.BookerID == bookerID }, f), nil
}

func (m *MemoryStore) ListByOwner(ctx context.Context, ownerID int64, f service.BookingFilter) ([]models.Booking, error) {
	return m.listBookings(func(b models.Booking) bool {
		item, ok := m.items[b.ItemID]
		return ok && item.OwnerID == ownerID
	}, f), nil
}

func (m *MemoryStore) listBookings(match func(models.Booking) bool, f service.BookingFilter) []models.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var bookings []models.Booking
	for _, b := range m.bookings {
		if match(b) && f.State.Matches(b, f.Now) {
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].Start.After(bookings[j].Start) })
	return paginate(bookings, f.Offset, f.Limit)
}

func (m *MemoryStore) ApprovedByItemIDs(ctx context.Context, itemIDs []int64) ([]models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}

	var bookings []models.Booking
	for _, b := range m.bookings {
		if b.Status == models.StatusApproved && wanted[b.ItemID] {
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].Start.After(bookings[j].Start) })
	return bookings, nil
}

func (m *MemoryStore) HasFinishedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, b := range m.bookings {
		if b.BookerID == bookerID && b.ItemID == itemID &&
			b.Status == models.StatusApproved && b.End.Before(now) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) HasApprovedOverlap(ctx context.Context, itemID int64, start, end time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, b := range m.bookings {
		if b.ItemID == itemID && b.Status == models.StatusApproved && b.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

// Comments

func (m *MemoryStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextCommentID++
	comment.ID = m.nextCommentID
	m.comments[comment.ID] = *comment
	return nil
}

func (m *MemoryStore) CommentsByItemIDs(ctx context.Context, itemIDs []int64) ([]models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}

	var comments []models.Comment
	for _, c := range m.comments {
		if wanted[c.ItemID] {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return comments, nil
}

func paginate[T any](in []T, offset, limit int) []T {
	if offset >= len(in) {
		return []T{}
	}
	out := in[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
