package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"shareit/internal/clock"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// Items implements item plumbing, the availability aggregator and the
// comment eligibility gate.
type Items struct {
	users    UserRepository
	items    ItemRepository
	bookings BookingRepository
	comments CommentRepository
	cache    ItemDetailsCache
	bus      *events.EventBus
	clk      clock.Clock
	logger   zerolog.Logger
}

type ItemsOption func(*Items)

func WithItemsClock(clk clock.Clock) ItemsOption {
	return func(s *Items) { s.clk = clk }
}

func WithItemsCache(cache ItemDetailsCache) ItemsOption {
	return func(s *Items) { s.cache = cache }
}

func WithItemsEvents(bus *events.EventBus) ItemsOption {
	return func(s *Items) { s.bus = bus }
}

func NewItems(users UserRepository, items ItemRepository, bookings BookingRepository,
	comments CommentRepository, logger *zerolog.Logger, opts ...ItemsOption) *Items {
	s := &Items{
		users:    users,
		items:    items,
		bookings: bookings,
		comments: comments,
		clk:      clock.System{},
		logger:   logger.With().Str("component", "items").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ItemPatch carries the mutable item fields; nil means "leave as is".
type ItemPatch struct {
	Name        *string
	Description *string
	Available   *bool
}

func (s *Items) Create(ctx context.Context, ownerID int64, item models.Item) (*models.Item, error) {
	if _, err := s.requireUser(ctx, ownerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil, validation("Item name is required")
	}

	item.OwnerID = ownerID
	if err := s.items.CreateItem(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Items) Update(ctx context.Context, userID, itemID int64, patch ItemPatch) (*models.Item, error) {
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
	if item.OwnerID != userID {
		return nil, notFound("You can not edit this item")
	}

	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Available != nil {
		item.Available = *patch.Available
	}

	if err := s.items.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx, itemID)
	return item, nil
}

// Get returns one item annotated for the viewer. Single-item reads go
// through the detail cache when one is configured.
func (s *Items) Get(ctx context.Context, viewerID, itemID int64) (*models.ItemDetails, error) {
	if _, err := s.requireUser(ctx, viewerID); err != nil {
		return nil, err
	}

	item, err := s.items.GetItem(ctx, itemID)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("Item is not found")
	}
	if err != nil {
		return nil, err
	}

	ownerView := item.OwnerID == viewerID
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, itemID, ownerView); err != nil {
			s.logger.Warn().Err(err).Int64("item_id", itemID).Msg("item cache read")
		} else if cached != nil {
			return cached, nil
		}
	}

	annotated, err := s.Annotate(ctx, []models.Item{*item}, viewerID)
	if err != nil {
		return nil, err
	}
	details := annotated[0]

	if s.cache != nil {
		if err := s.cache.Set(ctx, details, ownerView); err != nil {
			s.logger.Warn().Err(err).Int64("item_id", itemID).Msg("item cache write")
		}
	}
	return &details, nil
}

// ListByOwner returns the owner's items, each annotated with last/next
// approved bookings and comments.
func (s *Items) ListByOwner(ctx context.Context, ownerID int64, from, size int) ([]models.ItemDetails, error) {
	if _, err := s.requireUser(ctx, ownerID); err != nil {
		return nil, err
	}
	if from < 0 || size <= 0 {
		return nil, validation("Page parameters are not valid")
	}

	items, err := s.items.ItemsByOwner(ctx, ownerID, from, size)
	if err != nil {
		return nil, err
	}
	return s.Annotate(ctx, items, ownerID)
}

// Search matches available items by substring. A blank query returns an
// empty result without touching the store.
func (s *Items) Search(ctx context.Context, userID int64, text string, from, size int) ([]models.Item, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if from < 0 || size <= 0 {
		return nil, validation("Page parameters are not valid")
	}
	if strings.TrimSpace(text) == "" {
		return []models.Item{}, nil
	}
	return s.items.SearchItems(ctx, text, from, size)
}

// Annotate attaches comments to every item and, for items owned by the
// viewer, the nearest approved bookings around "now". Bookings and comments
// are each fetched with a single bulk call for the whole id set.
//
// lastBooking classifies "past" by start < now, not end; that is the
// historical rule and callers depend on it.
func (s *Items) Annotate(ctx context.Context, items []models.Item, viewerID int64) ([]models.ItemDetails, error) {
	ids := make([]int64, 0, len(items))
	ownedIDs := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
		if item.OwnerID == viewerID {
			ownedIDs = append(ownedIDs, item.ID)
		}
	}

	commentsByItem := make(map[int64][]models.Comment)
	if len(ids) > 0 {
		comments, err := s.comments.CommentsByItemIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, c := range comments {
			commentsByItem[c.ItemID] = append(commentsByItem[c.ItemID], c)
		}
	}

	bookingsByItem := make(map[int64][]models.Booking)
	if len(ownedIDs) > 0 {
		bookings, err := s.bookings.ApprovedByItemIDs(ctx, ownedIDs)
		if err != nil {
			return nil, err
		}
		for _, b := range bookings {
			bookingsByItem[b.ItemID] = append(bookingsByItem[b.ItemID], b)
		}
	}

	now := s.clk.Now()
	details := make([]models.ItemDetails, 0, len(items))
	for _, item := range items {
		d := models.ItemDetails{Item: item, Comments: commentsByItem[item.ID]}
		if d.Comments == nil {
			d.Comments = []models.Comment{}
		}
		// Booking annotations are owner-only; non-owner viewers never
		// see them on any path.
		if item.OwnerID == viewerID {
			d.LastBooking, d.NextBooking = nearestBookings(bookingsByItem[item.ID], now)
		}
		details = append(details, d)
	}
	return details, nil
}

// nearestBookings picks the approved booking with the largest end among
// those started before now, and the one with the smallest start among those
// starting after now.
func nearestBookings(bookings []models.Booking, now time.Time) (last, next *models.BookingBrief) {
	for i := range bookings {
		b := bookings[i]
		if b.Start.Before(now) {
			if last == nil || b.End.After(last.End) {
				brief := b.Brief()
				last = &brief
			}
		}
		if b.Start.After(now) {
			if next == nil || b.Start.Before(next.Start) {
				brief := b.Brief()
				next = &brief
			}
		}
	}
	return last, next
}

// AddComment lets a user who has finished an approved booking of the item
// leave feedback. Eligibility is the strict variant: an APPROVED booking by
// the author on this item with end before now.
func (s *Items) AddComment(ctx context.Context, userID, itemID int64, text string) (*models.Comment, error) {
	author, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.items.GetItem(ctx, itemID)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("Item is not found")
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, validation("Comment text is required")
	}

	now := s.clk.Now()
	eligible, err := s.bookings.HasFinishedBooking(ctx, userID, itemID, now)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, validation("You can not leave a comment on that item")
	}

	comment := &models.Comment{
		ItemID:     itemID,
		AuthorID:   userID,
		AuthorName: author.Name,
		Text:       text,
		Created:    now,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.invalidate(ctx, itemID)
	metrics.IncCommentCreated()
	if err := s.bus.PublishJSON(events.EventCommentAdded, events.CommentEventPayload{
		CommentID: comment.ID,
		ItemID:    itemID,
		OwnerID:   item.OwnerID,
		AuthorID:  userID,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("publish comment event")
	}

	return comment, nil
}

func (s *Items) requireUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("User is not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Items) invalidate(ctx context.Context, itemID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, itemID); err != nil {
		s.logger.Warn().Err(err).Int64("item_id", itemID).Msg("item cache invalidate")
	}
}
