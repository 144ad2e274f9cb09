package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shareit/internal/models"
	"shareit/internal/service"
)

const bookingColumns = `id, item_id, booker_id, status, start_at, end_at, created_at, updated_at`

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (item_id, booker_id, status, start_at, end_at, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		booking.ItemID,
		booking.BookerID,
		string(booking.Status),
		booking.Start.UTC(),
		booking.End.UTC(),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

	var booking models.Booking
	err := db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID, &booking.ItemID, &booking.BookerID, &booking.Status,
		&booking.Start, &booking.End, &booking.CreatedAt, &booking.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: booking %d", service.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// DecideBooking is the compare-and-swap on status: the row is written only
// while it is still WAITING, so a concurrent decision cannot be overwritten.
func (db *DB) DecideBooking(ctx context.Context, id int64, status models.BookingStatus) (bool, error) {
	query := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, string(status), time.Now().UTC(), id, string(models.StatusWaiting))
	if err != nil {
		return false, fmt.Errorf("failed to decide booking: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (db *DB) ListByBooker(ctx context.Context, bookerID int64, f service.BookingFilter) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booker_id = ?`
	args := []any{bookerID}
	query, args = appendStateClause(query, args, f)

	return db.queryBookings(ctx, query, args...)
}

func (db *DB) ListByOwner(ctx context.Context, ownerID int64, f service.BookingFilter) ([]models.Booking, error) {
	query := `SELECT b.` + strings.ReplaceAll(bookingColumns, ", ", ", b.") + `
              FROM bookings b JOIN items i ON i.id = b.item_id WHERE i.owner_id = ?`
	args := []any{ownerID}
	query, args = appendStateClause(query, args, f)

	return db.queryBookings(ctx, query, args...)
}

// appendStateClause encodes the same predicates as service.State.Matches.
func appendStateClause(query string, args []any, f service.BookingFilter) (string, []any) {
	now := f.Now.UTC()
	switch f.State {
	case service.StateCurrent:
		query += ` AND start_at <= ? AND end_at >= ?`
		args = append(args, now, now)
	case service.StatePast:
		query += ` AND end_at <= ?`
		args = append(args, now)
	case service.StateFuture:
		query += ` AND start_at >= ?`
		args = append(args, now)
	case service.StateWaiting:
		query += ` AND status = ?`
		args = append(args, string(models.StatusWaiting))
	case service.StateRejected:
		query += ` AND status = ?`
		args = append(args, string(models.StatusRejected))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	query += ` ORDER BY start_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)
	return query, args
}

// ApprovedByItemIDs fetches approved bookings for the whole id set in one
// query; the aggregator counts on the single round trip.
func (db *DB) ApprovedByItemIDs(ctx context.Context, itemIDs []int64) ([]models.Booking, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(itemIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE status = ? AND item_id IN (` + placeholders + `) ORDER BY start_at DESC`

	args := make([]any, 0, len(itemIDs)+1)
	args = append(args, string(models.StatusApproved))
	for _, id := range itemIDs {
		args = append(args, id)
	}

	return db.queryBookings(ctx, query, args...)
}

func (db *DB) HasFinishedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE booker_id = ? AND item_id = ? AND status = ? AND end_at < ?`

	var count int
	err := db.QueryRowContext(ctx, query, bookerID, itemID, string(models.StatusApproved), now.UTC()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check finished booking: %w", err)
	}
	return count > 0, nil
}

func (db *DB) HasApprovedOverlap(ctx context.Context, itemID int64, start, end time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE item_id = ? AND status = ? AND start_at < ? AND end_at > ?`

	var count int
	err := db.QueryRowContext(ctx, query, itemID, string(models.StatusApproved), end.UTC(), start.UTC()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check overlap: %w", err)
	}
	return count > 0, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var booking models.Booking
		if err := rows.Scan(
			&booking.ID, &booking.ItemID, &booking.BookerID, &booking.Status,
			&booking.Start, &booking.End, &booking.CreatedAt, &booking.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
