package models

import "time"

type Item struct {
	ID          int64     `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Available   bool      `json:"available" yaml:"available"`
	OwnerID     int64     `json:"owner_id" yaml:"owner_id"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

// ItemDetails is an item annotated with its most relevant approved bookings
// and comments. LastBooking/NextBooking are populated for the owner only.
type ItemDetails struct {
	Item
	LastBooking *BookingBrief `json:"last_booking,omitempty"`
	NextBooking *BookingBrief `json:"next_booking,omitempty"`
	Comments    []Comment     `json:"comments"`
}
