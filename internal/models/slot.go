package models

import "time"

// Slot is a bookable half-hour window on a calendar day.
// Date is a plain YYYY-MM-DD string and StartTime/EndTime are HH:MM strings;
// SlotAt combines both into a sortable timestamp used for expiry purges.
type Slot struct {
	ID        string    `db:"id" json:"id"`
	Date      string    `db:"date" json:"date"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	SlotAt    time.Time `db:"slot_at" json:"slot_at"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	IsBooked  bool      `db:"is_booked" json:"is_booked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SlotTemplate is one entry of the fixed daily grid the generator materializes.
type SlotTemplate struct {
	StartTime string
	EndTime   string
	SortOrder int
}

// CreateSlotRequest is the admin payload for adding an ad-hoc slot
// outside the generated grid.
type CreateSlotRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
}
