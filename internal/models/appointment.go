package models

import "time"

// AppointmentStatus enumerates the lifecycle states of a booking.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "Pending"
	StatusCompleted AppointmentStatus = "Completed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

// Appointment binds a patient to a booked slot.
// Cancellation removes the row entirely; it is not a soft delete.
type Appointment struct {
	ID        string            `db:"id" json:"id"`
	UserID    string            `db:"user_id" json:"user_id"`
	SlotID    string            `db:"slot_id" json:"slot_id"`
	Status    AppointmentStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// DaySheetFormat selects the rendering for an exported day sheet.
type DaySheetFormat string

const (
	DaySheetCSV DaySheetFormat = "csv"
	DaySheetPDF DaySheetFormat = "pdf"
)

// UpdateAppointmentStatusRequest carries the admin status update payload.
type UpdateAppointmentStatusRequest struct {
	Status AppointmentStatus `json:"status" validate:"required,oneof=Pending Completed Cancelled"`
}

// AppointmentDetail is an appointment joined with its slot and patient summary
// for display in patient and admin listings.
type AppointmentDetail struct {
	Appointment
	Slot Slot        `json:"slot"`
	User UserSummary `json:"user"`
}
