package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Shift categories.
const (
	ShiftMorning   = "morning"
	ShiftAfternoon = "afternoon"
	ShiftEvening   = "evening"
	ShiftNight     = "night"
)

var validShiftCategories = map[string]bool{
	ShiftMorning: true, ShiftAfternoon: true, ShiftEvening: true, ShiftNight: true,
}

// Shift lifecycle statuses.
const (
	ShiftScheduled = "scheduled"
	ShiftActive    = "active"
	ShiftCompleted = "completed"
	ShiftCancelled = "cancelled"
)

var validShiftStatuses = map[string]bool{
	ShiftScheduled: true, ShiftActive: true, ShiftCompleted: true, ShiftCancelled: true,
}

// TimeWindow is a bookable sub-interval of a shift. Windows are owned by
// their ShiftRecord and stored inline with it; they are never addressed
// independently.
type TimeWindow struct {
	Start       TimeOfDay `json:"start"`
	End         TimeOfDay `json:"end"`
	Duration    int       `json:"duration"`     // default appointment length, minutes
	MaxPatients int       `json:"max_patients"` // concurrent bookings per slot start
	Available   bool      `json:"available"`
}

// ShiftRecord is one doctor's duty assignment for one calendar date.
// At most one live record exists per (doctor, date, category).
type ShiftRecord struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	DoctorID    uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	Department  string       `db:"department" json:"department"`
	Date        time.Time    `db:"shift_date" json:"date"`
	Category    string       `db:"category" json:"category"`
	TimeWindows []TimeWindow `db:"time_windows" json:"time_windows"`
	Status      string       `db:"status" json:"status"`
	IsActive    bool         `db:"is_active" json:"is_active"`
	Notes       *string      `db:"notes" json:"notes,omitempty"`
	CreatedBy   *uuid.UUID   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// TimeSlot is the per-booking interval an appointment was admitted into.
// It mirrors the shape of a TimeWindow but belongs to the appointment.
type TimeSlot struct {
	Start    TimeOfDay `json:"start"`
	End      TimeOfDay `json:"end"`
	Duration int       `json:"duration"`
}

// Appointment statuses.
const (
	ApptScheduled   = "scheduled"
	ApptConfirmed   = "confirmed"
	ApptCheckedIn   = "checked_in"
	ApptInProgress  = "in_progress"
	ApptCompleted   = "completed"
	ApptCancelled   = "cancelled"
	ApptNoShow      = "no_show"
	ApptRescheduled = "rescheduled"
)

var validAppointmentStatuses = map[string]bool{
	ApptScheduled: true, ApptConfirmed: true, ApptCheckedIn: true, ApptInProgress: true,
	ApptCompleted: true, ApptCancelled: true, ApptNoShow: true, ApptRescheduled: true,
}

// liveStatuses are the appointment states that consume slot capacity.
var liveStatuses = []string{ApptScheduled, ApptConfirmed, ApptCheckedIn, ApptInProgress}

// Appointment types and sources.
const (
	TypeConsultation = "consultation"
	TypeFollowUp     = "follow_up"
	TypeEmergency    = "emergency"

	SourceStaff  = "staff"
	SourceKiosk  = "kiosk"
	SourceOnline = "online"
)

// Appointment is a patient's booked visit. PatientID may be nil for walk-ins
// whose registration has not completed yet.
type Appointment struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Code      string     `db:"code" json:"code"`
	PatientID *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	DoctorID  uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	ShiftID   *uuid.UUID `db:"shift_id" json:"shift_id,omitempty"`
	Date      time.Time  `db:"appt_date" json:"date"`
	Slot      TimeSlot   `db:"slot" json:"slot"`
	Status    string     `db:"status" json:"status"`
	Type      string     `db:"appt_type" json:"type"`
	Source    string     `db:"source" json:"source"`
	Priority  int        `db:"priority" json:"priority"`
	Reason    *string    `db:"reason" json:"reason,omitempty"`

	CheckedInAt  *time.Time `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time `db:"checked_out_at" json:"checked_out_at,omitempty"`

	CancelledAt     *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy     *uuid.UUID `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledReason *string    `db:"cancelled_reason" json:"cancelled_reason,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsLive reports whether the appointment still consumes slot capacity.
func (a *Appointment) IsLive() bool {
	switch a.Status {
	case ApptScheduled, ApptConfirmed, ApptCheckedIn, ApptInProgress:
		return true
	}
	return false
}

// truncateToDay normalizes a timestamp to midnight so shift and appointment
// dates always compare on the calendar day alone.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
