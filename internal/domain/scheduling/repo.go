package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ShiftRepository interface {
	Create(ctx context.Context, s *ShiftRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*ShiftRecord, error)
	Update(ctx context.Context, s *ShiftRecord) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// FindActiveByDoctorAndDate returns the live, status-active shift covering
	// the doctor's calendar day, or pgx.ErrNoRows.
	FindActiveByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*ShiftRecord, error)

	// FindLiveByDoctorDateCategory locates any live record for the uniqueness
	// check, regardless of lifecycle status.
	FindLiveByDoctorDateCategory(ctx context.Context, doctorID uuid.UUID, date time.Time, category string) (*ShiftRecord, error)

	// ListActiveByDate returns all live, status-active shifts on a day,
	// optionally filtered by department.
	ListActiveByDate(ctx context.Context, date time.Time, department string) ([]*ShiftRecord, error)

	// ListByDoctorRange returns the doctor's live shifts with dates in
	// [from, to], ordered by date.
	ListByDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*ShiftRecord, error)

	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*ShiftRecord, int, error)

	// Stats aggregates live shifts in [from, to] by department and category.
	Stats(ctx context.Context, from, to time.Time) (*ShiftStats, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetByCode(ctx context.Context, code string) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error

	// CountLiveForSlot counts capacity-consuming appointments for a
	// (shift, date, slot start) key. exclude, when non-nil, removes one
	// appointment from the count so reschedules do not collide with
	// themselves.
	CountLiveForSlot(ctx context.Context, shiftID uuid.UUID, date time.Time, slotStart TimeOfDay, exclude *uuid.UUID) (int, error)

	// HasLiveForShift reports whether any live appointment still references
	// the shift. Shifts with live bookings cannot be deleted.
	HasLiveForShift(ctx context.Context, shiftID uuid.UUID) (bool, error)

	// CountForDate counts appointments booked onto a calendar day, used for
	// sequence numbers in appointment codes.
	CountForDate(ctx context.Context, day time.Time) (int, error)

	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error)
}

// ShiftStats summarizes shift coverage over a date range.
type ShiftStats struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	ByCategory   map[string]int `json:"by_category"`
	ByDepartment map[string]int `json:"by_department"`
	DistinctDocs int            `json:"distinct_doctors"`
	From         time.Time      `json:"from"`
	To           time.Time      `json:"to"`
}

// DoctorProfile is the slice of a staff record the scheduler needs for
// suggestions and discovery responses.
type DoctorProfile struct {
	ID              uuid.UUID `json:"id"`
	FullName        string    `json:"full_name"`
	Department      string    `json:"department,omitempty"`
	Specialization  string    `json:"specialization,omitempty"`
	ExperienceYears int       `json:"experience_years"`
	ConsultationFee float64   `json:"consultation_fee,omitempty"`
}

// DoctorDirectory resolves doctor profiles. The identity domain provides the
// implementation; the scheduler only depends on this narrow view.
type DoctorDirectory interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*DoctorProfile, error)
	ListDoctors(ctx context.Context, department, specialization string) ([]*DoctorProfile, error)
}
