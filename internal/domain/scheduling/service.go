package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrShiftNotFound       = errors.New("shift not found")
	ErrShiftExists         = errors.New("shift already exists for doctor, date and category")
	ErrShiftHasBookings    = errors.New("shift has live appointments")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrBookingRejected     = errors.New("booking rejected")
	ErrBadStatusTransition = errors.New("invalid status transition")
)

const (
	minSlotDuration = 15
	maxSlotDuration = 180
)

type Service struct {
	shifts    ShiftRepository
	appts     AppointmentRepository
	evaluator *Evaluator
	locks     *slotLocks
}

func NewService(shifts ShiftRepository, appts AppointmentRepository, doctors DoctorDirectory) *Service {
	return &Service{
		shifts:    shifts,
		appts:     appts,
		evaluator: NewEvaluator(shifts, appts, doctors),
		locks:     newSlotLocks(),
	}
}

// Evaluator exposes the conflict resolver for read-only admission checks.
func (s *Service) Evaluator() *Evaluator { return s.evaluator }

// -- Shifts --

func validateWindows(windows []TimeWindow) error {
	if len(windows) == 0 {
		return fmt.Errorf("at least one time window is required")
	}
	for i, w := range windows {
		if w.Start >= w.End {
			return fmt.Errorf("window %d: start %s must precede end %s", i, w.Start, w.End)
		}
		if w.Duration < minSlotDuration || w.Duration > maxSlotDuration {
			return fmt.Errorf("window %d: duration %d outside %d-%d minutes", i, w.Duration, minSlotDuration, maxSlotDuration)
		}
		if w.MaxPatients < 1 {
			return fmt.Errorf("window %d: max_patients must be at least 1", i)
		}
	}
	return nil
}

func (s *Service) CreateShift(ctx context.Context, shift *ShiftRecord) error {
	if shift.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if shift.Department == "" {
		return fmt.Errorf("department is required")
	}
	if !validShiftCategories[shift.Category] {
		return fmt.Errorf("invalid shift category: %s", shift.Category)
	}
	if err := validateWindows(shift.TimeWindows); err != nil {
		return err
	}
	if shift.Status == "" {
		shift.Status = ShiftScheduled
	}
	if !validShiftStatuses[shift.Status] {
		return fmt.Errorf("invalid shift status: %s", shift.Status)
	}

	shift.Date = truncateToDay(shift.Date)
	_, err := s.shifts.FindLiveByDoctorDateCategory(ctx, shift.DoctorID, shift.Date, shift.Category)
	if err == nil {
		return ErrShiftExists
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("checking shift uniqueness: %w", err)
	}

	shift.IsActive = true
	return s.shifts.Create(ctx, shift)
}

func (s *Service) GetShift(ctx context.Context, id uuid.UUID) (*ShiftRecord, error) {
	shift, err := s.shifts.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrShiftNotFound
	}
	return shift, err
}

func (s *Service) UpdateShift(ctx context.Context, shift *ShiftRecord) error {
	current, err := s.GetShift(ctx, shift.ID)
	if err != nil {
		return err
	}
	if !validShiftStatuses[shift.Status] {
		return fmt.Errorf("invalid shift status: %s", shift.Status)
	}
	if err := validateWindows(shift.TimeWindows); err != nil {
		return err
	}

	shift.Date = truncateToDay(shift.Date)
	if !shift.Date.Equal(current.Date) || shift.Category != current.Category {
		existing, err := s.shifts.FindLiveByDoctorDateCategory(ctx, current.DoctorID, shift.Date, shift.Category)
		if err == nil && existing.ID != shift.ID {
			return ErrShiftExists
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("checking shift uniqueness: %w", err)
		}
	}
	shift.DoctorID = current.DoctorID
	return s.shifts.Update(ctx, shift)
}

// DeleteShift soft-deletes a shift. Refused while any live appointment still
// references it.
func (s *Service) DeleteShift(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetShift(ctx, id); err != nil {
		return err
	}
	busy, err := s.appts.HasLiveForShift(ctx, id)
	if err != nil {
		return fmt.Errorf("checking shift bookings: %w", err)
	}
	if busy {
		return ErrShiftHasBookings
	}
	return s.shifts.SoftDelete(ctx, id)
}

func (s *Service) SearchShifts(ctx context.Context, params map[string]string, limit, offset int) ([]*ShiftRecord, int, error) {
	return s.shifts.Search(ctx, params, limit, offset)
}

// WeeklySchedule returns a doctor's shifts for the seven days starting at
// weekStart, keyed by ISO date.
func (s *Service) WeeklySchedule(ctx context.Context, doctorID uuid.UUID, weekStart time.Time) (map[string][]*ShiftRecord, error) {
	from := truncateToDay(weekStart)
	to := from.AddDate(0, 0, 6)
	shifts, err := s.shifts.ListByDoctorRange(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	week := make(map[string][]*ShiftRecord, 7)
	for d := 0; d < 7; d++ {
		week[from.AddDate(0, 0, d).Format("2006-01-02")] = nil
	}
	for _, shift := range shifts {
		key := shift.Date.Format("2006-01-02")
		week[key] = append(week[key], shift)
	}
	return week, nil
}

func (s *Service) ShiftStats(ctx context.Context, from, to time.Time) (*ShiftStats, error) {
	return s.shifts.Stats(ctx, from, to)
}

// -- Appointments --

// CreateAppointmentRequest is a booking submission.
type CreateAppointmentRequest struct {
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	Date      time.Time  `json:"date"`
	Slot      TimeSlot   `json:"slot"`
	Type      string     `json:"type"`
	Source    string     `json:"source"`
	Priority  int        `json:"priority"`
	Reason    *string    `json:"reason,omitempty"`
}

// CreateAppointment admits and stores a booking. The admission check and the
// insert run under the slot lock so concurrent requests for one slot are
// serialized and cannot oversubscribe it. A rejection returns the decision
// alongside ErrBookingRejected.
func (s *Service) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*Appointment, *Decision, error) {
	if req.DoctorID == uuid.Nil {
		return nil, nil, fmt.Errorf("doctor_id is required")
	}
	if req.Slot.Start >= req.Slot.End {
		return nil, nil, fmt.Errorf("slot start %s must precede end %s", req.Slot.Start, req.Slot.End)
	}
	if req.Slot.Duration == 0 {
		req.Slot.Duration = int(req.Slot.End - req.Slot.Start)
	}
	if req.Type == "" {
		req.Type = TypeConsultation
	}
	if req.Source == "" {
		req.Source = SourceStaff
	}

	date := truncateToDay(req.Date)
	unlock := s.locks.lock(req.DoctorID, date, req.Slot.Start)
	defer unlock()

	decision, err := s.evaluator.Evaluate(ctx, BookingRequest{
		DoctorID: req.DoctorID,
		Date:     date,
		Slot:     req.Slot,
	})
	if err != nil {
		return nil, nil, err
	}
	if !decision.Admissible {
		return nil, decision, ErrBookingRejected
	}

	code, err := s.nextCode(ctx, date)
	if err != nil {
		return nil, nil, err
	}
	appt := &Appointment{
		Code:      code,
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		ShiftID:   &decision.Shift.ID,
		Date:      date,
		Slot:      req.Slot,
		Status:    ApptScheduled,
		Type:      req.Type,
		Source:    req.Source,
		Priority:  req.Priority,
		Reason:    req.Reason,
	}
	if err := s.appts.Create(ctx, appt); err != nil {
		return nil, nil, err
	}
	decision.RemainingCapacity--
	return appt, decision, nil
}

// nextCode builds an appointment code of the form LH<yyyymmdd><seq>.
func (s *Service) nextCode(ctx context.Context, date time.Time) (string, error) {
	seq, err := s.appts.CountForDate(ctx, date)
	if err != nil {
		return "", fmt.Errorf("counting appointments: %w", err)
	}
	return fmt.Sprintf("LH%s%03d", date.Format("20060102"), seq+1), nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.appts.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	return appt, err
}

func (s *Service) GetAppointmentByCode(ctx context.Context, code string) (*Appointment, error) {
	appt, err := s.appts.GetByCode(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	return appt, err
}

func (s *Service) SearchAppointments(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	if st, ok := params["status"]; ok && !validAppointmentStatuses[st] {
		return nil, 0, fmt.Errorf("invalid appointment status: %s", st)
	}
	return s.appts.Search(ctx, params, limit, offset)
}

// Reschedule moves a live appointment to a new date and slot. The moved
// appointment is excluded from the capacity count so it does not collide
// with itself when staying on the same slot.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, date time.Time, slot TimeSlot) (*Appointment, *Decision, error) {
	appt, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !appt.IsLive() {
		return nil, nil, fmt.Errorf("%w: cannot reschedule %s appointment", ErrBadStatusTransition, appt.Status)
	}
	if slot.Start >= slot.End {
		return nil, nil, fmt.Errorf("slot start %s must precede end %s", slot.Start, slot.End)
	}
	if slot.Duration == 0 {
		slot.Duration = int(slot.End - slot.Start)
	}

	date = truncateToDay(date)
	unlock := s.locks.lock(appt.DoctorID, date, slot.Start)
	defer unlock()

	decision, err := s.evaluator.Evaluate(ctx, BookingRequest{
		DoctorID: appt.DoctorID,
		Date:     date,
		Slot:     slot,
		Exclude:  &appt.ID,
	})
	if err != nil {
		return nil, nil, err
	}
	if !decision.Admissible {
		return nil, decision, ErrBookingRejected
	}

	appt.Date = date
	appt.Slot = slot
	appt.ShiftID = &decision.Shift.ID
	appt.Status = ApptScheduled
	if err := s.appts.Update(ctx, appt); err != nil {
		return nil, nil, err
	}
	return appt, decision, nil
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, ApptConfirmed, ApptScheduled)
}

func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.transition(ctx, id, ApptCheckedIn, ApptScheduled, ApptConfirmed)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	appt.CheckedInAt = &now
	return appt, s.appts.Update(ctx, appt)
}

func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, ApptInProgress, ApptCheckedIn)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.transition(ctx, id, ApptCompleted, ApptInProgress, ApptCheckedIn)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	appt.CheckedOutAt = &now
	return appt, s.appts.Update(ctx, appt)
}

func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, ApptNoShow, ApptScheduled, ApptConfirmed)
}

// Cancel terminates a live appointment, recording who cancelled and why.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, by *uuid.UUID, reason string) (*Appointment, error) {
	appt, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.IsLive() {
		return nil, fmt.Errorf("%w: cannot cancel %s appointment", ErrBadStatusTransition, appt.Status)
	}
	now := time.Now()
	appt.Status = ApptCancelled
	appt.CancelledAt = &now
	appt.CancelledBy = by
	if reason != "" {
		appt.CancelledReason = &reason
	}
	return appt, s.appts.Update(ctx, appt)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to string, from ...string) (*Appointment, error) {
	appt, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	ok := false
	for _, f := range from {
		if appt.Status == f {
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s", ErrBadStatusTransition, appt.Status, to)
	}
	appt.Status = to
	if to == ApptConfirmed || to == ApptInProgress || to == ApptNoShow {
		return appt, s.appts.Update(ctx, appt)
	}
	return appt, nil
}
