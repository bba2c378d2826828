package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Rejection codes for booking decisions.
const (
	ReasonNoShiftScheduled = "NO_SHIFT_SCHEDULED"
	ReasonSlotNotOffered   = "SLOT_NOT_OFFERED"
	ReasonSlotUnavailable  = "SLOT_UNAVAILABLE"
	ReasonSlotFull         = "SLOT_FULL"
)

// Decision is the outcome of a booking admissibility check. Rejections are
// data, not errors: only storage faults surface as a non-nil error from the
// evaluator.
type Decision struct {
	Admissible        bool         `json:"admissible"`
	Reason            string       `json:"reason,omitempty"`
	ReasonCode        string       `json:"reason_code,omitempty"`
	RemainingCapacity int          `json:"remaining_capacity"`
	Shift             *ShiftRecord `json:"-"`
	Window            *TimeWindow  `json:"-"`
}

func reject(code, reason string) *Decision {
	return &Decision{Admissible: false, Reason: reason, ReasonCode: code}
}

// BookingRequest asks whether one slot on one doctor's day can take another
// appointment. Exclude removes an existing appointment from the capacity
// count, so a reschedule does not block on its own booking.
type BookingRequest struct {
	DoctorID uuid.UUID
	Date     time.Time
	Slot     TimeSlot
	Exclude  *uuid.UUID
}

// DiscoveryRequest finds doctors able to take a visit at a given time.
type DiscoveryRequest struct {
	Date           time.Time
	Start          TimeOfDay
	Duration       int
	Department     string
	Specialization string
}

// Offer is one bookable (doctor, shift, window) combination.
type Offer struct {
	Doctor            *DoctorProfile `json:"doctor"`
	ShiftID           uuid.UUID      `json:"shift_id"`
	ShiftCategory     string         `json:"shift_category"`
	Window            TimeWindow     `json:"window"`
	RemainingCapacity int            `json:"remaining_capacity"`
}

// Evaluator is the scheduling conflict resolver. It is stateless apart from
// its storage handles and the in-process slot locks.
type Evaluator struct {
	shifts  ShiftRepository
	appts   AppointmentRepository
	doctors DoctorDirectory
}

func NewEvaluator(shifts ShiftRepository, appts AppointmentRepository, doctors DoctorDirectory) *Evaluator {
	return &Evaluator{shifts: shifts, appts: appts, doctors: doctors}
}

// LookupShift resolves the active shift covering the doctor's calendar day.
// A missing shift is reported through the bool, not an error.
func (e *Evaluator) LookupShift(ctx context.Context, doctorID uuid.UUID, date time.Time) (*ShiftRecord, bool, error) {
	shift, err := e.shifts.FindActiveByDoctorAndDate(ctx, doctorID, date)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("looking up shift: %w", err)
	}
	return shift, true, nil
}

// MatchWindows returns every available window of the shift that can contain
// a visit starting at start and running for duration minutes. This is the
// discovery rule: the request must fit inside the window, it does not have
// to fill it.
func MatchWindows(shift *ShiftRecord, start TimeOfDay, duration int) []TimeWindow {
	var matched []TimeWindow
	end := start.Add(duration)
	for _, w := range shift.TimeWindows {
		if !w.Available {
			continue
		}
		if start >= w.Start && end <= w.End {
			matched = append(matched, w)
		}
	}
	return matched
}

// findExactWindow matches a requested slot against the shift's declared
// windows on both endpoints. Booking is stricter than discovery: a request
// must target a declared window precisely, a merely-containing window does
// not qualify.
func findExactWindow(shift *ShiftRecord, slot TimeSlot) (*TimeWindow, bool) {
	for i := range shift.TimeWindows {
		w := &shift.TimeWindows[i]
		if w.Start == slot.Start && w.End == slot.End {
			return w, true
		}
	}
	return nil, false
}

// SlotCapacity counts live appointments on the (shift, date, slot start) key
// and returns the count plus the remaining capacity, clamped at zero.
func (e *Evaluator) SlotCapacity(ctx context.Context, shift *ShiftRecord, window *TimeWindow, date time.Time, exclude *uuid.UUID) (count, remaining int, err error) {
	count, err = e.appts.CountLiveForSlot(ctx, shift.ID, date, window.Start, exclude)
	if err != nil {
		return 0, 0, fmt.Errorf("counting slot bookings: %w", err)
	}
	remaining = window.MaxPatients - count
	if remaining < 0 {
		remaining = 0
	}
	return count, remaining, nil
}

// Evaluate runs the ordered admission checks for a booking: shift lookup,
// exact window match, capacity. The first failed check decides the outcome.
func (e *Evaluator) Evaluate(ctx context.Context, req BookingRequest) (*Decision, error) {
	shift, found, err := e.LookupShift(ctx, req.DoctorID, req.Date)
	if err != nil {
		return nil, err
	}
	if !found {
		return reject(ReasonNoShiftScheduled, "doctor has no active shift on the requested date"), nil
	}

	window, ok := findExactWindow(shift, req.Slot)
	if !ok {
		return reject(ReasonSlotNotOffered, "requested time slot is not offered in the doctor's shift"), nil
	}
	if !window.Available {
		return reject(ReasonSlotUnavailable, "requested time slot is not available"), nil
	}

	count, remaining, err := e.SlotCapacity(ctx, shift, window, req.Date, req.Exclude)
	if err != nil {
		return nil, err
	}
	if count >= window.MaxPatients {
		return reject(ReasonSlotFull, "requested time slot is fully booked"), nil
	}

	return &Decision{
		Admissible:        true,
		RemainingCapacity: remaining,
		Shift:             shift,
		Window:            window,
	}, nil
}

// FindAvailableDoctors runs the slot matcher across every active shift on the
// date, tagging each match with its doctor. Offers with no remaining capacity
// are dropped. An empty result is not an error.
func (e *Evaluator) FindAvailableDoctors(ctx context.Context, req DiscoveryRequest) ([]*Offer, error) {
	shifts, err := e.shifts.ListActiveByDate(ctx, req.Date, req.Department)
	if err != nil {
		return nil, fmt.Errorf("listing shifts: %w", err)
	}

	profiles := map[uuid.UUID]*DoctorProfile{}
	var offers []*Offer
	for _, shift := range shifts {
		doctor, ok := profiles[shift.DoctorID]
		if !ok {
			doctor, err = e.doctors.GetDoctor(ctx, shift.DoctorID)
			if err != nil {
				return nil, fmt.Errorf("resolving doctor %s: %w", shift.DoctorID, err)
			}
			profiles[shift.DoctorID] = doctor
		}
		if req.Specialization != "" && doctor.Specialization != req.Specialization {
			continue
		}

		for _, window := range MatchWindows(shift, req.Start, req.Duration) {
			w := window
			_, remaining, err := e.SlotCapacity(ctx, shift, &w, req.Date, nil)
			if err != nil {
				return nil, err
			}
			if remaining <= 0 {
				continue
			}
			offers = append(offers, &Offer{
				Doctor:            doctor,
				ShiftID:           shift.ID,
				ShiftCategory:     shift.Category,
				Window:            w,
				RemainingCapacity: remaining,
			})
		}
	}
	return offers, nil
}

const maxSuggestions = 5

// SuggestAlternatives ranks other doctors able to take the visit when the
// preferred doctor cannot. Specialization matches rank first, ties break on
// experience, descending; at most five offers are returned. Unlike plain
// discovery, a non-matching specialization does not exclude a doctor here,
// it only ranks them lower.
func (e *Evaluator) SuggestAlternatives(ctx context.Context, preferred uuid.UUID, req DiscoveryRequest) ([]*Offer, error) {
	broad := req
	broad.Specialization = ""
	offers, err := e.FindAvailableDoctors(ctx, broad)
	if err != nil {
		return nil, err
	}

	filtered := offers[:0]
	for _, o := range offers {
		if o.Doctor.ID != preferred {
			filtered = append(filtered, o)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i].Doctor, filtered[j].Doctor
		if req.Specialization != "" {
			aMatch := a.Specialization == req.Specialization
			bMatch := b.Specialization == req.Specialization
			if aMatch != bMatch {
				return aMatch
			}
		}
		return a.ExperienceYears > b.ExperienceYears
	})

	if len(filtered) > maxSuggestions {
		filtered = filtered[:maxSuggestions]
	}
	return filtered, nil
}
