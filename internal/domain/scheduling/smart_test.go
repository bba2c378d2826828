package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func mustTime(t *testing.T, s string) TimeOfDay {
	t.Helper()
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", s, err)
	}
	return tod
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type coreFixture struct {
	shifts    *mockShiftRepo
	appts     *mockApptRepo
	directory *mockDirectory
	evaluator *Evaluator
	service   *Service
}

func newCoreFixture() *coreFixture {
	shifts := newMockShiftRepo()
	appts := newMockApptRepo()
	directory := newMockDirectory()
	return &coreFixture{
		shifts:    shifts,
		appts:     appts,
		directory: directory,
		evaluator: NewEvaluator(shifts, appts, directory),
		service:   NewService(shifts, appts, directory),
	}
}

// addShift registers an active morning shift with one 09:00-12:00 window,
// 30-minute slots, capacity 2.
func (f *coreFixture) addShift(t *testing.T, doctorID uuid.UUID, date time.Time, department string) *ShiftRecord {
	t.Helper()
	shift := &ShiftRecord{
		DoctorID:   doctorID,
		Department: department,
		Date:       date,
		Category:   ShiftMorning,
		Status:     ShiftActive,
		IsActive:   true,
		TimeWindows: []TimeWindow{
			{Start: mustTime(t, "09:00"), End: mustTime(t, "12:00"), Duration: 30, MaxPatients: 2, Available: true},
		},
	}
	if err := f.shifts.Create(context.Background(), shift); err != nil {
		t.Fatalf("creating shift: %v", err)
	}
	return shift
}

func (f *coreFixture) book(t *testing.T, doctorID uuid.UUID, date time.Time, start, end string) *Appointment {
	t.Helper()
	appt, _, err := f.service.CreateAppointment(context.Background(), CreateAppointmentRequest{
		DoctorID: doctorID,
		Date:     date,
		Slot:     TimeSlot{Start: mustTime(t, start), End: mustTime(t, end), Duration: 30},
	})
	if err != nil {
		t.Fatalf("booking %s-%s: %v", start, end, err)
	}
	return appt
}

func TestEvaluateAdmitsAndFills(t *testing.T) {
	f := newCoreFixture()
	drX := f.directory.add("Dr. X", "Cardiology", "Cardiology", 10)
	date := day(2024, 6, 10)
	f.addShift(t, drX, date, "Cardiology")

	slot := TimeSlot{Start: mustTime(t, "09:00"), End: mustTime(t, "12:00"), Duration: 30}

	decision, err := f.evaluator.Evaluate(context.Background(), BookingRequest{DoctorID: drX, Date: date, Slot: slot})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !decision.Admissible {
		t.Fatalf("expected admissible, got %s", decision.ReasonCode)
	}
	if decision.RemainingCapacity != 2 {
		t.Errorf("remaining = %d, want 2", decision.RemainingCapacity)
	}

	f.book(t, drX, date, "09:00", "12:00")

	decision, err = f.evaluator.Evaluate(context.Background(), BookingRequest{DoctorID: drX, Date: date, Slot: slot})
	if err != nil {
		t.Fatalf("Evaluate after one booking: %v", err)
	}
	if !decision.Admissible || decision.RemainingCapacity != 1 {
		t.Errorf("after one booking: admissible=%v remaining=%d, want true/1", decision.Admissible, decision.RemainingCapacity)
	}

	f.book(t, drX, date, "09:00", "12:00")

	decision, err = f.evaluator.Evaluate(context.Background(), BookingRequest{DoctorID: drX, Date: date, Slot: slot})
	if err != nil {
		t.Fatalf("Evaluate at capacity: %v", err)
	}
	if decision.Admissible || decision.ReasonCode != ReasonSlotFull {
		t.Errorf("at capacity: admissible=%v code=%s, want false/%s", decision.Admissible, decision.ReasonCode, ReasonSlotFull)
	}
}

func TestEvaluateExactMatchRule(t *testing.T) {
	f := newCoreFixture()
	drX := f.directory.add("Dr. X", "Cardiology", "Cardiology", 10)
	date := day(2024, 6, 10)
	f.addShift(t, drX, date, "Cardiology")

	// 09:00-09:45 fits inside the 09:00-12:00 window but matches no declared
	// window exactly, so booking refuses it even though discovery would offer
	// the window.
	decision, err := f.evaluator.Evaluate(context.Background(), BookingRequest{
		DoctorID: drX, Date: date,
		Slot: TimeSlot{Start: mustTime(t, "09:00"), End: mustTime(t, "09:45"), Duration: 45},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Admissible || decision.ReasonCode != ReasonSlotNotOffered {
		t.Errorf("got admissible=%v code=%s, want false/%s", decision.Admissible, decision.ReasonCode, ReasonSlotNotOffered)
	}
}

func TestEvaluateNoShiftScheduled(t *testing.T) {
	f := newCoreFixture()
	drY := f.directory.add("Dr. Y", "Neurology", "Neurology", 5)

	decision, err := f.evaluator.Evaluate(context.Background(), BookingRequest{
		DoctorID: drY, Date: day(2024, 6, 11),
		Slot: TimeSlot{Start: mustTime(t, "09:00"), End: mustTime(t, "12:00"), Duration: 30},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Admissible || decision.ReasonCode != ReasonNoShiftScheduled {
		t.Errorf("got admissible=%v code=%s, want false/%s", decision.Admissible, decision.ReasonCode, ReasonNoShiftScheduled)
	}
}

func TestEvaluateSlotUnavailable(t *testing.T) {
	f := newCoreFixture()
	drX := f.directory.add("Dr. X", "Cardiology", "Cardiology", 10)
	date := day(2024, 6, 10)
	shift := f.addShift(t, drX, date, "Cardiology")
	shift.TimeWindows[0].Available = false

	decision, err := f.evaluator.Evaluate(context.Background(), BookingRequest{
		DoctorID: drX, Date: date,
		Slot: TimeSlot{Start: mustTime(t, "09:00"), End: mustTime(t, "12:00"), Duration: 30},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Admissible || decision.ReasonCode != ReasonSlotUnavailable {
		t.Errorf("got admissible=%v code=%s, want false/%s", decision.Admissible, decision.ReasonCode, ReasonSlotUnavailable)
	}
}

func TestCapacityExcludeReducesCountByOne(t *testing.T) {
	f := newCoreFixture()
	drX := f.directory.add("Dr. X", "Cardiology", "Cardiology", 10)
	date := day(2024, 6, 10)
	shift := f.addShift(t, drX, date, "Cardiology")
	appt := f.book(t, drX, date, "09:00", "12:00")

	w := &shift.TimeWindows[0]
	count, _, err := f.evaluator.SlotCapacity(context.Background(), shift, w, date, nil)
	if err != nil {
		t.Fatalf("SlotCapacity: %v", err)
	}
	excluded, _, err := f.evaluator.SlotCapacity(context.Background(), shift, w, date, &appt.ID)
	if err != nil {
		t.Fatalf("SlotCapacity with exclude: %v", err)
	}
	if count-excluded != 1 {
		t.Errorf("exclude should reduce count by exactly 1: %d vs %d", count, excluded)
	}
}

func TestMatchWindowsContainment(t *testing.T) {
	f := newCoreFixture()
	drX := f.directory.add("Dr. X", "Cardiology", "Cardiology", 10)
	date := day(2024, 6, 10)
	shift := f.addShift(t, drX, date, "Cardiology")

	// 10:00 + 20min = 10:20 fits inside 09:00-12:00.
	matched := MatchWindows(shift, mustTime(t, "10:00"), 20)
	if len(matched) != 1 {
		t.Fatalf("matched %d windows, want 1", len(matched))
	}

	// 11:50 + 20min overruns the window end.
	if got := MatchWindows(shift, mustTime(t, "11:50"), 20); len(got) != 0 {
		t.Errorf("overrunning request matched %d windows, want 0", len(got))
	}

	// Start before the window opens.
	if got := MatchWindows(shift, mustTime(t, "08:30"), 20); len(got) != 0 {
		t.Errorf("early request matched %d windows, want 0", len(got))
	}

	// Idempotent: repeated calls agree.
	again := MatchWindows(shift, mustTime(t, "10:00"), 20)
	if len(again) != len(matched) || again[0] != matched[0] {
		t.Error("repeated match returned different result")
	}
}

func TestFindAvailableDoctorsSkipsFullSlots(t *testing.T) {
	f := newCoreFixture()
	drX := f.directory.add("Dr. X", "Cardiology", "Cardiology", 10)
	date := day(2024, 6, 10)
	f.addShift(t, drX, date, "Cardiology")

	req := DiscoveryRequest{Date: date, Start: mustTime(t, "10:00"), Duration: 20}
	offers, err := f.evaluator.FindAvailableDoctors(context.Background(), req)
	if err != nil {
		t.Fatalf("FindAvailableDoctors: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("got %d offers, want 1", len(offers))
	}
	if offers[0].RemainingCapacity != 2 {
		t.Errorf("remaining = %d, want 2", offers[0].RemainingCapacity)
	}

	f.book(t, drX, date, "09:00", "12:00")
	f.book(t, drX, date, "09:00", "12:00")

	offers, err = f.evaluator.FindAvailableDoctors(context.Background(), req)
	if err != nil {
		t.Fatalf("FindAvailableDoctors after filling: %v", err)
	}
	if len(offers) != 0 {
		t.Errorf("full slot still offered: %d offers", len(offers))
	}
}

func TestSuggestAlternativesRanking(t *testing.T) {
	f := newCoreFixture()
	date := day(2024, 6, 10)

	preferred := f.directory.add("Dr. X", "Cardiology", "Cardiology", 10)
	f.addShift(t, preferred, date, "Cardiology")

	cardioJunior := f.directory.add("Dr. A", "Cardiology", "Cardiology", 3)
	cardioSenior := f.directory.add("Dr. B", "Cardiology", "Cardiology", 15)
	neuro := f.directory.add("Dr. C", "Cardiology", "Neurology", 20)
	f.addShift(t, cardioJunior, date, "Cardiology")
	f.addShift(t, cardioSenior, date, "Cardiology")
	f.addShift(t, neuro, date, "Cardiology")

	offers, err := f.evaluator.SuggestAlternatives(context.Background(), preferred, DiscoveryRequest{
		Date: date, Start: mustTime(t, "10:00"), Duration: 20, Specialization: "Cardiology",
	})
	if err != nil {
		t.Fatalf("SuggestAlternatives: %v", err)
	}
	if len(offers) != 3 {
		t.Fatalf("got %d offers, want 3", len(offers))
	}
	for _, o := range offers {
		if o.Doctor.ID == preferred {
			t.Fatal("preferred doctor must not appear in suggestions")
		}
	}
	// Specialization matches first, experience descending, non-matches last.
	if offers[0].Doctor.ID != cardioSenior {
		t.Errorf("offer 0 = %s, want senior cardiologist", offers[0].Doctor.FullName)
	}
	if offers[1].Doctor.ID != cardioJunior {
		t.Errorf("offer 1 = %s, want junior cardiologist", offers[1].Doctor.FullName)
	}
	if offers[2].Doctor.ID != neuro {
		t.Errorf("offer 2 = %s, want the neurologist last", offers[2].Doctor.FullName)
	}
}

func TestSuggestAlternativesCap(t *testing.T) {
	f := newCoreFixture()
	date := day(2024, 6, 10)
	preferred := f.directory.add("Dr. X", "Cardiology", "Cardiology", 10)

	for i := 0; i < 8; i++ {
		id := f.directory.add("Dr.", "Cardiology", "Cardiology", i)
		f.addShift(t, id, date, "Cardiology")
	}

	offers, err := f.evaluator.SuggestAlternatives(context.Background(), preferred, DiscoveryRequest{
		Date: date, Start: mustTime(t, "10:00"), Duration: 20,
	})
	if err != nil {
		t.Fatalf("SuggestAlternatives: %v", err)
	}
	if len(offers) > maxSuggestions {
		t.Errorf("got %d offers, cap is %d", len(offers), maxSuggestions)
	}
	for i := 1; i < len(offers); i++ {
		if offers[i-1].Doctor.ExperienceYears < offers[i].Doctor.ExperienceYears {
			t.Errorf("offers not sorted by experience: %d before %d",
				offers[i-1].Doctor.ExperienceYears, offers[i].Doctor.ExperienceYears)
		}
	}
}
