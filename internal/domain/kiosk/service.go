// Package kiosk backs the self-service terminals in the clinic lobby:
// patients look themselves up, register as walk-ins, book a visit and check
// in without a receptionist.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/domain/scheduling"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrTooEarly        = errors.New("too early to check in")
)

// PatientDirectory is the slice of the identity service the kiosk uses.
type PatientDirectory interface {
	GetPatientByCode(ctx context.Context, code string) (*identity.Patient, error)
	FindPatientsByPhone(ctx context.Context, phone string) ([]*identity.Patient, error)
	RegisterPatient(ctx context.Context, p *identity.Patient) error
}

// Booking is the slice of the scheduling service the kiosk uses.
type Booking interface {
	CreateAppointment(ctx context.Context, req scheduling.CreateAppointmentRequest) (*scheduling.Appointment, *scheduling.Decision, error)
	GetAppointmentByCode(ctx context.Context, code string) (*scheduling.Appointment, error)
	CheckIn(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

type Service struct {
	patients PatientDirectory
	booking  Booking
}

func NewService(patients PatientDirectory, booking Booking) *Service {
	return &Service{patients: patients, booking: booking}
}

// PatientSummary is the reduced patient view shown on kiosk screens.
type PatientSummary struct {
	ID          uuid.UUID `json:"id"`
	PatientCode string    `json:"patient_code"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone"`
}

func summarize(p *identity.Patient) *PatientSummary {
	return &PatientSummary{ID: p.ID, PatientCode: p.PatientCode, FullName: p.FullName, Phone: p.Phone}
}

// LookupByCode finds a patient by their printed patient code.
func (s *Service) LookupByCode(ctx context.Context, code string) (*PatientSummary, error) {
	p, err := s.patients.GetPatientByCode(ctx, code)
	if errors.Is(err, identity.ErrPatientNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return summarize(p), nil
}

// LookupByPhone lists patients registered under a phone number; families
// often share one.
func (s *Service) LookupByPhone(ctx context.Context, phone string) ([]*PatientSummary, error) {
	found, err := s.patients.FindPatientsByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	out := make([]*PatientSummary, 0, len(found))
	for _, p := range found {
		out = append(out, summarize(p))
	}
	return out, nil
}

// WalkInRequest registers a patient at the kiosk with the minimum fields.
type WalkInRequest struct {
	FullName    string  `json:"full_name"`
	Phone       string  `json:"phone"`
	Gender      *string `json:"gender,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
}

// RegisterWalkIn creates a minimal patient record from kiosk input.
func (s *Service) RegisterWalkIn(ctx context.Context, req WalkInRequest) (*PatientSummary, error) {
	p := &identity.Patient{
		FullName: req.FullName,
		Phone:    req.Phone,
		Gender:   req.Gender,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("invalid date_of_birth: want YYYY-MM-DD")
		}
		p.DateOfBirth = &dob
	}
	if err := s.patients.RegisterPatient(ctx, p); err != nil {
		return nil, err
	}
	return summarize(p), nil
}

// BookRequest is a kiosk booking submission.
type BookRequest struct {
	PatientCode string              `json:"patient_code"`
	DoctorID    uuid.UUID           `json:"doctor_id"`
	Date        time.Time           `json:"date"`
	Slot        scheduling.TimeSlot `json:"slot"`
	Reason      *string             `json:"reason,omitempty"`
}

// Book admits a kiosk booking through the conflict evaluator. The decision
// comes back alongside scheduling.ErrBookingRejected on a refusal, exactly
// as staff bookings do.
func (s *Service) Book(ctx context.Context, req BookRequest) (*scheduling.Appointment, *scheduling.Decision, error) {
	patient, err := s.patients.GetPatientByCode(ctx, req.PatientCode)
	if errors.Is(err, identity.ErrPatientNotFound) {
		return nil, nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return s.booking.CreateAppointment(ctx, scheduling.CreateAppointmentRequest{
		PatientID: &patient.ID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		Slot:      req.Slot,
		Source:    scheduling.SourceKiosk,
		Reason:    req.Reason,
	})
}

// checkInWindow is how far ahead of the slot a kiosk check-in is accepted.
const checkInWindow = 60 * time.Minute

// CheckIn checks a patient in by their appointment code. Accepted from one
// hour before the slot start onward.
func (s *Service) CheckIn(ctx context.Context, code string, now time.Time) (*scheduling.Appointment, error) {
	appt, err := s.booking.GetAppointmentByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	slotStart := appt.Slot.Start.AtDate(appt.Date)
	if now.Before(slotStart.Add(-checkInWindow)) {
		return nil, fmt.Errorf("%w: check-in opens at %s", ErrTooEarly, slotStart.Add(-checkInWindow).Format("15:04"))
	}
	return s.booking.CheckIn(ctx, appt.ID)
}
