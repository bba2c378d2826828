package examination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound        = errors.New("examination not found")
	ErrAlreadyExists   = errors.New("examination already exists for appointment")
	ErrAlreadyComplete = errors.New("examination already completed")
	ErrVisitNotReady   = errors.New("appointment is not in progress")
)

type Service struct {
	repo   Repository
	visits AppointmentGateway
	tx     TxRunner
}

func NewService(repo Repository, visits AppointmentGateway, tx TxRunner) *Service {
	return &Service{repo: repo, visits: visits, tx: tx}
}

// Begin opens an examination record for an in-progress appointment. One
// examination per appointment.
func (s *Service) Begin(ctx context.Context, appointmentID uuid.UUID, vitals *Vitals) (*Examination, error) {
	visit, err := s.visits.Lookup(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if visit.Status != "in_progress" {
		return nil, fmt.Errorf("%w: status is %s", ErrVisitNotReady, visit.Status)
	}

	if _, err := s.repo.GetByAppointment(ctx, appointmentID); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	exam := &Examination{
		AppointmentID: appointmentID,
		PatientID:     visit.PatientID,
		DoctorID:      visit.DoctorID,
		Vitals:        vitals,
		Status:        StatusInProgress,
		StartedAt:     time.Now(),
	}
	return exam, s.repo.Create(ctx, exam)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Examination, error) {
	exam, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return exam, err
}

func (s *Service) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Examination, error) {
	exam, err := s.repo.GetByAppointment(ctx, appointmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return exam, err
}

// UpdateFindings records symptoms, diagnosis, prescriptions and notes on an
// open examination.
func (s *Service) UpdateFindings(ctx context.Context, id uuid.UUID, update *Examination) (*Examination, error) {
	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if exam.Status == StatusCompleted {
		return nil, ErrAlreadyComplete
	}
	if update.Symptoms != nil {
		exam.Symptoms = update.Symptoms
	}
	if update.Diagnosis != nil {
		exam.Diagnosis = update.Diagnosis
	}
	if update.Prescriptions != nil {
		exam.Prescriptions = update.Prescriptions
	}
	if update.Vitals != nil {
		exam.Vitals = update.Vitals
	}
	if update.Notes != nil {
		exam.Notes = update.Notes
	}
	return exam, s.repo.Update(ctx, exam)
}

// Complete closes the examination and completes the appointment behind it.
// A diagnosis is required before closing.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Examination, error) {
	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if exam.Status == StatusCompleted {
		return nil, ErrAlreadyComplete
	}
	if exam.Diagnosis == nil || *exam.Diagnosis == "" {
		return nil, fmt.Errorf("diagnosis is required to complete an examination")
	}

	now := time.Now()
	exam.Status = StatusCompleted
	exam.CompletedAt = &now

	// Close the record and the appointment together.
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, exam); err != nil {
			return err
		}
		if err := s.visits.Complete(ctx, exam.AppointmentID); err != nil {
			return fmt.Errorf("completing appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return exam, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Examination, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Examination, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}
