package examination

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Examination) error
	GetByID(ctx context.Context, id uuid.UUID) (*Examination, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Examination, error)
	Update(ctx context.Context, e *Examination) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Examination, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Examination, int, error)
}

// VisitRef is the appointment view the examination flow needs.
type VisitRef struct {
	ID        uuid.UUID
	PatientID *uuid.UUID
	DoctorID  uuid.UUID
	Status    string
}

// AppointmentGateway connects examinations to the scheduling domain without
// importing it. Completing an examination completes its appointment through
// this gateway.
type AppointmentGateway interface {
	Lookup(ctx context.Context, id uuid.UUID) (*VisitRef, error)
	Complete(ctx context.Context, id uuid.UUID) error
}

// TxRunner runs fn inside one database transaction. Repositories pick the
// transaction up from the context.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
