package examination

import (
	"time"

	"github.com/google/uuid"
)

// Examination statuses.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Prescription is one prescribed medicine line within an examination.
type Prescription struct {
	Medicine     string `json:"medicine"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	DurationDays int    `json:"duration_days"`
	Instructions string `json:"instructions,omitempty"`
}

// Vitals are the measurements taken at the start of an examination.
type Vitals struct {
	TemperatureC  *float64 `json:"temperature_c,omitempty"`
	BloodPressure *string  `json:"blood_pressure,omitempty"`
	HeartRateBPM  *int     `json:"heart_rate_bpm,omitempty"`
	WeightKG      *float64 `json:"weight_kg,omitempty"`
	HeightCM      *float64 `json:"height_cm,omitempty"`
}

// Examination is the clinical record produced during one appointment.
// Prescriptions and vitals are owned by the record and stored inline.
type Examination struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	PatientID     *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	DoctorID      uuid.UUID  `db:"doctor_id" json:"doctor_id"`

	Symptoms      []string       `db:"symptoms" json:"symptoms,omitempty"`
	Diagnosis     *string        `db:"diagnosis" json:"diagnosis,omitempty"`
	Prescriptions []Prescription `db:"prescriptions" json:"prescriptions,omitempty"`
	Vitals        *Vitals        `db:"vitals" json:"vitals,omitempty"`
	Notes         *string        `db:"notes" json:"notes,omitempty"`

	Status      string     `db:"status" json:"status"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
