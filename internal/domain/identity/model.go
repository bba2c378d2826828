package identity

import (
	"time"

	"github.com/google/uuid"
)

// User is a staff account: administrators, receptionists, nurses and doctors.
// Doctor-specific fields are populated only when Role is RoleDoctor.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Role         string    `db:"role" json:"role"`

	LicenseNumber   *string  `db:"license_number" json:"license_number,omitempty"`
	Department      *string  `db:"department" json:"department,omitempty"`
	Specialization  *string  `db:"specialization" json:"specialization,omitempty"`
	ExperienceYears *int     `db:"experience_years" json:"experience_years,omitempty"`
	Education       *string  `db:"education" json:"education,omitempty"`
	Bio             *string  `db:"bio" json:"bio,omitempty"`
	ConsultationFee *float64 `db:"consultation_fee" json:"consultation_fee,omitempty"`
	Accepting       *bool    `db:"accepting" json:"accepting,omitempty"`

	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Staff roles.
const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RoleNurse        = "nurse"
	RoleReceptionist = "receptionist"
)

// IsDoctor reports whether the account is a doctor profile.
func (u *User) IsDoctor() bool { return u.Role == RoleDoctor }

// Patient is a registered patient record.
type Patient struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientCode     string     `db:"patient_code" json:"patient_code"`
	FullName        string     `db:"full_name" json:"full_name"`
	DateOfBirth     *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender          *string    `db:"gender" json:"gender,omitempty"`
	Phone           string     `db:"phone" json:"phone"`
	Email           *string    `db:"email" json:"email,omitempty"`
	Address         *string    `db:"address" json:"address,omitempty"`
	City            *string    `db:"city" json:"city,omitempty"`
	IDNumber        *string    `db:"id_number" json:"id_number,omitempty"`
	InsuranceNumber *string    `db:"insurance_number" json:"insurance_number,omitempty"`

	EmergencyName     *string `db:"emergency_name" json:"emergency_name,omitempty"`
	EmergencyPhone    *string `db:"emergency_phone" json:"emergency_phone,omitempty"`
	EmergencyRelation *string `db:"emergency_relation" json:"emergency_relation,omitempty"`

	Allergies       []string `db:"allergies" json:"allergies,omitempty"`
	ChronicDiseases []string `db:"chronic_diseases" json:"chronic_diseases,omitempty"`
	MedicalNotes    *string  `db:"medical_notes" json:"medical_notes,omitempty"`

	IsActive      bool       `db:"is_active" json:"is_active"`
	RegisteredBy  *uuid.UUID `db:"registered_by" json:"registered_by,omitempty"`
	LastVisitDate *time.Time `db:"last_visit_date" json:"last_visit_date,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

var validGenders = map[string]bool{"male": true, "female": true, "other": true}

var validRoles = map[string]bool{
	RoleAdmin: true, RoleDoctor: true, RoleNurse: true, RoleReceptionist: true,
}
