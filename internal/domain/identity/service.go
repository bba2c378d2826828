package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinic/clinic/internal/platform/auth"
)

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
)

// TokenIssuer abstracts JWT signing so tests can stub it out.
type TokenIssuer interface {
	Issue(userID, role, fullName string) (string, time.Time, error)
}

type Service struct {
	users    UserRepository
	patients PatientRepository
	tokens   TokenIssuer
}

func NewService(users UserRepository, patients PatientRepository, tokens TokenIssuer) *Service {
	return &Service{users: users, patients: patients, tokens: tokens}
}

// -- Patients --

// RegisterPatient validates and stores a new patient record, assigning a
// patient code of the form BN<yyyymmdd><seq> based on same-day registrations.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if strings.TrimSpace(p.Phone) == "" {
		return fmt.Errorf("phone is required")
	}
	if p.Gender != nil && !validGenders[*p.Gender] {
		return fmt.Errorf("invalid gender: %s", *p.Gender)
	}

	now := time.Now()
	seq, err := s.patients.CountRegisteredOn(ctx, now)
	if err != nil {
		return fmt.Errorf("counting registrations: %w", err)
	}
	p.PatientCode = fmt.Sprintf("BN%s%03d", now.Format("20060102"), seq+1)
	p.IsActive = true
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

func (s *Service) GetPatientByCode(ctx context.Context, code string) (*Patient, error) {
	p, err := s.patients.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

func (s *Service) FindPatientsByPhone(ctx context.Context, phone string) ([]*Patient, error) {
	return s.patients.FindByPhone(ctx, strings.TrimSpace(phone))
}

func (s *Service) SearchPatients(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, params, limit, offset)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.Gender != nil && !validGenders[*p.Gender] {
		return fmt.Errorf("invalid gender: %s", *p.Gender)
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) DeactivatePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Deactivate(ctx, id)
}

// -- Staff --

func (s *Service) CreateUser(ctx context.Context, u *User, password string) error {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if u.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if !validRoles[u.Role] {
		return fmt.Errorf("invalid role: %s", u.Role)
	}
	if u.IsDoctor() && (u.LicenseNumber == nil || *u.LicenseNumber == "") {
		return fmt.Errorf("license_number is required for doctors")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.IsActive = true
	return s.users.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *Service) UpdateUser(ctx context.Context, u *User) error {
	return s.users.Update(ctx, u)
}

func (s *Service) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	return s.users.Deactivate(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, department, specialization string, limit, offset int) ([]*User, int, error) {
	return s.users.ListDoctors(ctx, department, specialization, limit, offset)
}

// LoginResult carries the issued token alongside the authenticated account.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Authenticate verifies credentials and issues a signed token.
// Credential failures always surface as ErrInvalidCredentials so callers
// cannot distinguish unknown usernames from wrong passwords.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	token, expiresAt, err := s.tokens.Issue(u.ID.String(), u.Role, u.FullName)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: u}, nil
}
