package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinic/clinic/internal/platform/auth"
)

type mockPatientRepo struct {
	patients   map[uuid.UUID]*Patient
	byCode     map[string]*Patient
	countToday int
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: map[uuid.UUID]*Patient{}, byCode: map[string]*Patient{}}
}

func (m *mockPatientRepo) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	m.patients[p.ID] = p
	m.byCode[p.PatientCode] = p
	m.countToday++
	return nil
}

func (m *mockPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockPatientRepo) GetByCode(ctx context.Context, code string) (*Patient, error) {
	p, ok := m.byCode[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockPatientRepo) FindByPhone(ctx context.Context, phone string) ([]*Patient, error) {
	var out []*Patient
	for _, p := range m.patients {
		if p.Phone == phone {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPatientRepo) Update(ctx context.Context, p *Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	if p, ok := m.patients[id]; ok {
		p.IsActive = false
	}
	return nil
}

func (m *mockPatientRepo) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.patients {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockPatientRepo) CountRegisteredOn(ctx context.Context, day time.Time) (int, error) {
	return m.countToday, nil
}

func (m *mockPatientRepo) TouchLastVisit(ctx context.Context, id uuid.UUID, at time.Time) error {
	if p, ok := m.patients[id]; ok {
		p.LastVisitDate = &at
	}
	return nil
}

type mockUserRepo struct {
	users map[string]*User
}

func newMockUserRepo() *mockUserRepo { return &mockUserRepo{users: map[string]*User{}} }

func (m *mockUserRepo) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	m.users[u.Username] = u
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) Update(ctx context.Context, u *User) error { return nil }

func (m *mockUserRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	for _, u := range m.users {
		if u.ID == id {
			u.IsActive = false
		}
	}
	return nil
}

func (m *mockUserRepo) ListDoctors(ctx context.Context, department, specialization string, limit, offset int) ([]*User, int, error) {
	var out []*User
	for _, u := range m.users {
		if !u.IsDoctor() || !u.IsActive {
			continue
		}
		if department != "" && (u.Department == nil || *u.Department != department) {
			continue
		}
		if specialization != "" && (u.Specialization == nil || *u.Specialization != specialization) {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func newTestService() (*Service, *mockUserRepo, *mockPatientRepo) {
	users := newMockUserRepo()
	patients := newMockPatientRepo()
	issuer := auth.NewTokenIssuer("clinic-test", []byte("test-signing-key-0123456789abcdef"), time.Hour)
	return NewService(users, patients, issuer), users, patients
}

func TestRegisterPatientAssignsCode(t *testing.T) {
	svc, _, repo := newTestService()
	repo.countToday = 2

	p := &Patient{FullName: "Tran Van A", Phone: "0900000001"}
	if err := svc.RegisterPatient(context.Background(), p); err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}

	wantPrefix := "BN" + time.Now().Format("20060102")
	if !strings.HasPrefix(p.PatientCode, wantPrefix) {
		t.Errorf("code %q missing prefix %q", p.PatientCode, wantPrefix)
	}
	if !strings.HasSuffix(p.PatientCode, "003") {
		t.Errorf("code %q should end with sequence 003", p.PatientCode)
	}
	if !p.IsActive {
		t.Error("new patient should be active")
	}
}

func TestRegisterPatientValidation(t *testing.T) {
	svc, _, _ := newTestService()
	bad := "alien"
	cases := []struct {
		name string
		p    Patient
	}{
		{"missing name", Patient{Phone: "0900000001"}},
		{"missing phone", Patient{FullName: "Tran Van A"}},
		{"bad gender", Patient{FullName: "Tran Van A", Phone: "0900000001", Gender: &bad}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.RegisterPatient(context.Background(), &tc.p); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	svc, users, _ := newTestService()

	u := &User{Username: "reception1", FullName: "Le Thi B", Role: RoleReceptionist}
	if err := svc.CreateUser(context.Background(), u, "s3cret-pass"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	result, err := svc.Authenticate(context.Background(), "reception1", "s3cret-pass")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if result.Token == "" {
		t.Error("expected token")
	}
	if result.User.Username != "reception1" {
		t.Errorf("got user %q", result.User.Username)
	}

	if _, err := svc.Authenticate(context.Background(), "reception1", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody", "s3cret-pass"); err != ErrInvalidCredentials {
		t.Errorf("unknown user: got %v, want ErrInvalidCredentials", err)
	}

	users.users["reception1"].IsActive = false
	if _, err := svc.Authenticate(context.Background(), "reception1", "s3cret-pass"); err != ErrAccountDisabled {
		t.Errorf("disabled account: got %v, want ErrAccountDisabled", err)
	}
}

func TestCreateUserDoctorRequiresLicense(t *testing.T) {
	svc, _, _ := newTestService()
	u := &User{Username: "doc1", FullName: "Nguyen Van C", Role: RoleDoctor}
	if err := svc.CreateUser(context.Background(), u, "s3cret-pass"); err == nil {
		t.Fatal("expected error for doctor without license")
	}
	lic := "CCHN-12345"
	u.LicenseNumber = &lic
	if err := svc.CreateUser(context.Background(), u, "s3cret-pass"); err != nil {
		t.Fatalf("CreateUser with license: %v", err)
	}
	if u.PasswordHash == "" || u.PasswordHash == "s3cret-pass" {
		t.Error("password should be hashed")
	}
}

func TestGetPatientNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.GetPatient(context.Background(), uuid.New()); err != ErrPatientNotFound {
		t.Errorf("got %v, want ErrPatientNotFound", err)
	}
}
