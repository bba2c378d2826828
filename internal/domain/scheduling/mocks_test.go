package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockShiftRepo struct {
	mu     sync.Mutex
	shifts map[uuid.UUID]*ShiftRecord
}

func newMockShiftRepo() *mockShiftRepo {
	return &mockShiftRepo{shifts: map[uuid.UUID]*ShiftRecord{}}
}

func (m *mockShiftRepo) Create(ctx context.Context, s *ShiftRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	m.shifts[s.ID] = s
	return nil
}

func (m *mockShiftRepo) GetByID(ctx context.Context, id uuid.UUID) (*ShiftRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockShiftRepo) Update(ctx context.Context, s *ShiftRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[s.ID] = s
	return nil
}

func (m *mockShiftRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.shifts[id]; ok {
		s.IsActive = false
	}
	return nil
}

func (m *mockShiftRepo) FindActiveByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*ShiftRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := truncateToDay(date)
	for _, s := range m.shifts {
		if s.DoctorID == doctorID && s.Date.Equal(day) && s.Status == ShiftActive && s.IsActive {
			return s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockShiftRepo) FindLiveByDoctorDateCategory(ctx context.Context, doctorID uuid.UUID, date time.Time, category string) (*ShiftRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := truncateToDay(date)
	for _, s := range m.shifts {
		if s.DoctorID == doctorID && s.Date.Equal(day) && s.Category == category && s.IsActive {
			return s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockShiftRepo) ListActiveByDate(ctx context.Context, date time.Time, department string) ([]*ShiftRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := truncateToDay(date)
	var out []*ShiftRecord
	for _, s := range m.shifts {
		if !s.Date.Equal(day) || s.Status != ShiftActive || !s.IsActive {
			continue
		}
		if department != "" && s.Department != department {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockShiftRepo) ListByDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*ShiftRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ShiftRecord
	for _, s := range m.shifts {
		if s.DoctorID == doctorID && s.IsActive && !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockShiftRepo) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*ShiftRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ShiftRecord
	for _, s := range m.shifts {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (m *mockShiftRepo) Stats(ctx context.Context, from, to time.Time) (*ShiftStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &ShiftStats{
		ByStatus: map[string]int{}, ByCategory: map[string]int{}, ByDepartment: map[string]int{},
		From: truncateToDay(from), To: truncateToDay(to),
	}
	doctors := map[uuid.UUID]bool{}
	for _, s := range m.shifts {
		if !s.IsActive || s.Date.Before(stats.From) || s.Date.After(stats.To) {
			continue
		}
		stats.Total++
		stats.ByStatus[s.Status]++
		stats.ByCategory[s.Category]++
		stats.ByDepartment[s.Department]++
		doctors[s.DoctorID] = true
	}
	stats.DistinctDocs = len(doctors)
	return stats, nil
}

type mockApptRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{appts: map[uuid.UUID]*Appointment{}}
}

func (m *mockApptRepo) Create(ctx context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *mockApptRepo) GetByCode(ctx context.Context, code string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.Code == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockApptRepo) Update(ctx context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) CountLiveForSlot(ctx context.Context, shiftID uuid.UUID, date time.Time, slotStart TimeOfDay, exclude *uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := truncateToDay(date)
	n := 0
	for _, a := range m.appts {
		if a.ShiftID == nil || *a.ShiftID != shiftID {
			continue
		}
		if !a.Date.Equal(day) || a.Slot.Start != slotStart || !a.IsLive() {
			continue
		}
		if exclude != nil && a.ID == *exclude {
			continue
		}
		n++
	}
	return n, nil
}

func (m *mockApptRepo) HasLiveForShift(ctx context.Context, shiftID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.ShiftID != nil && *a.ShiftID == shiftID && a.IsLive() {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockApptRepo) CountForDate(ctx context.Context, day time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := truncateToDay(day)
	n := 0
	for _, a := range m.appts {
		if a.Date.Equal(d) {
			n++
		}
	}
	return n, nil
}

func (m *mockApptRepo) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.appts {
		cp := *a
		out = append(out, &cp)
	}
	return out, len(out), nil
}

type mockDirectory struct {
	doctors map[uuid.UUID]*DoctorProfile
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{doctors: map[uuid.UUID]*DoctorProfile{}}
}

func (m *mockDirectory) add(name, department, specialization string, experience int) uuid.UUID {
	id := uuid.New()
	m.doctors[id] = &DoctorProfile{
		ID: id, FullName: name, Department: department,
		Specialization: specialization, ExperienceYears: experience,
	}
	return id
}

func (m *mockDirectory) GetDoctor(ctx context.Context, id uuid.UUID) (*DoctorProfile, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return d, nil
}

func (m *mockDirectory) ListDoctors(ctx context.Context, department, specialization string) ([]*DoctorProfile, error) {
	var out []*DoctorProfile
	for _, d := range m.doctors {
		if department != "" && d.Department != department {
			continue
		}
		if specialization != "" && d.Specialization != specialization {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
