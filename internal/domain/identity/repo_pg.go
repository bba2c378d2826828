package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userCols = `id, username, email, password_hash, full_name, phone, role,
	license_number, department, specialization, experience_years, education, bio,
	consultation_fee, accepting, is_active, created_at, updated_at`

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.Role,
		&u.LicenseNumber, &u.Department, &u.Specialization, &u.ExperienceYears, &u.Education, &u.Bio,
		&u.ConsultationFee, &u.Accepting, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO app_user (id, username, email, password_hash, full_name, phone, role,
			license_number, department, specialization, experience_years, education, bio,
			consultation_fee, accepting, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FullName, u.Phone, u.Role,
		u.LicenseNumber, u.Department, u.Specialization, u.ExperienceYears, u.Education, u.Bio,
		u.ConsultationFee, u.Accepting, u.IsActive)
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE id = $1`, id))
}

func (r *userRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE username = $1`, username))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE app_user SET email=$2, full_name=$3, phone=$4,
			license_number=$5, department=$6, specialization=$7, experience_years=$8,
			education=$9, bio=$10, consultation_fee=$11, accepting=$12, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Email, u.FullName, u.Phone,
		u.LicenseNumber, u.Department, u.Specialization, u.ExperienceYears,
		u.Education, u.Bio, u.ConsultationFee, u.Accepting)
	return err
}

func (r *userRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE app_user SET is_active=false, updated_at=NOW() WHERE id = $1`, id)
	return err
}

func (r *userRepoPG) ListDoctors(ctx context.Context, department, specialization string, limit, offset int) ([]*User, int, error) {
	query := `SELECT ` + userCols + ` FROM app_user WHERE role = 'doctor' AND is_active = true`
	countQuery := `SELECT COUNT(*) FROM app_user WHERE role = 'doctor' AND is_active = true`
	var args []interface{}
	idx := 1

	if department != "" {
		query += fmt.Sprintf(` AND department = $%d`, idx)
		countQuery += fmt.Sprintf(` AND department = $%d`, idx)
		args = append(args, department)
		idx++
	}
	if specialization != "" {
		query += fmt.Sprintf(` AND specialization = $%d`, idx)
		countQuery += fmt.Sprintf(` AND specialization = $%d`, idx)
		args = append(args, specialization)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY full_name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, nil
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, patient_code, full_name, date_of_birth, gender, phone, email,
	address, city, id_number, insurance_number,
	emergency_name, emergency_phone, emergency_relation,
	allergies, chronic_diseases, medical_notes,
	is_active, registered_by, last_visit_date, created_at, updated_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PatientCode, &p.FullName, &p.DateOfBirth, &p.Gender, &p.Phone, &p.Email,
		&p.Address, &p.City, &p.IDNumber, &p.InsuranceNumber,
		&p.EmergencyName, &p.EmergencyPhone, &p.EmergencyRelation,
		&p.Allergies, &p.ChronicDiseases, &p.MedicalNotes,
		&p.IsActive, &p.RegisteredBy, &p.LastVisitDate, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, patient_code, full_name, date_of_birth, gender, phone, email,
			address, city, id_number, insurance_number,
			emergency_name, emergency_phone, emergency_relation,
			allergies, chronic_diseases, medical_notes,
			is_active, registered_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		p.ID, p.PatientCode, p.FullName, p.DateOfBirth, p.Gender, p.Phone, p.Email,
		p.Address, p.City, p.IDNumber, p.InsuranceNumber,
		p.EmergencyName, p.EmergencyPhone, p.EmergencyRelation,
		p.Allergies, p.ChronicDiseases, p.MedicalNotes,
		p.IsActive, p.RegisteredBy)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByCode(ctx context.Context, code string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE patient_code = $1`, code))
}

func (r *patientRepoPG) FindByPhone(ctx context.Context, phone string) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient WHERE phone = $1 AND is_active = true ORDER BY created_at DESC`, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET full_name=$2, date_of_birth=$3, gender=$4, phone=$5, email=$6,
			address=$7, city=$8, id_number=$9, insurance_number=$10,
			emergency_name=$11, emergency_phone=$12, emergency_relation=$13,
			allergies=$14, chronic_diseases=$15, medical_notes=$16, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FullName, p.DateOfBirth, p.Gender, p.Phone, p.Email,
		p.Address, p.City, p.IDNumber, p.InsuranceNumber,
		p.EmergencyName, p.EmergencyPhone, p.EmergencyRelation,
		p.Allergies, p.ChronicDiseases, p.MedicalNotes)
	return err
}

func (r *patientRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE patient SET is_active=false, updated_at=NOW() WHERE id = $1`, id)
	return err
}

func (r *patientRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	query := `SELECT ` + patientCols + ` FROM patient WHERE is_active = true`
	countQuery := `SELECT COUNT(*) FROM patient WHERE is_active = true`
	var args []interface{}
	idx := 1

	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND full_name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND full_name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["phone"]; ok {
		query += fmt.Sprintf(` AND phone = $%d`, idx)
		countQuery += fmt.Sprintf(` AND phone = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["code"]; ok {
		query += fmt.Sprintf(` AND patient_code = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_code = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *patientRepoPG) CountRegisteredOn(ctx context.Context, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient WHERE created_at >= $1 AND created_at < $2`, start, end).Scan(&n)
	return n, err
}

func (r *patientRepoPG) TouchLastVisit(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE patient SET last_visit_date=$2, updated_at=NOW() WHERE id = $1`, id, at)
	return err
}
