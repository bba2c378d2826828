package examination

import (
	"context"

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const examCols = `id, appointment_id, patient_id, doctor_id, symptoms, diagnosis,
	prescriptions, vitals, notes, status, started_at, completed_at, created_at, updated_at`

func (r *repoPG) scanExam(row pgx.Row) (*Examination, error) {
	var e Examination
	err := row.Scan(&e.ID, &e.AppointmentID, &e.PatientID, &e.DoctorID, &e.Symptoms, &e.Diagnosis,
		&e.Prescriptions, &e.Vitals, &e.Notes, &e.Status, &e.StartedAt, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *repoPG) Create(ctx context.Context, e *Examination) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO examination (id, appointment_id, patient_id, doctor_id, symptoms,
			diagnosis, prescriptions, vitals, notes, status, started_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.AppointmentID, e.PatientID, e.DoctorID, e.Symptoms,
		e.Diagnosis, e.Prescriptions, e.Vitals, e.Notes, e.Status, e.StartedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Examination, error) {
	return r.scanExam(r.conn(ctx).QueryRow(ctx, `SELECT `+examCols+` FROM examination WHERE id = $1`, id))
}

func (r *repoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Examination, error) {
	return r.scanExam(r.conn(ctx).QueryRow(ctx,
		`SELECT `+examCols+` FROM examination WHERE appointment_id = $1`, appointmentID))
}

func (r *repoPG) Update(ctx context.Context, e *Examination) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE examination SET symptoms=$2, diagnosis=$3, prescriptions=$4, vitals=$5,
			notes=$6, status=$7, completed_at=$8, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.Symptoms, e.Diagnosis, e.Prescriptions, e.Vitals,
		e.Notes, e.Status, e.CompletedAt)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Examination, int, error) {
	return r.list(ctx, `patient_id`, patientID, limit, offset)
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Examination, int, error) {
	return r.list(ctx, `doctor_id`, doctorID, limit, offset)
}

func (r *repoPG) list(ctx context.Context, col string, id uuid.UUID, limit, offset int) ([]*Examination, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM examination WHERE `+col+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+examCols+` FROM examination WHERE `+col+` = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
		id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Examination
	for rows.Next() {
		e, err := r.scanExam(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
