package scheduling

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

// =========== Shift Repository ===========

type shiftRepoPG struct{ pool *pgxpool.Pool }

func NewShiftRepoPG(pool *pgxpool.Pool) ShiftRepository { return &shiftRepoPG{pool: pool} }

func (r *shiftRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const shiftCols = `id, doctor_id, department, shift_date, category, time_windows,
	status, is_active, notes, created_by, created_at, updated_at`

func (r *shiftRepoPG) scanShift(row pgx.Row) (*ShiftRecord, error) {
	var s ShiftRecord
	err := row.Scan(&s.ID, &s.DoctorID, &s.Department, &s.Date, &s.Category, &s.TimeWindows,
		&s.Status, &s.IsActive, &s.Notes, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *shiftRepoPG) Create(ctx context.Context, s *ShiftRecord) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO shift_record (id, doctor_id, department, shift_date, category,
			time_windows, status, is_active, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		s.ID, s.DoctorID, s.Department, truncateToDay(s.Date), s.Category,
		s.TimeWindows, s.Status, s.IsActive, s.Notes, s.CreatedBy)
	return err
}

func (r *shiftRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ShiftRecord, error) {
	return r.scanShift(r.conn(ctx).QueryRow(ctx, `SELECT `+shiftCols+` FROM shift_record WHERE id = $1`, id))
}

func (r *shiftRepoPG) Update(ctx context.Context, s *ShiftRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE shift_record SET department=$2, shift_date=$3, category=$4,
			time_windows=$5, status=$6, notes=$7, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Department, truncateToDay(s.Date), s.Category, s.TimeWindows, s.Status, s.Notes)
	return err
}

func (r *shiftRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE shift_record SET is_active=false, updated_at=NOW() WHERE id = $1`, id)
	return err
}

func (r *shiftRepoPG) FindActiveByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*ShiftRecord, error) {
	return r.scanShift(r.conn(ctx).QueryRow(ctx, `
		SELECT `+shiftCols+` FROM shift_record
		WHERE doctor_id = $1 AND shift_date = $2 AND status = 'active' AND is_active = true
		ORDER BY created_at ASC LIMIT 1`,
		doctorID, truncateToDay(date)))
}

func (r *shiftRepoPG) FindLiveByDoctorDateCategory(ctx context.Context, doctorID uuid.UUID, date time.Time, category string) (*ShiftRecord, error) {
	return r.scanShift(r.conn(ctx).QueryRow(ctx, `
		SELECT `+shiftCols+` FROM shift_record
		WHERE doctor_id = $1 AND shift_date = $2 AND category = $3 AND is_active = true
		LIMIT 1`,
		doctorID, truncateToDay(date), category))
}

func (r *shiftRepoPG) ListActiveByDate(ctx context.Context, date time.Time, department string) ([]*ShiftRecord, error) {
	query := `SELECT ` + shiftCols + ` FROM shift_record
		WHERE shift_date = $1 AND status = 'active' AND is_active = true`
	args := []interface{}{truncateToDay(date)}
	if department != "" {
		query += ` AND department = $2`
		args = append(args, department)
	}
	query += ` ORDER BY doctor_id, category`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *shiftRepoPG) ListByDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*ShiftRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+shiftCols+` FROM shift_record
		WHERE doctor_id = $1 AND shift_date >= $2 AND shift_date <= $3 AND is_active = true
		ORDER BY shift_date ASC, category ASC`,
		doctorID, truncateToDay(from), truncateToDay(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *shiftRepoPG) collect(rows pgx.Rows) ([]*ShiftRecord, error) {
	var items []*ShiftRecord
	for rows.Next() {
		s, err := r.scanShift(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *shiftRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*ShiftRecord, int, error) {
	query := `SELECT ` + shiftCols + ` FROM shift_record WHERE is_active = true`
	countQuery := `SELECT COUNT(*) FROM shift_record WHERE is_active = true`
	var args []interface{}
	idx := 1

	if p, ok := params["doctor_id"]; ok {
		query += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["department"]; ok {
		query += fmt.Sprintf(` AND department = $%d`, idx)
		countQuery += fmt.Sprintf(` AND department = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["status"]; ok {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["date"]; ok {
		query += fmt.Sprintf(` AND shift_date = $%d`, idx)
		countQuery += fmt.Sprintf(` AND shift_date = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY shift_date DESC, category ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *shiftRepoPG) Stats(ctx context.Context, from, to time.Time) (*ShiftStats, error) {
	stats := &ShiftStats{
		ByStatus:     map[string]int{},
		ByCategory:   map[string]int{},
		ByDepartment: map[string]int{},
		From:         truncateToDay(from),
		To:           truncateToDay(to),
	}

	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT doctor_id) FROM shift_record
		WHERE is_active = true AND shift_date >= $1 AND shift_date <= $2`,
		stats.From, stats.To).Scan(&stats.Total, &stats.DistinctDocs)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT status, category, department, COUNT(*) FROM shift_record
		WHERE is_active = true AND shift_date >= $1 AND shift_date <= $2
		GROUP BY status, category, department`,
		stats.From, stats.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status, category, department string
		var n int
		if err := rows.Scan(&status, &category, &department, &n); err != nil {
			return nil, err
		}
		stats.ByStatus[status] += n
		stats.ByCategory[category] += n
		stats.ByDepartment[department] += n
	}
	return stats, rows.Err()
}

// =========== Appointment Repository ===========

type apptRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository { return &apptRepoPG{pool: pool} }

func (r *apptRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `id, code, patient_id, doctor_id, shift_id, appt_date,
	slot_start, slot_end, slot_duration, status, appt_type, source, priority, reason,
	checked_in_at, checked_out_at, cancelled_at, cancelled_by, cancelled_reason,
	created_at, updated_at`

func (r *apptRepoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.Code, &a.PatientID, &a.DoctorID, &a.ShiftID, &a.Date,
		&a.Slot.Start, &a.Slot.End, &a.Slot.Duration, &a.Status, &a.Type, &a.Source, &a.Priority, &a.Reason,
		&a.CheckedInAt, &a.CheckedOutAt, &a.CancelledAt, &a.CancelledBy, &a.CancelledReason,
		&a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *apptRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, code, patient_id, doctor_id, shift_id, appt_date,
			slot_start, slot_end, slot_duration, status, appt_type, source, priority, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.Code, a.PatientID, a.DoctorID, a.ShiftID, truncateToDay(a.Date),
		int(a.Slot.Start), int(a.Slot.End), a.Slot.Duration, a.Status, a.Type, a.Source, a.Priority, a.Reason)
	return err
}

func (r *apptRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *apptRepoPG) GetByCode(ctx context.Context, code string) (*Appointment, error) {
	return r.scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE code = $1`, code))
}

func (r *apptRepoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET patient_id=$2, shift_id=$3, appt_date=$4,
			slot_start=$5, slot_end=$6, slot_duration=$7, status=$8, priority=$9, reason=$10,
			checked_in_at=$11, checked_out_at=$12,
			cancelled_at=$13, cancelled_by=$14, cancelled_reason=$15, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.PatientID, a.ShiftID, truncateToDay(a.Date),
		int(a.Slot.Start), int(a.Slot.End), a.Slot.Duration, a.Status, a.Priority, a.Reason,
		a.CheckedInAt, a.CheckedOutAt,
		a.CancelledAt, a.CancelledBy, a.CancelledReason)
	return err
}

func (r *apptRepoPG) CountLiveForSlot(ctx context.Context, shiftID uuid.UUID, date time.Time, slotStart TimeOfDay, exclude *uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM appointment
		WHERE shift_id = $1 AND appt_date = $2 AND slot_start = $3
		AND status = ANY($4)`
	args := []interface{}{shiftID, truncateToDay(date), int(slotStart), liveStatuses}
	if exclude != nil {
		query += ` AND id <> $5`
		args = append(args, *exclude)
	}
	var n int
	err := r.conn(ctx).QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

func (r *apptRepoPG) HasLiveForShift(ctx context.Context, shiftID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointment WHERE shift_id = $1 AND status = ANY($2))`,
		shiftID, liveStatuses).Scan(&exists)
	return exists, err
}

func (r *apptRepoPG) CountForDate(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE appt_date = $1`, truncateToDay(day)).Scan(&n)
	return n, err
}

func (r *apptRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + ` FROM appointment WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointment WHERE 1=1`
	var args []interface{}
	idx := 1

	for param, col := range map[string]string{
		"patient_id": "patient_id",
		"doctor_id":  "doctor_id",
		"status":     "status",
		"date":       "appt_date",
		"source":     "source",
	} {
		if p, ok := params[param]; ok {
			query += fmt.Sprintf(` AND %s = $%d`, col, idx)
			countQuery += fmt.Sprintf(` AND %s = $%d`, col, idx)
			args = append(args, p)
			idx++
		}
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY appt_date DESC, slot_start ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
