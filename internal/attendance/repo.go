package attendance

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists attendance records in Postgres. The unique
// index on (session_ref, student_id) is what makes concurrent
// check-ins for the same pair collapse to a single record.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordCols = `id, session_ref, student_id, student_name, student_email, checkin_time, origin_address`

// Insert writes a new record, mapping the unique-constraint violation
// to ErrDuplicate.
func (r *Repository) Insert(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (`+recordCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, rec.ID, rec.SessionRef, rec.StudentID, rec.StudentName, rec.StudentEmail,
		rec.CheckinTime, rec.OriginAddress)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Get returns a single record by id.
func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordCols+` FROM attendance_records WHERE id = $1
	`, id)
	return scanRecord(row)
}

// Find returns the record for a (session, student) pair.
func (r *Repository) Find(ctx context.Context, sessionRef, studentID string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordCols+` FROM attendance_records
		WHERE session_ref = $1 AND student_id = $2
	`, sessionRef, studentID)
	return scanRecord(row)
}

// ListBySession returns a session's records, newest check-in first.
func (r *Repository) ListBySession(ctx context.Context, sessionRef string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordCols+` FROM attendance_records
		WHERE session_ref = $1
		ORDER BY checkin_time DESC
	`, sessionRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.SessionRef, &rec.StudentID, &rec.StudentName,
		&rec.StudentEmail, &rec.CheckinTime, &rec.OriginAddress)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
