package session

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists sessions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const sessionCols = `id, public_id, course_name, title, session_type, location, start_time, duration_minutes, active, created_by, created_at`

// Insert writes a new session. The unique index on public_id is the
// arbiter for id collisions.
func (r *Repository) Insert(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, s.ID, s.PublicID, s.CourseName, s.Title, s.SessionType, s.Location,
		s.StartTime, s.DurationMinutes, s.Active, s.CreatedBy, s.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicatePublicID
	}
	return err
}

// FindByPublicID returns the session with the given public id.
func (r *Repository) FindByPublicID(ctx context.Context, publicID string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionCols+` FROM sessions WHERE public_id = $1
	`, publicID)
	return scanSession(row)
}

// FindByID returns the session with the given internal id.
func (r *Repository) FindByID(ctx context.Context, id string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionCols+` FROM sessions WHERE id = $1
	`, id)
	return scanSession(row)
}

// ListRecent returns the newest sessions by creation time.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionCols+` FROM sessions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// ListActive returns sessions still flagged active, newest start first.
func (r *Repository) ListActive(ctx context.Context) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionCols+` FROM sessions
		WHERE active = TRUE
		ORDER BY start_time DESC
	`)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// Deactivate flips active off. The unconditional update makes repeat
// terminations a no-op success.
func (r *Repository) Deactivate(ctx context.Context, publicID string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE sessions SET active = FALSE
		WHERE public_id = $1
		RETURNING `+sessionCols+`
	`, publicID)
	return scanSession(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.PublicID, &s.CourseName, &s.Title, &s.SessionType,
		&s.Location, &s.StartTime, &s.DurationMinutes, &s.Active, &s.CreatedBy, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

func collectSessions(rows *sql.Rows) ([]Session, error) {
	defer rows.Close()
	var res []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
