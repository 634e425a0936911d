package session

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// defaultRecentLimit bounds ListRecent when the caller passes no limit.
const defaultRecentLimit = 10

// Store is the persistence capability the registry runs on. Insert
// must enforce public id uniqueness and return ErrDuplicatePublicID on
// collision; Deactivate must be a no-op success on an already-inactive
// session.
type Store interface {
	Insert(ctx context.Context, s Session) error
	FindByPublicID(ctx context.Context, publicID string) (Session, error)
	FindByID(ctx context.Context, id string) (Session, error)
	ListRecent(ctx context.Context, limit int) ([]Session, error)
	ListActive(ctx context.Context) ([]Session, error)
	Deactivate(ctx context.Context, publicID string) (Session, error)
}

// Registry owns the session lifecycle: creation, lookup and the single
// active→inactive transition.
type Registry struct {
	store Store

	// Now is the registry's clock; tests override it.
	Now func() time.Time
}

// NewRegistry creates a registry backed by the given store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store, Now: time.Now}
}

// Create validates the spec and persists a new active session.
func (r *Registry) Create(ctx context.Context, spec CreateSpec) (Session, error) {
	if spec.CourseName == "" {
		return Session{}, &ValidationError{Field: "courseName", Reason: "required"}
	}
	if spec.Title == "" {
		return Session{}, &ValidationError{Field: "sessionTitle", Reason: "required"}
	}
	if spec.SessionType == "" {
		return Session{}, &ValidationError{Field: "sessionType", Reason: "required"}
	}
	if spec.DurationMinutes <= 0 {
		return Session{}, &ValidationError{Field: "duration", Reason: "must be a positive number of minutes"}
	}
	if spec.StartTime.IsZero() {
		return Session{}, &ValidationError{Field: "startTime", Reason: "required"}
	}

	now := r.Now().UTC()
	publicID := spec.PublicID
	if publicID == "" {
		publicID = derivePublicID(spec.CourseName, now)
	}

	s := Session{
		ID:              uuid.NewString(),
		PublicID:        publicID,
		CourseName:      spec.CourseName,
		Title:           spec.Title,
		SessionType:     spec.SessionType,
		Location:        spec.Location,
		StartTime:       spec.StartTime,
		DurationMinutes: spec.DurationMinutes,
		Active:          true,
		CreatedBy:       spec.CreatedBy,
		CreatedAt:       now,
	}
	if err := r.store.Insert(ctx, s); err != nil {
		if err == ErrDuplicatePublicID {
			return Session{}, &ValidationError{Field: "sessionId", Reason: "already in use"}
		}
		return Session{}, err
	}
	return s, nil
}

// FindByPublicID returns the session for the QR-facing id.
func (r *Registry) FindByPublicID(ctx context.Context, publicID string) (Session, error) {
	return r.store.FindByPublicID(ctx, publicID)
}

// ListRecent returns up to limit sessions, newest created first.
func (r *Registry) ListRecent(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return r.store.ListRecent(ctx, limit)
}

// ListActive returns sessions still flagged active, newest start time
// first. Expiry is evaluated lazily on Validate, so a session past its
// window stays in this list until someone tries to join it.
func (r *Registry) ListActive(ctx context.Context) ([]Session, error) {
	return r.store.ListActive(ctx)
}

// Terminate ends a session. Ending an already-ended session is not an
// error; the session is returned unchanged.
func (r *Registry) Terminate(ctx context.Context, publicID string) (Session, error) {
	return r.store.Deactivate(ctx, publicID)
}

// Validate decides whether a check-in against the session would be
// accepted right now and returns a read-only copy of it. A session
// found past its window is terminated on the spot before the Expired
// failure is reported.
func (r *Registry) Validate(ctx context.Context, publicID string) (Session, error) {
	s, err := r.store.FindByPublicID(ctx, publicID)
	if err != nil {
		return Session{}, err
	}
	if !s.Active {
		return Session{}, ErrInactive
	}
	if r.Now().After(s.ExpiresAt()) {
		if _, err := r.store.Deactivate(ctx, publicID); err != nil {
			log.Printf("auto-terminate of expired session %s failed: %v", publicID, err)
		}
		return Session{}, ErrExpired
	}
	return s, nil
}
