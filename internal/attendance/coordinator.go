package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/session"
)

// Store is the persistence capability the coordinator runs on. Insert
// must enforce uniqueness of (session ref, student id) and return
// ErrDuplicate on collision; that constraint, not an application-level
// existence check, is what serializes concurrent check-ins.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	Find(ctx context.Context, sessionRef, studentID string) (Record, error)
	ListBySession(ctx context.Context, sessionRef string) ([]Record, error)
}

// Coordinator records check-ins, enforcing at most one record per
// student per session.
type Coordinator struct {
	sessions *session.Registry
	store    Store

	// Now is the coordinator's clock; tests override it.
	Now func() time.Time
}

// NewCoordinator creates a coordinator on top of the session registry.
func NewCoordinator(sessions *session.Registry, store Store) *Coordinator {
	return &Coordinator{sessions: sessions, store: store, Now: time.Now}
}

// CheckInRequest carries a student's submission. SessionID is the
// public (QR-facing) session id; OriginAddress is captured server-side
// from the connection, never trusted from the body.
type CheckInRequest struct {
	SessionID     string
	StudentID     string
	StudentName   string
	StudentEmail  string
	OriginAddress string
}

// CheckIn validates the session and records attendance. Session
// failures (not found, inactive, expired) propagate unchanged. A
// second submission by the same student fails with a DuplicateError
// carrying the first record's check-in time.
func (c *Coordinator) CheckIn(ctx context.Context, req CheckInRequest) (Record, error) {
	if req.StudentID == "" {
		return Record{}, &session.ValidationError{Field: "studentId", Reason: "required"}
	}
	if req.StudentName == "" {
		return Record{}, &session.ValidationError{Field: "studentName", Reason: "required"}
	}

	sess, err := c.sessions.Validate(ctx, req.SessionID)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:            uuid.NewString(),
		SessionRef:    sess.ID,
		StudentID:     req.StudentID,
		StudentName:   req.StudentName,
		StudentEmail:  req.StudentEmail,
		CheckinTime:   c.Now().UTC(),
		OriginAddress: req.OriginAddress,
	}
	if err := c.store.Insert(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicate) {
			prior, ferr := c.store.Find(ctx, sess.ID, req.StudentID)
			if ferr != nil {
				return Record{}, ferr
			}
			return Record{}, &DuplicateError{CheckinTime: prior.CheckinTime}
		}
		return Record{}, err
	}
	return rec, nil
}

// ListForSession returns a session's records, newest check-in first.
// A session nobody joined yields an empty list, not an error; an
// unknown public id yields session.ErrNotFound.
func (c *Coordinator) ListForSession(ctx context.Context, publicSessionID string) ([]Record, error) {
	sess, err := c.sessions.FindByPublicID(ctx, publicSessionID)
	if err != nil {
		return nil, err
	}
	return c.store.ListBySession(ctx, sess.ID)
}
