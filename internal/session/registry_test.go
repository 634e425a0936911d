package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestRegistry(now time.Time) (*Registry, *MemStore) {
	store := NewMemStore()
	r := NewRegistry(store)
	r.Now = func() time.Time { return now }
	return r, store
}

func lecture(publicID string) CreateSpec {
	return CreateSpec{
		PublicID:        publicID,
		CourseName:      "CS101",
		Title:           "Intro",
		SessionType:     "Lecture",
		Location:        "Room 2",
		StartTime:       base,
		DurationMinutes: 60,
		CreatedBy:       "lect-1",
	}
}

func TestCreateRoundTrip(t *testing.T) {
	r, _ := newTestRegistry(base)
	ctx := context.Background()

	created, err := r.Create(ctx, lecture("CS101-1000"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("internal id not assigned")
	}
	if !created.Active {
		t.Error("new session should be active")
	}
	if !created.CreatedAt.Equal(base) {
		t.Errorf("createdAt = %v, want %v", created.CreatedAt, base)
	}

	found, err := r.FindByPublicID(ctx, "CS101-1000")
	if err != nil {
		t.Fatalf("FindByPublicID: %v", err)
	}
	if found != created {
		t.Errorf("round trip mismatch: got %+v, want %+v", found, created)
	}
}

func TestCreateValidation(t *testing.T) {
	r, _ := newTestRegistry(base)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateSpec)
		field  string
	}{
		{"empty course", func(s *CreateSpec) { s.CourseName = "" }, "courseName"},
		{"empty title", func(s *CreateSpec) { s.Title = "" }, "sessionTitle"},
		{"empty type", func(s *CreateSpec) { s.SessionType = "" }, "sessionType"},
		{"zero duration", func(s *CreateSpec) { s.DurationMinutes = 0 }, "duration"},
		{"negative duration", func(s *CreateSpec) { s.DurationMinutes = -5 }, "duration"},
		{"zero start", func(s *CreateSpec) { s.StartTime = time.Time{} }, "startTime"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := lecture("CS101-x")
			tt.mutate(&spec)
			_, err := r.Create(ctx, spec)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestCreateDuplicatePublicID(t *testing.T) {
	r, _ := newTestRegistry(base)
	ctx := context.Background()

	if _, err := r.Create(ctx, lecture("CS101-1000")); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := r.Create(ctx, lecture("CS101-1000"))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if vErr.Field != "sessionId" {
		t.Errorf("field = %q, want sessionId", vErr.Field)
	}
}

func TestCreateDerivesPublicID(t *testing.T) {
	r, _ := newTestRegistry(base)

	spec := lecture("")
	spec.CourseName = "intro to go"
	created, err := r.Create(context.Background(), spec)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := "INTROTOGO-" + "1741597200000"
	if created.PublicID != want {
		t.Errorf("derived id = %q, want %q", created.PublicID, want)
	}
	if !strings.HasPrefix(created.PublicID, "INTROTOGO-") {
		t.Errorf("derived id %q should carry the course prefix", created.PublicID)
	}
}

func TestFindUnknownSession(t *testing.T) {
	r, _ := newTestRegistry(base)
	if _, err := r.FindByPublicID(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTerminateIdempotent(t *testing.T) {
	r, _ := newTestRegistry(base)
	ctx := context.Background()
	if _, err := r.Create(ctx, lecture("CS101-1000")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := r.Terminate(ctx, "CS101-1000")
	if err != nil {
		t.Fatalf("first Terminate: %v", err)
	}
	if first.Active {
		t.Error("session should be inactive after terminate")
	}

	second, err := r.Terminate(ctx, "CS101-1000")
	if err != nil {
		t.Fatalf("second Terminate should not error, got %v", err)
	}
	if second != first {
		t.Errorf("second terminate changed the session: %+v vs %+v", second, first)
	}

	if _, err := r.Terminate(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("terminate unknown: err = %v, want ErrNotFound", err)
	}
}

func TestValidateLifecycle(t *testing.T) {
	r, _ := newTestRegistry(base)
	ctx := context.Background()
	if _, err := r.Create(ctx, lecture("CS101-1000")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := r.Validate(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown: err = %v, want ErrNotFound", err)
	}

	s, err := r.Validate(ctx, "CS101-1000")
	if err != nil {
		t.Fatalf("Validate within window: %v", err)
	}
	if !s.Active {
		t.Error("snapshot should show the session active")
	}

	if _, err := r.Terminate(ctx, "CS101-1000"); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if _, err := r.Validate(ctx, "CS101-1000"); !errors.Is(err, ErrInactive) {
		t.Errorf("ended: err = %v, want ErrInactive", err)
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	r, _ := newTestRegistry(base)
	ctx := context.Background()
	if _, err := r.Create(ctx, lecture("CS101-1000")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Exactly at start+duration is still joinable.
	r.Now = func() time.Time { return base.Add(60 * time.Minute) }
	if _, err := r.Validate(ctx, "CS101-1000"); err != nil {
		t.Fatalf("Validate at boundary: %v", err)
	}

	r.Now = func() time.Time { return base.Add(60*time.Minute + time.Second) }
	if _, err := r.Validate(ctx, "CS101-1000"); !errors.Is(err, ErrExpired) {
		t.Fatal("expected ErrExpired past the boundary")
	}

	// Expiry auto-terminated the session, so the next attempt reports
	// Inactive rather than Expired.
	found, err := r.FindByPublicID(ctx, "CS101-1000")
	if err != nil {
		t.Fatalf("FindByPublicID: %v", err)
	}
	if found.Active {
		t.Error("expired session should have been auto-terminated")
	}
	if _, err := r.Validate(ctx, "CS101-1000"); !errors.Is(err, ErrInactive) {
		t.Errorf("after auto-terminate: err = %v, want ErrInactive", err)
	}
}

func TestListActiveIsLazyAboutExpiry(t *testing.T) {
	r, _ := newTestRegistry(base)
	ctx := context.Background()
	if _, err := r.Create(ctx, lecture("CS101-1000")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Nobody has touched the session since it expired, so it still
	// lists as active. That staleness is contractual.
	r.Now = func() time.Time { return base.Add(2 * time.Hour) }
	active, err := r.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active = %d sessions, want the untouched expired one", len(active))
	}

	if _, err := r.Validate(ctx, "CS101-1000"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	active, err = r.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active = %d sessions after validation touched it, want 0", len(active))
	}
}

func TestListRecentOrderAndLimit(t *testing.T) {
	r, _ := newTestRegistry(base)
	ctx := context.Background()

	for i, id := range []string{"A-1", "B-1", "C-1"} {
		created := base.Add(time.Duration(i) * time.Minute)
		r.Now = func() time.Time { return created }
		spec := lecture(id)
		if _, err := r.Create(ctx, spec); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	recent, err := r.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].PublicID != "C-1" || recent[1].PublicID != "B-1" {
		t.Errorf("order = %s, %s; want C-1, B-1", recent[0].PublicID, recent[1].PublicID)
	}
}

func TestListActiveOrder(t *testing.T) {
	r, _ := newTestRegistry(base)
	ctx := context.Background()

	for i, id := range []string{"A-1", "B-1", "C-1"} {
		spec := lecture(id)
		spec.StartTime = base.Add(time.Duration(i) * time.Hour)
		if _, err := r.Create(ctx, spec); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
	if _, err := r.Terminate(ctx, "B-1"); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	active, err := r.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("len = %d, want 2", len(active))
	}
	if active[0].PublicID != "C-1" || active[1].PublicID != "A-1" {
		t.Errorf("order = %s, %s; want C-1, A-1", active[0].PublicID, active[1].PublicID)
	}
}

func TestJoinable(t *testing.T) {
	s := Session{Active: true, StartTime: base, DurationMinutes: 30}

	if !s.Joinable(base.Add(10 * time.Minute)) {
		t.Error("mid-window should be joinable")
	}
	if !s.Joinable(base.Add(30 * time.Minute)) {
		t.Error("boundary instant should be joinable")
	}
	if s.Joinable(base.Add(30*time.Minute + time.Nanosecond)) {
		t.Error("past the boundary should not be joinable")
	}
	s.Active = false
	if s.Joinable(base.Add(10 * time.Minute)) {
		t.Error("inactive session should never be joinable")
	}
}
