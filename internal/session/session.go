package session

import (
	"strconv"
	"strings"
	"time"
)

// Session is a time-boxed attendance-taking window opened by a lecturer.
type Session struct {
	ID              string    `json:"id"`
	PublicID        string    `json:"sessionId"`
	CourseName      string    `json:"courseName"`
	Title           string    `json:"sessionTitle"`
	SessionType     string    `json:"sessionType"`
	Location        string    `json:"location,omitempty"`
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int       `json:"duration"`
	Active          bool      `json:"isActive"`
	CreatedBy       string    `json:"createdBy"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ExpiresAt returns the end of the session's join window.
func (s Session) ExpiresAt() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Joinable reports whether a check-in at the given instant would be
// accepted. The boundary is inclusive: a check-in exactly at expiry
// still counts.
func (s Session) Joinable(now time.Time) bool {
	return s.Active && !now.After(s.ExpiresAt())
}

// CreateSpec carries the lecturer-supplied fields for a new session.
// PublicID is optional; when empty one is derived from the course name.
type CreateSpec struct {
	PublicID        string
	CourseName      string
	Title           string
	SessionType     string
	Location        string
	StartTime       time.Time
	DurationMinutes int
	CreatedBy       string
}

// derivePublicID builds the QR-facing identifier the same way the
// lecturer UI does: course name upper-cased with spaces stripped,
// suffixed with unix millis, e.g. "CS101-1717171717171".
func derivePublicID(courseName string, now time.Time) string {
	course := strings.ToUpper(strings.Join(strings.Fields(courseName), ""))
	return course + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}
