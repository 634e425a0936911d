package attendance

import (
	"errors"
	"fmt"
	"time"
)

// Record is a student's attendance submission against a session.
// Records are written once and never mutated.
type Record struct {
	ID            string    `json:"id"`
	SessionRef    string    `json:"sessionRef"`
	StudentID     string    `json:"studentId"`
	StudentName   string    `json:"studentName"`
	StudentEmail  string    `json:"studentEmail,omitempty"`
	CheckinTime   time.Time `json:"checkinTime"`
	OriginAddress string    `json:"originAddress,omitempty"`
}

// ErrDuplicate is the store's signal that the (session, student) pair
// already has a record. The coordinator turns it into a
// DuplicateError with the original check-in time attached.
var ErrDuplicate = errors.New("attendance already recorded")

// DuplicateError tells the student they are already checked in. It is
// an informational conflict, not a rejection of intent; CheckinTime is
// the moment the original record was made.
type DuplicateError struct {
	CheckinTime time.Time
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("already checked in at %s", e.CheckinTime.Format(time.RFC3339))
}
