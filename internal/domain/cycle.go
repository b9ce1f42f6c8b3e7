package domain

import (
	"time"

	"github.com/google/uuid"
)

// Credential is a session credential scoped to a domain. A zero Expires
// means the credential never expires (session cookie).
type Credential struct {
	Name    string
	Value   string
	Domain  string
	Expires time.Time
}

// Expired reports whether the credential is unusable at the given time.
func (c Credential) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// CycleSummary captures the result of the most recent check cycle for
// the status endpoint and logs.
type CycleSummary struct {
	ID         uuid.UUID  `json:"cycle_id"`
	State      CycleState `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at,omitzero"`
	Found      int        `json:"found"`
	Downloaded int        `json:"downloaded"`
	Failed     int        `json:"failed"`
	Current    int        `json:"current,omitempty"`
	Error      string     `json:"error,omitempty"`
}
