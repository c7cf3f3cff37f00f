package models

import (
	"time"

	"github.com/google/uuid"
)

// Poll represents one timed multiple-choice round. At most one poll is active
// (IsComplete == false) system-wide at any time.
type Poll struct {
	ID               uuid.UUID `json:"id"`
	Question         string    `json:"question"`
	Options          []string  `json:"options"`
	TimeLimitSeconds int       `json:"time_limit_seconds"`
	CreatedAt        time.Time `json:"created_at"`
	IsComplete       bool      `json:"is_complete"`
	// Answers maps participant id -> chosen option; the map key enforces
	// at-most-one-answer per participant.
	Answers map[uuid.UUID]string `json:"answers"`
	// Tally maps option -> count. Keys are exactly the poll's options and
	// the counts always sum to len(Answers). Display order follows the
	// Options slice.
	Tally map[string]int `json:"tally"`
}

// Snapshot returns a deep copy safe to hand to encoders and other goroutines.
func (p *Poll) Snapshot() *Poll {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Options = append([]string(nil), p.Options...)
	cp.Answers = make(map[uuid.UUID]string, len(p.Answers))
	for k, v := range p.Answers {
		cp.Answers[k] = v
	}
	cp.Tally = make(map[string]int, len(p.Tally))
	for k, v := range p.Tally {
		cp.Tally[k] = v
	}
	return &cp
}

// HistoryEntry is an immutable archived record of a completed poll.
type HistoryEntry struct {
	Poll           *Poll `json:"poll"`
	TotalResponses int   `json:"total_responses"`
}
