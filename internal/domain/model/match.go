package model

import (
	"fmt"
	"time"
)

// MatchRecord is an immutable match outcome.
type MatchRecord struct {
	ID          string         `json:"id"`
	WeightClass string         `json:"weight_class"`
	Date        time.Time      `json:"date"`
	EntityA     string         `json:"entity_a"`
	EntityB     string         `json:"entity_b"`
	Winner      string         `json:"winner"`
	Result      ResultType     `json:"result"`
	Margin      *float64       `json:"margin,omitempty"`
	PinTime     *time.Duration `json:"pin_time,omitempty"`
	Raw         string         `json:"raw,omitempty"`
}

// Validate checks the record invariants. Failures wrap ErrMalformedRecord.
func (m MatchRecord) Validate() error {
	switch {
	case m.ID == "":
		return fmt.Errorf("%w: missing match id", ErrMalformedRecord)
	case m.WeightClass == "":
		return fmt.Errorf("%w: match %s has no weight class", ErrMalformedRecord, m.ID)
	case m.EntityA == "" || m.EntityB == "":
		return fmt.Errorf("%w: match %s is missing a participant", ErrMalformedRecord, m.ID)
	case m.EntityA == m.EntityB:
		return fmt.Errorf("%w: match %s pits %s against itself", ErrMalformedRecord, m.ID, m.EntityA)
	case m.Winner != m.EntityA && m.Winner != m.EntityB:
		return fmt.Errorf("%w: match %s winner %q is not a participant", ErrMalformedRecord, m.ID, m.Winner)
	case m.Result == ResultUnknown:
		return fmt.Errorf("%w: match %s has no result type", ErrMalformedRecord, m.ID)
	case m.Date.IsZero():
		return fmt.Errorf("%w: match %s has no date", ErrMalformedRecord, m.ID)
	}
	return nil
}

// Loser returns the participant that did not win.
func (m MatchRecord) Loser() string {
	if m.Winner == m.EntityA {
		return m.EntityB
	}
	return m.EntityA
}

// Involves reports whether id took part in the match.
func (m MatchRecord) Involves(id string) bool {
	return m.EntityA == id || m.EntityB == id
}

// Opponent returns the other participant from id's point of view.
func (m MatchRecord) Opponent(id string) string {
	if m.EntityA == id {
		return m.EntityB
	}
	return m.EntityA
}

// Won reports whether id won the match.
func (m MatchRecord) Won(id string) bool { return m.Winner == id }

// MatchStatus tracks whether a record has been folded into the graph.
//
//	Unprocessed --commit batch--> Processed
//	Processed   --reset-------->  Unprocessed
type MatchStatus int

const (
	StatusUnprocessed MatchStatus = iota
	StatusProcessed
)

func (s MatchStatus) String() string {
	if s == StatusProcessed {
		return "processed"
	}
	return "unprocessed"
}

// CanTransition reports whether moving from s to next is legal. Re-entering
// the same state is rejected so a match cannot be counted twice.
func (s MatchStatus) CanTransition(next MatchStatus) bool {
	return s != next
}

// StoredMatch pairs a record with its processing status.
type StoredMatch struct {
	Record MatchRecord
	Status MatchStatus
}
