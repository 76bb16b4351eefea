package domain

import (
	"time"
)

const (
	// MaxAttempts is the number of self-explanation attempts per concept.
	MaxAttempts = 3
	// HistoryLimit bounds the stored conversation history per concept.
	HistoryLimit = 10
)

// Study phases. Each phase is an independent pass over the catalog.
const (
	TrialOne  = "Trial_1"
	TrialTwo  = "Trial_2"
	TrialTest = "Test"
)

// ValidTrial reports whether phase names a known study phase.
func ValidTrial(phase string) bool {
	switch phase {
	case TrialOne, TrialTwo, TrialTest:
		return true
	}
	return false
}

// Session holds all mutable tutoring state for one learner visit.
// Attempt counts and history are keyed by canonical concept name (see Key).
// Sessions are never shared across learners.
type Session struct {
	SessionID string `json:"session_id"`

	// TrialType is the current study phase. Switching phases clears all
	// per-concept progress.
	TrialType string `json:"trial_type"`

	// AttemptCounts maps concept key -> attempts used, in [0, MaxAttempts].
	// A high-confidence correct answer forces the count to MaxAttempts.
	AttemptCounts map[string]int `json:"attempt_counts"`

	// TrueAttempts maps concept key -> genuine scored submissions. Unlike
	// AttemptCounts it is never force-skipped, so analytics can recover the
	// real attempt number behind an early correct answer.
	TrueAttempts map[string]int `json:"true_attempts"`

	// History maps concept key -> the last HistoryLimit turns as
	// "User: ..." / "AI: ..." lines. Used only as prompt context.
	History map[string][]string `json:"history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an empty session.
func NewSession(sessionID string) *Session {
	now := time.Now()
	return &Session{
		SessionID:     sessionID,
		TrialType:     TrialOne,
		AttemptCounts: make(map[string]int),
		TrueAttempts:  make(map[string]int),
		History:       make(map[string][]string),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SetTrial switches the study phase and clears all per-concept progress so
// the new phase starts from a clean slate.
func (s *Session) SetTrial(phase string) {
	s.TrialType = phase
	s.AttemptCounts = make(map[string]int)
	s.TrueAttempts = make(map[string]int)
	s.History = make(map[string][]string)
	s.UpdatedAt = time.Now()
}

// AttemptCount returns the stored attempt count for a concept, 0 if unseen.
func (s *Session) AttemptCount(concept string) int {
	return s.AttemptCounts[Key(concept)]
}

// AttemptsRemaining returns how many attempts the learner has left.
func (s *Session) AttemptsRemaining(concept string) int {
	remaining := MaxAttempts - s.AttemptCount(concept)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetConcept zeroes the attempt counter for a concept. Called when the
// learner navigates onto a concept, including re-visits.
func (s *Session) ResetConcept(concept string) {
	key := Key(concept)
	s.AttemptCounts[key] = 0
	s.TrueAttempts[key] = 0
	s.UpdatedAt = time.Now()
}

// Advance records one scored learner attempt and returns the new count.
// A high-confidence match exhausts the concept in a single call. Callers
// must invoke Advance exactly once per scored learner turn.
func (s *Session) Advance(concept string, highConfidence bool) int {
	key := Key(concept)
	s.TrueAttempts[key]++

	if highConfidence {
		s.AttemptCounts[key] = MaxAttempts
	} else if s.AttemptCounts[key] < MaxAttempts {
		s.AttemptCounts[key]++
	}

	s.UpdatedAt = time.Now()
	return s.AttemptCounts[key]
}

// RecordTurn appends a learner/tutor exchange to the concept's history,
// dropping the oldest entries beyond HistoryLimit.
func (s *Session) RecordTurn(concept, userText, aiText string) {
	key := Key(concept)
	h := append(s.History[key], "User: "+userText, "AI: "+aiText)
	if len(h) > HistoryLimit {
		h = h[len(h)-HistoryLimit:]
	}
	s.History[key] = h
	s.UpdatedAt = time.Now()
}

// RecentHistory returns up to n of the most recent history lines for a concept.
func (s *Session) RecentHistory(concept string, n int) []string {
	h := s.History[Key(concept)]
	if n >= len(h) {
		return h
	}
	return h[len(h)-n:]
}
