package domain

import (
	"testing"
)

func TestAttemptsRemainingMatchesCount(t *testing.T) {
	t.Parallel()

	s := NewSession("sess-1")
	concepts := []string{"Correlation", "Measures of Dispersion"}

	for _, c := range concepts {
		if got := s.AttemptsRemaining(c); got != MaxAttempts {
			t.Fatalf("fresh concept %q: remaining = %d, want %d", c, got, MaxAttempts)
		}
	}

	for i := 0; i < 5; i++ {
		s.Advance("Correlation", false)
		count := s.AttemptCount("Correlation")
		remaining := s.AttemptsRemaining("Correlation")
		if remaining != MaxAttempts-count {
			t.Fatalf("remaining = %d, want %d", remaining, MaxAttempts-count)
		}
		if count < 0 || count > MaxAttempts {
			t.Fatalf("count out of range: %d", count)
		}
	}
}

func TestAdvanceHighConfidenceForcesTerminal(t *testing.T) {
	t.Parallel()

	s := NewSession("sess-1")
	got := s.Advance("Correlation", true)
	if got != MaxAttempts {
		t.Fatalf("high-confidence advance = %d, want %d", got, MaxAttempts)
	}
	if s.TrueAttempts[Key("Correlation")] != 1 {
		t.Fatalf("true attempts = %d, want 1", s.TrueAttempts[Key("Correlation")])
	}
}

func TestAdvanceCapsAtMax(t *testing.T) {
	t.Parallel()

	s := NewSession("sess-1")
	for i := 0; i < MaxAttempts+2; i++ {
		s.Advance("Univariate Analysis", false)
	}
	if got := s.AttemptCount("Univariate Analysis"); got != MaxAttempts {
		t.Fatalf("count = %d, want %d", got, MaxAttempts)
	}
	if got := s.TrueAttempts[Key("Univariate Analysis")]; got != MaxAttempts+2 {
		t.Fatalf("true attempts = %d, want %d", got, MaxAttempts+2)
	}
}

func TestResetConceptZeroesAnyPriorValue(t *testing.T) {
	t.Parallel()

	s := NewSession("sess-1")
	s.Advance("Correlation", true)
	s.ResetConcept("correlation")

	if got := s.AttemptCount("Correlation"); got != 0 {
		t.Fatalf("count after reset = %d, want 0", got)
	}
	if got := s.AttemptsRemaining("CORRELATION"); got != MaxAttempts {
		t.Fatalf("remaining after reset = %d, want %d", got, MaxAttempts)
	}
}

func TestConceptKeysAreCaseInsensitive(t *testing.T) {
	t.Parallel()

	s := NewSession("sess-1")
	s.Advance("Correlation", false)

	if got := s.AttemptCount("  correlation "); got != 1 {
		t.Fatalf("count via alternate casing = %d, want 1", got)
	}
}

func TestSetTrialClearsProgress(t *testing.T) {
	t.Parallel()

	s := NewSession("sess-1")
	if s.TrialType != TrialOne {
		t.Fatalf("new session trial = %q, want %q", s.TrialType, TrialOne)
	}

	s.Advance("Correlation", false)
	s.Advance("Correlation", false)
	s.RecordTurn("Correlation", "explanation", "feedback")

	s.SetTrial(TrialTwo)

	if s.TrialType != TrialTwo {
		t.Fatalf("trial = %q, want %q", s.TrialType, TrialTwo)
	}
	if got := s.AttemptCount("Correlation"); got != 0 {
		t.Fatalf("count after trial switch = %d, want 0", got)
	}
	if len(s.TrueAttempts) != 0 {
		t.Fatalf("true attempts not cleared: %v", s.TrueAttempts)
	}
	if len(s.History) != 0 {
		t.Fatalf("history not cleared: %v", s.History)
	}
}

func TestValidTrialAcceptsKnownPhasesOnly(t *testing.T) {
	t.Parallel()

	for _, phase := range []string{TrialOne, TrialTwo, TrialTest} {
		if !ValidTrial(phase) {
			t.Fatalf("phase %q rejected", phase)
		}
	}
	for _, phase := range []string{"", "trial_1", "Trial_3", "test"} {
		if ValidTrial(phase) {
			t.Fatalf("phase %q accepted", phase)
		}
	}
}

func TestRecordTurnBoundsHistory(t *testing.T) {
	t.Parallel()

	s := NewSession("sess-1")
	for i := 0; i < 12; i++ {
		s.RecordTurn("Correlation", "explanation", "feedback")
	}

	h := s.History[Key("Correlation")]
	if len(h) != HistoryLimit {
		t.Fatalf("history length = %d, want %d", len(h), HistoryLimit)
	}

	recent := s.RecentHistory("Correlation", 6)
	if len(recent) != 6 {
		t.Fatalf("recent history length = %d, want 6", len(recent))
	}
	if recent[len(recent)-1] != "AI: feedback" {
		t.Fatalf("unexpected last history line: %q", recent[len(recent)-1])
	}
}
