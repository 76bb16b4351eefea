// Package tutor implements the self-explanation tutoring loop: judging a
// learner's explanation, escalating feedback across attempts, and keeping
// the per-session attempt state consistent.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/selfexplain/internal/catalog"
	"github.com/ashureev/selfexplain/internal/domain"
	"github.com/ashureev/selfexplain/internal/judge"
	"github.com/ashureev/selfexplain/internal/store"
	"github.com/google/uuid"
)

// ErrInvalidTrial is returned when a phase name does not match a known
// study phase.
var ErrInvalidTrial = errors.New("invalid trial phase")

// Evaluator scores a learner explanation against a reference answer.
type Evaluator interface {
	Evaluate(ctx context.Context, explanation, reference string) judge.Result
}

// Transcriber converts recorded learner audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Narrator produces a playable audio rendition of tutor feedback and
// returns a URL the frontend can fetch it from.
type Narrator interface {
	FeedbackAudio(ctx context.Context, sessionID, text string) (string, error)
}

// TurnLogger receives a copy of every interaction for offline analysis.
type TurnLogger interface {
	Log(rec *domain.InteractionRecord)
}

// TurnInput is one learner submission. Either Text or Audio is set.
type TurnInput struct {
	Concept       string
	Text          string
	Audio         []byte
	AudioFilename string
}

// TurnResult is the tutor's reply to one submission.
type TurnResult struct {
	Response          string      `json:"response"`
	Transcript        string      `json:"transcript,omitempty"`
	AudioURL          string      `json:"audio_url,omitempty"`
	Tier              domain.Tier `json:"tier"`
	AttemptCount      int         `json:"attempt_count"`
	AttemptsRemaining int         `json:"attempts_remaining"`
	ShouldAdvance     bool        `json:"should_advance"`
	NextConcept       string      `json:"next_concept,omitempty"`
}

// Deps wires the service's collaborators. Catalog, Judge and Composer are
// required; the rest are optional and disabled when nil.
type Deps struct {
	Catalog     *catalog.Catalog
	Judge       Evaluator
	Composer    *Composer
	Transcriber Transcriber
	Narrator    Narrator
	Repo        store.Repository
	Log         TurnLogger
}

// Service orchestrates tutoring turns.
type Service struct {
	catalog     *catalog.Catalog
	judge       Evaluator
	composer    *Composer
	transcriber Transcriber
	narrator    Narrator
	repo        store.Repository
	log         TurnLogger
}

// NewService creates the tutoring service.
func NewService(deps Deps) *Service {
	return &Service{
		catalog:     deps.Catalog,
		judge:       deps.Judge,
		composer:    deps.Composer,
		transcriber: deps.Transcriber,
		narrator:    deps.Narrator,
		repo:        deps.Repo,
		log:         deps.Log,
	}
}

// SelectConcept resets attempt state for a concept when the learner
// navigates onto it, including re-visits. The navigation is recorded as a
// system event.
func (s *Service) SelectConcept(ctx context.Context, session *domain.Session, name string) (domain.Concept, error) {
	concept, err := s.catalog.Lookup(name)
	if err != nil {
		return domain.Concept{}, err
	}

	session.ResetConcept(concept.Name)
	s.persist(ctx, session)
	s.record(ctx, &domain.InteractionRecord{
		ID:        uuid.NewString(),
		SessionID: session.SessionID,
		Trial:     session.TrialType,
		Speaker:   domain.SpeakerSystem,
		Concept:   concept.Name,
		Message:   "concept selected: " + concept.Name,
		Timestamp: time.Now(),
	})
	return concept, nil
}

// SetTrial switches the learner's study phase. All per-concept progress is
// cleared and the change is recorded as a system event, so subsequent
// interactions land in a fresh log scope.
func (s *Service) SetTrial(ctx context.Context, session *domain.Session, phase string) error {
	if !domain.ValidTrial(phase) {
		return fmt.Errorf("%w: %q", ErrInvalidTrial, phase)
	}

	session.SetTrial(phase)
	s.persist(ctx, session)
	s.record(ctx, &domain.InteractionRecord{
		ID:        uuid.NewString(),
		SessionID: session.SessionID,
		Trial:     phase,
		Speaker:   domain.SpeakerSystem,
		Message:   "trial set to " + phase,
		Timestamp: time.Now(),
	})
	return nil
}

// HandleTurn processes one learner submission and returns the tutor's
// reply. Session state is mutated only after the feedback decision is
// made, so a failed lookup or transcription leaves the session untouched.
func (s *Service) HandleTurn(ctx context.Context, session *domain.Session, in TurnInput) (*TurnResult, error) {
	concept, err := s.catalog.Lookup(in.Concept)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Text)
	transcript := ""
	if len(in.Audio) > 0 {
		transcript, err = s.transcribe(ctx, in.Audio, in.AudioFilename)
		if err != nil {
			slog.Error("transcription failed", "session_id", session.SessionID, "concept", concept.Name, "error", err)
			return &TurnResult{
				Response:          transcriptionFailureResponse(),
				AttemptCount:      session.AttemptCount(concept.Name),
				AttemptsRemaining: session.AttemptsRemaining(concept.Name),
			}, nil
		}
		text = strings.TrimSpace(transcript)
	}

	attempt := session.AttemptCount(concept.Name)
	remaining := session.AttemptsRemaining(concept.Name)

	result := s.decide(ctx, session, concept, text, attempt, remaining)
	result.Transcript = transcript

	s.finalize(ctx, session, concept, text, result)
	return result, nil
}

// decide walks the feedback decision table. It mutates the attempt counter
// only on scored turns.
func (s *Service) decide(ctx context.Context, session *domain.Session, concept domain.Concept, text string, attempt, remaining int) *TurnResult {
	if tier, degenerate := judge.Classify(text); degenerate {
		return s.degenerateTurn(session, concept, tier, attempt, remaining)
	}

	if remaining == 0 {
		// Attempts exhausted; the input is not re-scored.
		return &TurnResult{
			Response:      exhaustedResponse(),
			AttemptCount:  attempt,
			ShouldAdvance: true,
			NextConcept:   s.nextConceptName(concept.Name),
		}
	}

	verdict := s.judge.Evaluate(ctx, text, concept.ReferenceAnswer)
	history := session.RecentHistory(concept.Name, 6)
	feedback := s.composer.Compose(ctx, concept, text, attempt, verdict.Tier, history)

	newCount := session.Advance(concept.Name, verdict.Tier.HighConfidence())

	result := &TurnResult{
		Response:          feedback,
		Tier:              verdict.Tier,
		AttemptCount:      newCount,
		AttemptsRemaining: domain.MaxAttempts - newCount,
		ShouldAdvance:     newCount >= domain.MaxAttempts,
	}
	if result.ShouldAdvance {
		result.NextConcept = s.nextConceptName(concept.Name)
	}
	return result
}

// degenerateTurn handles filler, meta-questions and non-English input.
// None of these count as an attempt.
func (s *Service) degenerateTurn(session *domain.Session, concept domain.Concept, tier domain.Tier, attempt, remaining int) *TurnResult {
	result := &TurnResult{
		Tier:              tier,
		AttemptCount:      attempt,
		AttemptsRemaining: remaining,
	}

	switch tier {
	case domain.TierMeta:
		result.Response = metaResponse(remaining)
		result.ShouldAdvance = remaining == 0
	case domain.TierNonEnglish:
		result.Response = languageResponse()
	default: // filler
		if remaining == 0 {
			result.Response = fillerRevealResponse(concept)
			result.ShouldAdvance = true
		} else {
			result.Response = fillerResponse()
		}
	}

	if result.ShouldAdvance {
		result.NextConcept = s.nextConceptName(concept.Name)
	}
	return result
}

func (s *Service) nextConceptName(name string) string {
	if next, ok := s.catalog.Next(name); ok {
		return next.Name
	}
	return ""
}

// finalize records the exchange, persists session state and, when a
// narrator is configured, attaches a spoken rendition of the feedback.
// Failures here are logged and never surface to the learner.
func (s *Service) finalize(ctx context.Context, session *domain.Session, concept domain.Concept, text string, result *TurnResult) {
	session.RecordTurn(concept.Name, text, result.Response)
	s.persist(ctx, session)

	now := time.Now()
	s.record(ctx, &domain.InteractionRecord{
		ID:        uuid.NewString(),
		SessionID: session.SessionID,
		Trial:     session.TrialType,
		Speaker:   domain.SpeakerUser,
		Concept:   concept.Name,
		Message:   text,
		Attempt:   result.AttemptCount,
		Timestamp: now,
	})
	s.record(ctx, &domain.InteractionRecord{
		ID:        uuid.NewString(),
		SessionID: session.SessionID,
		Trial:     session.TrialType,
		Speaker:   domain.SpeakerAI,
		Concept:   concept.Name,
		Message:   result.Response,
		Attempt:   result.AttemptCount,
		Timestamp: now,
	})

	if s.narrator != nil {
		url, err := s.narrator.FeedbackAudio(ctx, session.SessionID, result.Response)
		if err != nil {
			slog.Warn("feedback audio synthesis failed", "session_id", session.SessionID, "error", err)
		} else {
			result.AudioURL = url
		}
	}
}

func (s *Service) transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if s.transcriber == nil {
		return "", fmt.Errorf("no transcriber configured")
	}
	return s.transcriber.Transcribe(ctx, audio, filename)
}

func (s *Service) persist(ctx context.Context, session *domain.Session) {
	if s.repo == nil {
		return
	}
	if err := s.repo.UpsertSession(ctx, session); err != nil {
		slog.Error("persist session failed", "session_id", session.SessionID, "error", err)
	}
}

func (s *Service) record(ctx context.Context, rec *domain.InteractionRecord) {
	if s.repo != nil {
		if err := s.repo.AppendInteraction(ctx, rec); err != nil {
			slog.Error("append interaction failed", "session_id", rec.SessionID, "error", err)
		}
	}
	if s.log != nil {
		s.log.Log(rec)
	}
}
