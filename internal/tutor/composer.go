package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/selfexplain/internal/domain"
	"github.com/ashureev/selfexplain/internal/llm"
)

// Composer turns a judged explanation into learner-facing feedback. Scored
// tiers go through the language model; degenerate tiers and exhausted
// concepts get fixed responses that never touch the model.
type Composer struct {
	provider    llm.Provider
	maxTokens   int
	temperature float64
}

// NewComposer creates a composer backed by the given provider.
func NewComposer(provider llm.Provider, maxTokens int, temperature float64) *Composer {
	return &Composer{
		provider:    provider,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Compose generates feedback for a scored explanation. The attempt number is
// the zero-based count before this turn. Generation failures degrade to a
// deterministic fallback so the learner always gets a response; on the
// terminal attempt the fallback still carries the reference answer, because
// this turn is the learner's last chance to see it.
func (c *Composer) Compose(ctx context.Context, concept domain.Concept, explanation string, attempt int, tier domain.Tier, history []string) string {
	req := llm.Request{
		System: buildSystemPrompt(concept, attempt, tier),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(explanation, attempt, tier, history)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		slog.Error("feedback generation failed", "concept", concept.Name, "attempt", attempt, "error", err)
		return fallbackFeedback(concept, attempt, tier)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		slog.Error("feedback generation returned empty content", "concept", concept.Name, "attempt", attempt)
		return fallbackFeedback(concept, attempt, tier)
	}
	return content
}

// fallbackFeedback is the deterministic substitute when generation fails.
func fallbackFeedback(concept domain.Concept, attempt int, tier domain.Tier) string {
	if tier.HighConfidence() {
		return fmt.Sprintf("That's right, nice work! You've got a solid grasp of %s. Go ahead and move on to the next concept.", concept.Name)
	}
	if attempt >= domain.MaxAttempts-1 {
		return fmt.Sprintf("Thanks for sticking with it! Here is the key idea: %s Take a moment to read it over, then move on to the next concept.", concept.ReferenceAnswer)
	}
	return fmt.Sprintf("I'm having trouble generating feedback right now, but your attempt still counts. Try explaining %s again in your own words, focusing on what it tells you and what it doesn't.", concept.Name)
}

// Fixed responses for turns that never reach the model.

func metaResponse(remaining int) string {
	if remaining <= 0 {
		return "You've used all your tries for this concept. Please move on to the next one."
	}
	noun := "tries"
	if remaining == 1 {
		noun = "try"
	}
	return fmt.Sprintf("Yes, explain the concept in your own words, as if you were teaching it to a friend. You have %d %s left.", remaining, noun)
}

func fillerResponse() string {
	return "Could you give a fuller explanation in your own words? Try describing what the concept means and what it tells you."
}

func fillerRevealResponse(concept domain.Concept) string {
	return fmt.Sprintf("No problem! Here is the key idea: %s Please move on to the next concept.", concept.ReferenceAnswer)
}

func languageResponse() string {
	return "Could you repeat that in English, please? Explain the concept in your own words."
}

func exhaustedResponse() string {
	return "You've already used all three attempts for this concept. Please move on to the next one."
}

func transcriptionFailureResponse() string {
	return "Sorry, I couldn't process your audio. Please try recording again or type your explanation instead."
}
