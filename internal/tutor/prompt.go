package tutor

import (
	"fmt"
	"strings"

	"github.com/ashureev/selfexplain/internal/domain"
)

// tutorPersona is the base system prompt for feedback generation. The
// reveal rule is appended per turn because the terminal attempt is the one
// place the reference answer may be disclosed.
const tutorPersona = `You are a friendly and encouraging tutor, helping a student refine their understanding of a concept through self-explanation. Evaluate the student's explanation and provide warm, engaging feedback:
- If the explanation covers all the relevant aspects of the golden answer, celebrate their effort, tell them it is correct, and instruct them to proceed to the next concept.
- If the explanation is partially correct, acknowledge their progress and gently guide them toward refining their answer.
- If it is incorrect, provide constructive and positive feedback without discouraging them.
Keep your response to three sentences or fewer. Use a conversational, warm, non-patronizing tone. Do not use emojis, and ignore any emojis in the student's explanation. If the student is not talking about the current concept, guide them back to self-explaining it.`

const withholdRule = `Do not provide the golden answer or parts of it directly. Instead, guide the student to arrive at it themselves.`

const revealRule = `This is the student's final attempt, so if the explanation is not correct you must now share the golden answer (paraphrased is fine) and explicitly tell them to move on to the next concept.`

// attemptInstruction returns the escalation instruction for the given
// zero-based attempt number.
func attemptInstruction(attempt int) string {
	switch attempt {
	case 0:
		return "This is the student's first attempt at explaining this concept. If the explanation is correct, say so. If not, give general feedback and one broad hint to guide them."
	case 1:
		return "This is the student's second attempt at explaining this concept. If the explanation is correct, say so. If not, give more specific feedback and name a key element they missed."
	default:
		return "This is the student's third and final attempt at explaining this concept. If the explanation is correct, say so. If not, provide the correct explanation in a supportive way and explicitly tell them to move on to the next concept."
	}
}

// tierHint translates the judge's verdict for the model so its feedback
// agrees with the decision already made.
func tierHint(tier domain.Tier) string {
	switch tier {
	case domain.TierHigh:
		return "An automated comparison judged this explanation as correct."
	case domain.TierMedium:
		return "An automated comparison judged this explanation as partially correct."
	default:
		return "An automated comparison judged this explanation as incorrect or off-topic."
	}
}

// buildSystemPrompt assembles the per-turn system prompt.
func buildSystemPrompt(concept domain.Concept, attempt int, tier domain.Tier) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Concept: %s\n", concept.Name))
	b.WriteString(fmt.Sprintf("Golden Answer: %s\n\n", concept.ReferenceAnswer))
	b.WriteString(tutorPersona)
	b.WriteString("\n")

	terminal := attempt >= domain.MaxAttempts-1 && !tier.HighConfidence()
	if terminal {
		b.WriteString(revealRule)
	} else {
		b.WriteString(withholdRule)
	}

	return b.String()
}

// buildUserMessage assembles the per-turn user message: recent history for
// context, the learner's explanation, the judge's verdict, and the
// attempt-specific instruction.
func buildUserMessage(explanation string, attempt int, tier domain.Tier, history []string) string {
	var b strings.Builder

	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, line := range history {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("Student Explanation: %s\n\n", explanation))
	b.WriteString(tierHint(tier))
	b.WriteString("\n")
	b.WriteString(attemptInstruction(attempt))

	return b.String()
}
