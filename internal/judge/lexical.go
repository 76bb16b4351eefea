package judge

import (
	"strings"
	"unicode"
)

// lexicalStopwords are excluded from overlap scoring so shared function
// words don't inflate the similarity of unrelated sentences.
var lexicalStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "it": true, "its": true,
	"of": true, "to": true, "in": true, "on": true, "and": true, "or": true,
	"that": true, "this": true, "these": true, "those": true, "with": true,
	"for": true, "as": true, "by": true, "from": true, "at": true,
	"not": true, "does": true, "do": true, "doesn't": true, "don't": true,
	"can": true, "like": true, "such": true, "also": true,
}

// lexicalScore computes Jaccard overlap of the content-word sets of two
// texts. Fallback metric only; its thresholds differ from the embedding
// calibration.
func lexicalScore(explanation, reference string) float64 {
	a := contentWords(explanation)
	b := contentWords(reference)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func contentWords(s string) map[string]bool {
	words := make(map[string]bool)
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	for _, w := range strings.Fields(b.String()) {
		w = strings.Trim(w, "'-")
		if len(w) > 1 && !lexicalStopwords[w] {
			words[w] = true
		}
	}
	return words
}
