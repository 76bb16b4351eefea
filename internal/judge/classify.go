package judge

import (
	"strings"
	"unicode"

	"github.com/ashureev/selfexplain/internal/domain"
)

// fillerWords are stock acknowledgements that carry no explanatory content.
// An input made up entirely of these (in any combination) is filler.
var fillerWords = map[string]bool{
	"ok": true, "okay": true, "k": true, "kk": true,
	"yes": true, "yeah": true, "yep": true, "yup": true,
	"no": true, "nope": true, "nah": true,
	"idk": true, "dunno": true,
	"hm": true, "hmm": true, "uh": true, "um": true, "uhm": true,
	"sure": true, "fine": true, "alright": true, "right": true,
	"thanks": true, "thank": true, "you": true,
	"i": true, "dont": true, "know": true,
}

// metaPhrases mark questions about the process rather than explanation
// attempts. Matched against the normalized input.
var metaPhrases = []string{
	"what should i do",
	"what do i do",
	"what am i supposed to",
	"do i have to",
	"do i need to",
	"should i explain",
	"how do i answer",
	"how does this work",
	"what is expected",
	"in my own words?",
	"how many tries",
	"how many attempts",
	"can i skip",
	"can i move on",
}

// englishFunctionWords is a small set of high-frequency English words used
// for target-language detection on Latin-script input.
var englishFunctionWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"it": true, "its": true, "of": true, "to": true, "in": true, "on": true,
	"and": true, "or": true, "that": true, "this": true, "with": true,
	"for": true, "as": true, "by": true, "from": true, "how": true,
	"between": true, "about": true, "not": true, "does": true, "do": true,
	"i": true, "we": true, "they": true, "when": true, "which": true,
	"mean": true, "means": true, "shows": true, "show": true, "like": true,
}

// foreignFunctionWords are high-frequency function words from common
// non-English languages, used as a cheap wrong-language signal.
var foreignFunctionWords = map[string]bool{
	// Spanish / Portuguese
	"el": true, "la": true, "los": true, "las": true, "una": true,
	"es": true, "está": true, "não": true, "são": true, "como": true,
	// French
	"le": true, "les": true, "une": true, "est": true, "dans": true,
	"c'est": true, "pour": true, "avec": true,
	// German
	"der": true, "die": true, "das": true, "und": true, "ist": true,
	"nicht": true, "eine": true, "zwischen": true,
	// Italian
	"il": true, "gli": true, "che": true, "della": true, "sono": true,
}

// Classify buckets degenerate inputs before any similarity scoring.
// The second return value is false when the input is a genuine explanation
// that should be scored against the reference answer.
func Classify(input string) (domain.Tier, bool) {
	normalized := normalize(input)

	if isFiller(normalized) {
		return domain.TierFiller, true
	}
	if isMetaQuestion(normalized) {
		return domain.TierMeta, true
	}
	if !isTargetLanguage(input, normalized) {
		return domain.TierNonEnglish, true
	}
	return "", false
}

// normalize lowercases the input and strips punctuation and emoji,
// keeping letters, digits, apostrophes, and spaces.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case r == '?':
			// Question marks are meaningful for meta detection.
			b.WriteRune('?')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isFiller(normalized string) bool {
	stripped := strings.ReplaceAll(normalized, "?", "")
	words := strings.Fields(stripped)
	if len(words) == 0 {
		return true
	}

	letters := 0
	for _, w := range words {
		for _, r := range w {
			if unicode.IsLetter(r) {
				letters++
			}
		}
	}
	if letters < 3 {
		return true
	}

	// Short inputs composed only of stock acknowledgements.
	if len(words) <= 4 {
		all := true
		for _, w := range words {
			if !fillerWords[strings.ReplaceAll(w, "'", "")] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}

	return false
}

func isMetaQuestion(normalized string) bool {
	for _, p := range metaPhrases {
		if strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}

// isTargetLanguage reports whether the input looks like English. The check
// is heuristic: a dominant non-Latin script fails immediately; Latin-script
// input long enough to judge fails when foreign function words outnumber
// English ones.
func isTargetLanguage(raw, normalized string) bool {
	latin, nonLatin := 0, 0
	for _, r := range raw {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.In(r, unicode.Latin) {
			latin++
		} else {
			nonLatin++
		}
	}
	if nonLatin > latin {
		return false
	}

	words := strings.Fields(strings.ReplaceAll(normalized, "?", ""))
	if len(words) < 4 {
		// Too short to judge by vocabulary; give the learner the benefit
		// of the doubt and let the judge score it.
		return true
	}

	english, foreign := 0, 0
	for _, w := range words {
		if englishFunctionWords[w] {
			english++
		}
		if foreignFunctionWords[w] {
			foreign++
		}
	}
	return foreign <= english
}
