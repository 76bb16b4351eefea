package domain

// Tier is the correctness classification of a learner explanation relative
// to the reference answer, or one of the non-scored input classes.
type Tier string

const (
	// TierHigh indicates a high-confidence correct explanation.
	TierHigh Tier = "high"
	// TierMedium indicates a partially correct explanation.
	TierMedium Tier = "medium"
	// TierLow indicates an explanation with little overlap.
	TierLow Tier = "low"
	// TierVeryLow indicates an off-topic or wrong explanation.
	TierVeryLow Tier = "very_low"
	// TierFiller indicates input too short or contentless to evaluate.
	TierFiller Tier = "filler"
	// TierMeta indicates a question about process rather than an explanation.
	TierMeta Tier = "meta"
	// TierNonEnglish indicates input not written in the target language.
	TierNonEnglish Tier = "non_english"
)

// Scored reports whether the tier came from the similarity judge
// (as opposed to the degenerate-input classifier).
func (t Tier) Scored() bool {
	switch t {
	case TierHigh, TierMedium, TierLow, TierVeryLow:
		return true
	}
	return false
}

// HighConfidence reports whether the tier represents a correct match that
// exhausts the concept regardless of the attempt number.
func (t Tier) HighConfidence() bool {
	return t == TierHigh
}
