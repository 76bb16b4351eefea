// Package domain contains core domain types for the self-explanation tutor.
package domain

import "strings"

// Concept is a named topic with a reference ("golden") explanation the
// learner is expected to approximate. The reference answer is withheld from
// the learner until the terminal attempt.
type Concept struct {
	Name            string `json:"name"`
	ReferenceAnswer string `json:"golden_answer"`
}

// Key returns the canonical lookup key for a concept name.
// Concept names are matched case-insensitively.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
