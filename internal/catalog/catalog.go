// Package catalog loads and serves the concept catalog.
//
// The catalog is a static name -> reference-answer mapping loaded once at
// startup. If the backing JSON file is missing or invalid, a built-in
// default set is used and persisted so the next startup reads it from disk.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ashureev/selfexplain/internal/domain"
)

// ErrUnknownConcept is returned when a concept name does not resolve
// against the catalog.
var ErrUnknownConcept = errors.New("unknown concept")

// Catalog is an immutable, ordered set of concepts with case-insensitive
// name lookup.
type Catalog struct {
	concepts []domain.Concept
	byKey    map[string]int
}

type conceptFile struct {
	Concepts []domain.Concept `json:"concepts"`
}

// defaultConcepts is the built-in seed set, used when no catalog file exists.
func defaultConcepts() []domain.Concept {
	return []domain.Concept{
		{
			Name:            "Univariate Analysis",
			ReferenceAnswer: "Univariate analysis examines a single variable to describe its characteristics and identify patterns in data.",
		},
		{
			Name:            "Measures of Central Tendency",
			ReferenceAnswer: "Measures of central tendency, like mean, median, and mode, help summarize the data.",
		},
		{
			Name:            "Measures of Dispersion",
			ReferenceAnswer: "Measures of dispersion, like variance, standard deviation, quantiles, and range, indicate how spread out the values are. This type of analysis is essential in statistics and research to understand data distributions and make informed comparisons between variables.",
		},
	}
}

// Load reads the catalog from path. A missing or unreadable file falls back
// to the built-in defaults, which are persisted back to path on a best-effort
// basis.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var f conceptFile
		if jsonErr := json.Unmarshal(data, &f); jsonErr == nil && len(f.Concepts) > 0 {
			slog.Info("Loaded concept catalog", "path", path, "concepts", len(f.Concepts))
			return New(f.Concepts)
		}
		slog.Warn("Concept catalog file is invalid, using defaults", "path", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read concept catalog: %w", err)
	}

	concepts := defaultConcepts()
	if writeErr := persist(path, concepts); writeErr != nil {
		slog.Warn("Failed to persist default concepts", "path", path, "error", writeErr)
	} else {
		slog.Info("Default concept catalog created", "path", path, "concepts", len(concepts))
	}
	return New(concepts)
}

// New builds a catalog from a concept list.
func New(concepts []domain.Concept) (*Catalog, error) {
	if len(concepts) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one concept")
	}

	byKey := make(map[string]int, len(concepts))
	for i, c := range concepts {
		if c.Name == "" || c.ReferenceAnswer == "" {
			return nil, fmt.Errorf("concept %d: name and golden_answer are required", i)
		}
		key := domain.Key(c.Name)
		if _, dup := byKey[key]; dup {
			return nil, fmt.Errorf("duplicate concept name %q", c.Name)
		}
		byKey[key] = i
	}

	return &Catalog{concepts: concepts, byKey: byKey}, nil
}

func persist(path string, concepts []domain.Concept) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}
	data, err := json.MarshalIndent(conceptFile{Concepts: concepts}, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal concepts: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write concepts: %w", err)
	}
	return nil
}

// Lookup resolves a concept name case-insensitively.
func (c *Catalog) Lookup(name string) (domain.Concept, error) {
	i, ok := c.byKey[domain.Key(name)]
	if !ok {
		return domain.Concept{}, fmt.Errorf("%w: %q", ErrUnknownConcept, name)
	}
	return c.concepts[i], nil
}

// Next returns the concept following name in catalog order, and false when
// name is the last concept (or unknown).
func (c *Catalog) Next(name string) (domain.Concept, bool) {
	i, ok := c.byKey[domain.Key(name)]
	if !ok || i+1 >= len(c.concepts) {
		return domain.Concept{}, false
	}
	return c.concepts[i+1], true
}

// Concepts returns the catalog contents in order.
func (c *Catalog) Concepts() []domain.Concept {
	out := make([]domain.Concept, len(c.concepts))
	copy(out, c.concepts)
	return out
}

// Len returns the number of concepts.
func (c *Catalog) Len() int {
	return len(c.concepts)
}
