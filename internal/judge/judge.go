// Package judge scores learner explanations against reference answers.
//
// Degenerate inputs (filler, meta-questions, wrong language) are classified
// first and never scored. Genuine explanations are scored by embedding
// cosine similarity; when the embedding service is unavailable the judge
// degrades to a lexical overlap score so a turn never fails outright.
package judge

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/ashureev/selfexplain/internal/domain"
	"github.com/ashureev/selfexplain/internal/llm"
)

// Thresholds calibrate score buckets for one scoring method. Raw scores are
// not comparable across methods, so each method carries its own calibration.
type Thresholds struct {
	High   float64
	Medium float64
	Low    float64
}

// EmbeddingThresholds is the default calibration for cosine similarity of
// text-embedding vectors.
func EmbeddingThresholds() Thresholds {
	return Thresholds{High: 0.80, Medium: 0.55, Low: 0.35}
}

// LexicalThresholds is the calibration for the word-overlap fallback.
// Jaccard scores run much lower than embedding cosine for paraphrases.
func LexicalThresholds() Thresholds {
	return Thresholds{High: 0.55, Medium: 0.30, Low: 0.15}
}

// Result is the judge's verdict on one learner explanation.
type Result struct {
	Tier   domain.Tier
	Score  float64
	Method string // "embedding", "lexical", or "classifier"
}

// Judge evaluates explanations. Safe for concurrent use.
type Judge struct {
	embedder  llm.Embedder
	embedding Thresholds
	lexical   Thresholds

	mu       sync.Mutex
	refCache map[string][]float32
}

// New creates a judge with the given embedder and embedding calibration.
// A nil embedder makes the judge purely lexical.
func New(embedder llm.Embedder, embedding Thresholds) *Judge {
	return &Judge{
		embedder:  embedder,
		embedding: embedding,
		lexical:   LexicalThresholds(),
		refCache:  make(map[string][]float32),
	}
}

// Evaluate classifies and, when appropriate, scores an explanation against
// the reference answer.
func (j *Judge) Evaluate(ctx context.Context, explanation, reference string) Result {
	if tier, degenerate := Classify(explanation); degenerate {
		return Result{Tier: tier, Method: "classifier"}
	}

	if j.embedder != nil {
		score, err := j.cosineScore(ctx, explanation, reference)
		if err == nil {
			return Result{Tier: j.embedding.bucket(score), Score: score, Method: "embedding"}
		}
		slog.Warn("embedding score failed, falling back to lexical overlap", "error", err)
	}

	score := lexicalScore(explanation, reference)
	return Result{Tier: j.lexical.bucket(score), Score: score, Method: "lexical"}
}

func (j *Judge) cosineScore(ctx context.Context, explanation, reference string) (float64, error) {
	refVec, err := j.referenceVector(ctx, reference)
	if err != nil {
		return 0, err
	}

	expVec, err := j.embedder.Embed(ctx, explanation)
	if err != nil {
		return 0, fmt.Errorf("embed explanation: %w", err)
	}

	return cosine(expVec, refVec)
}

// referenceVector embeds a reference answer, caching the result. The
// catalog is immutable for the process lifetime, so entries never expire.
func (j *Judge) referenceVector(ctx context.Context, reference string) ([]float32, error) {
	j.mu.Lock()
	if v, ok := j.refCache[reference]; ok {
		j.mu.Unlock()
		return v, nil
	}
	j.mu.Unlock()

	v, err := j.embedder.Embed(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("embed reference: %w", err)
	}

	j.mu.Lock()
	j.refCache[reference] = v
	j.mu.Unlock()
	return v, nil
}

// bucket maps a score in [0,1] to a correctness tier.
func (t Thresholds) bucket(score float64) domain.Tier {
	switch {
	case score >= t.High:
		return domain.TierHigh
	case score >= t.Medium:
		return domain.TierMedium
	case score >= t.Low:
		return domain.TierLow
	default:
		return domain.TierVeryLow
	}
}

// cosine computes cosine similarity clamped to [0,1].
func cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-magnitude embedding vector")
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim, nil
}
