// Package dedup removes near-duplicate chunks and insights before they
// pollute scoring. Similarity uses embedding cosine distance when an
// embedder is available, a word-shingle Jaccard proxy otherwise, and
// normalized exact match as the last resort. Dedup never fails the
// pipeline.
package dedup

import (
	"context"
	"math"
	"strings"

	"rivalscope/internal/collect"
	"rivalscope/internal/core"
	"rivalscope/internal/logger"
)

const (
	// DefaultInsightCutoff flags near-duplicate insight text.
	DefaultInsightCutoff = 0.90
	// DefaultChunkCutoff flags exact-ish chunk matches.
	DefaultChunkCutoff = 0.97

	shingleSize = 3
)

// Embedder produces a vector embedding for a piece of text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
}

// Deduplicator decides keep/merge/drop for candidate chunks and insights.
type Deduplicator struct {
	InsightCutoff float64
	ChunkCutoff   float64
	Embedder      Embedder // optional; nil means shingle similarity only
}

// New creates a deduplicator with the recommended cutoffs.
func New(embedder Embedder) *Deduplicator {
	return &Deduplicator{
		InsightCutoff: DefaultInsightCutoff,
		ChunkCutoff:   DefaultChunkCutoff,
		Embedder:      embedder,
	}
}

// FilterChunks drops chunks that near-duplicate an earlier chunk in the
// batch, so redundant text never reaches the extraction collaborator.
func (d *Deduplicator) FilterChunks(ctx context.Context, chunks []string) []string {
	var kept []string
	seen := make(map[string]bool)

	for _, chunk := range chunks {
		norm := collect.NormalizeText(chunk)
		if seen[norm] {
			continue
		}

		dup := false
		for _, existing := range kept {
			if d.Similarity(ctx, chunk, existing) >= d.ChunkCutoff {
				dup = true
				break
			}
		}
		if dup {
			continue
		}

		seen[norm] = true
		kept = append(kept, chunk)
	}

	if dropped := len(chunks) - len(kept); dropped > 0 {
		logger.Debug("Dropped duplicate chunks", map[string]interface{}{"dropped": dropped, "kept": len(kept)})
	}
	return kept
}

// MatchInsight checks a candidate insight against the existing pool.
// It returns the index of the retained near-duplicate, or -1 when the
// candidate should be kept. On a match the caller merges the candidate's
// provenance into the retained insight; no new entity id is created.
func (d *Deduplicator) MatchInsight(ctx context.Context, candidate core.Insight, pool []core.Insight) int {
	for i, existing := range pool {
		if d.Similarity(ctx, candidate.Text, existing.Text) >= d.InsightCutoff {
			return i
		}
	}
	return -1
}

// MergeProvenance folds a dropped candidate's source references into the
// retained insight so evidence is never silently lost.
func MergeProvenance(retained *core.Insight, dropped core.Insight) {
	for _, ref := range dropped.Sources {
		exists := false
		for _, have := range retained.Sources {
			if have.URL == ref.URL && have.Date == ref.Date {
				exists = true
				break
			}
		}
		if !exists {
			retained.Sources = append(retained.Sources, ref)
		}
	}
}

// Similarity scores two texts in [0, 1]. Embedding cosine when available,
// shingle Jaccard otherwise, exact normalized match when both degrade.
func (d *Deduplicator) Similarity(ctx context.Context, a, b string) float64 {
	if d.Embedder != nil {
		if sim, err := d.embeddingSimilarity(ctx, a, b); err == nil {
			return sim
		}
		// Embedding unavailable; fall through to the cheaper proxy.
	}

	simA := shingles(a)
	simB := shingles(b)
	if len(simA) > 0 && len(simB) > 0 {
		return jaccard(simA, simB)
	}

	if collect.NormalizeText(a) == collect.NormalizeText(b) {
		return 1.0
	}
	return 0.0
}

func (d *Deduplicator) embeddingSimilarity(ctx context.Context, a, b string) (float64, error) {
	va, err := d.Embedder.GenerateEmbedding(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := d.Embedder.GenerateEmbedding(ctx, b)
	if err != nil {
		return 0, err
	}
	return CosineSimilarity(va, vb), nil
}

// shingles builds the set of word n-grams of a normalized text.
func shingles(text string) map[string]bool {
	words := strings.Fields(collect.NormalizeText(text))
	set := make(map[string]bool)
	if len(words) < shingleSize {
		if len(words) > 0 {
			set[strings.Join(words, " ")] = true
		}
		return set
	}
	for i := 0; i+shingleSize <= len(words); i++ {
		set[strings.Join(words[i:i+shingleSize], " ")] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for s := range a {
		if b[s] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// CosineSimilarity computes the cosine similarity between two vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
