// Package insight extracts atomic observations from text chunks and
// rescoring them locally. Collaborator output is schema-constrained and
// untrusted: anything off-schema is a parse failure, not an insight, and
// confidence is always recomputed here rather than taken verbatim.
package insight

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"rivalscope/internal/core"
	"rivalscope/internal/logger"
)

// RawInsight is the structured schema the extraction collaborator must
// return for each observation.
type RawInsight struct {
	Text           string  `json:"text"`
	Sentiment      string  `json:"sentiment"`
	SentimentScore float64 `json:"sentiment_score"`
	Persona        string  `json:"persona"`
	Quote          string  `json:"quote"`
	Confidence     float64 `json:"confidence"`
}

// Extractor is the generation collaborator in extraction mode.
type Extractor interface {
	ExtractInsights(ctx context.Context, chunk, sourceURL, competitorName string) ([]RawInsight, error)
}

// Weights blends the confidence factors. The three weights must sum to 1.
type Weights struct {
	Recency   float64
	Sentiment float64
	Frequency float64
}

// DefaultWeights are the recommended blend: recency 0.3, sentiment
// strength 0.3, frequency 0.4.
func DefaultWeights() Weights {
	return Weights{Recency: 0.3, Sentiment: 0.3, Frequency: 0.4}
}

// Valid reports whether the weights sum to 1 (within float tolerance).
func (w Weights) Valid() bool {
	return math.Abs(w.Recency+w.Sentiment+w.Frequency-1.0) < 1e-6
}

// Scorer turns chunks into scored Insight records.
type Scorer struct {
	extractor Extractor
	weights   Weights
	// Insights under the floor are retained but marked low-confidence so
	// evidence is never silently lost.
	lowConfidenceFloor float64
}

// NewScorer creates a scorer with the given collaborator and weights.
func NewScorer(extractor Extractor, weights Weights, lowConfidenceFloor float64) (*Scorer, error) {
	if !weights.Valid() {
		return nil, fmt.Errorf("confidence weights must sum to 1, got %.3f",
			weights.Recency+weights.Sentiment+weights.Frequency)
	}
	return &Scorer{
		extractor:          extractor,
		weights:            weights,
		lowConfidenceFloor: lowConfidenceFloor,
	}, nil
}

// ScoreChunk extracts insights from one chunk and rescores each locally.
// Off-schema collaborator entries are dropped as parse failures.
func (s *Scorer) ScoreChunk(ctx context.Context, chunk string, source core.Source, competitorName string) ([]core.Insight, error) {
	raws, err := s.extractor.ExtractInsights(ctx, chunk, source.URL, competitorName)
	if err != nil {
		return nil, fmt.Errorf("insight extraction failed for source %s: %w", source.ID, err)
	}

	now := time.Now().UTC()
	var insights []core.Insight
	dropped := 0
	for _, raw := range raws {
		if raw.Text == "" {
			dropped++
			continue
		}

		sentScore := core.ClampSigned(raw.SentimentScore)
		conf := s.Confidence(0, sentScore, 0)

		ins := core.Insight{
			ID:             uuid.NewString(),
			SourceID:       source.ID,
			CompetitorID:   source.CompetitorID,
			Text:           raw.Text,
			Quote:          raw.Quote,
			Sentiment:      normalizeSentiment(raw.Sentiment),
			SentimentScore: sentScore,
			Persona:        raw.Persona,
			Confidence:     conf,
			LowConfidence:  conf < s.lowConfidenceFloor,
			Sources:        []core.SourceRef{{URL: source.URL, Date: now.Format("2006-01-02")}},
			CreatedAt:      now,
		}
		insights = append(insights, ins)
	}

	if dropped > 0 {
		logger.Warn("Dropped off-schema extraction entries", map[string]interface{}{
			"source_id": source.ID, "dropped": dropped,
		})
	}
	return insights, nil
}

// Confidence is the local confidence blend:
//
//	w_r*recency_factor + w_s*sentiment_strength + w_f*frequency_factor
//
// Frequency is zero at insight creation; it only becomes meaningful once
// aggregated at the theme level, where the same formula runs over the
// cluster.
func (s *Scorer) Confidence(ageDays int, sentimentScore, frequencyFactor float64) float64 {
	blend := s.weights.Recency*core.RecencyFactor(ageDays) +
		s.weights.Sentiment*math.Abs(core.ClampSigned(sentimentScore)) +
		s.weights.Frequency*core.ClampUnit(frequencyFactor)
	return core.ClampUnit(blend)
}

// ClusterConfidence reuses the confidence blend over a theme's insight
// cluster: freshest recency, mean sentiment strength, normalized frequency.
func (s *Scorer) ClusterConfidence(insights []core.Insight, frequencyNorm float64) float64 {
	if len(insights) == 0 {
		return 0
	}
	freshest := math.MaxInt32
	var strength float64
	now := time.Now().UTC()
	for _, ins := range insights {
		age := int(now.Sub(ins.CreatedAt).Hours() / 24)
		if age < freshest {
			freshest = age
		}
		strength += math.Abs(ins.SentimentScore)
	}
	strength /= float64(len(insights))
	return s.Confidence(freshest, strength, frequencyNorm)
}

// SortStable orders insights deterministically (text, then id) so that
// downstream clustering sees stable inputs.
func SortStable(insights []core.Insight) {
	sort.Slice(insights, func(i, j int) bool {
		if insights[i].Text != insights[j].Text {
			return insights[i].Text < insights[j].Text
		}
		return insights[i].ID < insights[j].ID
	})
}

func normalizeSentiment(s string) core.Sentiment {
	switch core.Sentiment(s) {
	case core.SentimentPositive, core.SentimentNegative, core.SentimentNeutral, core.SentimentMixed:
		return core.Sentiment(s)
	default:
		return core.SentimentNeutral
	}
}
