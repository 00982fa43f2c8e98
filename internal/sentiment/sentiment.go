// Package sentiment is a lexicon-based sentiment scorer for competitive
// feedback text. It backs the demo collaborator and serves as a local
// fallback when no model output is available.
package sentiment

import (
	"math"
	"strings"

	"rivalscope/internal/core"
)

// Keyword weights tuned for product and competitor feedback.
var positiveKeywords = map[string]float64{
	"excellent": 1.0, "amazing": 0.9, "outstanding": 0.9, "fantastic": 0.8,
	"love": 0.8, "great": 0.7, "good": 0.6, "fast": 0.5, "reliable": 0.7,
	"intuitive": 0.6, "easy": 0.5, "powerful": 0.6, "flexible": 0.5,
	"responsive": 0.6, "helpful": 0.6, "affordable": 0.6, "polished": 0.6,
	"improvement": 0.5, "improved": 0.5, "seamless": 0.6, "recommend": 0.7,
	"stable": 0.5, "robust": 0.5, "innovative": 0.6, "best": 0.7,
}

var negativeKeywords = map[string]float64{
	"terrible": -1.0, "awful": -0.9, "horrible": -0.9, "useless": -0.8,
	"hate": -0.8, "bad": -0.6, "poor": -0.6, "slow": -0.5, "buggy": -0.7,
	"broken": -0.7, "crash": -0.7, "crashes": -0.7, "outage": -0.7,
	"downtime": -0.6, "expensive": -0.6, "overpriced": -0.7, "pricey": -0.5,
	"confusing": -0.5, "clunky": -0.5, "frustrating": -0.7, "frustrated": -0.7,
	"missing": -0.4, "lacking": -0.5, "lacks": -0.5, "limited": -0.4,
	"unresponsive": -0.6, "unreliable": -0.7, "churn": -0.5, "cancel": -0.6,
	"cancelled": -0.6, "switching": -0.5, "switched": -0.5, "worst": -0.9,
	"problem": -0.5, "issue": -0.4, "issues": -0.4, "bug": -0.4, "bugs": -0.5,
	"support": -0.2, "waiting": -0.3, "ignored": -0.6,
}

// Analyzer scores short texts against the lexicon.
type Analyzer struct{}

// NewAnalyzer creates a lexicon analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Score returns a sentiment score in [-1, 1] and its discrete category.
// Texts with both strong positive and negative signal read as mixed.
func (a *Analyzer) Score(text string) (float64, core.Sentiment) {
	var pos, neg float64
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if w, ok := positiveKeywords[word]; ok {
			pos += w
		}
		if w, ok := negativeKeywords[word]; ok {
			neg += -w
		}
	}

	overall := core.ClampSigned((pos - neg) / (pos + neg + 1.0))

	switch {
	case pos >= 0.5 && neg >= 0.5:
		return overall, core.SentimentMixed
	case overall >= 0.15:
		return overall, core.SentimentPositive
	case overall <= -0.15:
		return overall, core.SentimentNegative
	default:
		return overall, core.SentimentNeutral
	}
}

// KeyPhrases returns the lexicon words present in the text, strongest
// first by absolute weight. Useful for demo-mode quote selection.
func (a *Analyzer) KeyPhrases(text string, limit int) []string {
	type hit struct {
		word   string
		weight float64
	}
	seen := make(map[string]bool)
	var hits []hit
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if seen[word] {
			continue
		}
		if w, ok := positiveKeywords[word]; ok {
			seen[word] = true
			hits = append(hits, hit{word, w})
		} else if w, ok := negativeKeywords[word]; ok {
			seen[word] = true
			hits = append(hits, hit{word, -w})
		}
	}
	// Insertion-order stable selection sort keeps output deterministic.
	for i := 0; i < len(hits); i++ {
		for j := i + 1; j < len(hits); j++ {
			if math.Abs(hits[j].weight) > math.Abs(hits[i].weight) {
				hits[i], hits[j] = hits[j], hits[i]
			}
		}
	}
	var out []string
	for i, h := range hits {
		if limit > 0 && i >= limit {
			break
		}
		out = append(out, h.word)
	}
	return out
}
