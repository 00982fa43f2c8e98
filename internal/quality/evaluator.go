// Package quality scores generated artifacts against a five-rubric bar
// and flags anything that falls below it. The judge collaborator proposes
// rubric scores; this package clamps them, overrides what it can verify
// locally, and owns the flag decision.
package quality

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"rivalscope/internal/core"
	"rivalscope/internal/logger"
)

// RawScores is the structured schema the judge collaborator returns.
// All five values are expected in [0, 1]; hallucination_risk is inverted,
// 1.0 meaning no detectable risk.
type RawScores struct {
	Relevance         float64 `json:"relevance"`
	EvidenceCoverage  float64 `json:"evidence_coverage"`
	HallucinationRisk float64 `json:"hallucination_risk"`
	Actionability     float64 `json:"actionability"`
	Freshness         float64 `json:"freshness"`
}

// Judge is the generation collaborator in evaluation mode.
type Judge interface {
	JudgeArtifact(ctx context.Context, artifact core.Artifact, themeName string) (RawScores, error)
}

// Thresholds are the per-rubric flag bars. A score strictly below its bar
// trips the flag.
type Thresholds struct {
	Relevance         float64
	EvidenceCoverage  float64
	HallucinationRisk float64
	Actionability     float64
	Freshness         float64
}

// DefaultThresholds returns the recommended bars.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Relevance:         0.60,
		EvidenceCoverage:  0.50,
		HallucinationRisk: 0.40,
		Actionability:     0.50,
		Freshness:         0.40,
	}
}

// fallbackScore is used when the judge fails twice. Middling on purpose:
// high enough not to bury the artifact, low enough to demand review.
const fallbackScore = 0.5

// Evaluator runs the rubric scoring for one artifact.
type Evaluator struct {
	judge      Judge
	thresholds Thresholds
}

// NewEvaluator wires an evaluator.
func NewEvaluator(judge Judge, thresholds Thresholds) *Evaluator {
	return &Evaluator{judge: judge, thresholds: thresholds}
}

// Evaluate scores one artifact. The judge is retried once; two failures
// produce the conservative fallback evaluation, flagged for manual review.
// Evaluate itself never returns an error: an unevaluated artifact must not
// exist, so there is always an evaluation row to persist.
func (e *Evaluator) Evaluate(ctx context.Context, artifact core.Artifact, themeName string, failedCitations int) core.Evaluation {
	raw, err := e.judgeWithRetry(ctx, artifact, themeName)
	if err != nil {
		logger.Error("Judge failed twice, recording fallback evaluation", err, map[string]interface{}{
			"artifact_id": artifact.ID,
		})
		return fallbackEvaluation(artifact.ID)
	}

	ev := core.Evaluation{
		ID:                uuid.NewString(),
		ArtifactID:        artifact.ID,
		Relevance:         core.ClampUnit(raw.Relevance),
		EvidenceCoverage:  core.ClampUnit(raw.EvidenceCoverage),
		HallucinationRisk: core.ClampUnit(raw.HallucinationRisk),
		Actionability:     core.ClampUnit(raw.Actionability),
		Freshness:         LocalFreshness(artifact.Citations, time.Now().UTC()),
		CreatedAt:         time.Now().UTC(),
	}

	// Local evidence overrides: no citations means no coverage, and every
	// citation the parser could not decode degrades the judge's score.
	if len(artifact.Citations) == 0 {
		ev.EvidenceCoverage = 0
	} else if failedCitations > 0 {
		total := len(artifact.Citations) + failedCitations
		ev.EvidenceCoverage *= float64(len(artifact.Citations)) / float64(total)
	}

	ev.OverallScore = overall(ev)
	ev.Flagged, ev.FlagReason = e.flag(ev)
	return ev
}

func (e *Evaluator) judgeWithRetry(ctx context.Context, artifact core.Artifact, themeName string) (RawScores, error) {
	raw, err := e.judge.JudgeArtifact(ctx, artifact, themeName)
	if err == nil {
		return raw, nil
	}
	logger.Warn("Judge failed, retrying once", map[string]interface{}{
		"artifact_id": artifact.ID, "error": err.Error(),
	})
	return e.judge.JudgeArtifact(ctx, artifact, themeName)
}

// flag reports whether any rubric is below its bar, and names every rubric
// that tripped so the reason is reproducible from the stored scores.
func (e *Evaluator) flag(ev core.Evaluation) (bool, string) {
	type check struct {
		name  string
		score float64
		bar   float64
	}
	checks := []check{
		{"relevance", ev.Relevance, e.thresholds.Relevance},
		{"evidence_coverage", ev.EvidenceCoverage, e.thresholds.EvidenceCoverage},
		{"hallucination_risk", ev.HallucinationRisk, e.thresholds.HallucinationRisk},
		{"actionability", ev.Actionability, e.thresholds.Actionability},
		{"freshness", ev.Freshness, e.thresholds.Freshness},
	}

	var tripped []string
	for _, c := range checks {
		if c.score < c.bar {
			tripped = append(tripped, fmt.Sprintf("%s %.2f below %.2f", c.name, c.score, c.bar))
		}
	}
	if len(tripped) == 0 {
		return false, ""
	}
	return true, strings.Join(tripped, "; ")
}

func fallbackEvaluation(artifactID string) core.Evaluation {
	return core.Evaluation{
		ID:                uuid.NewString(),
		ArtifactID:        artifactID,
		Relevance:         fallbackScore,
		EvidenceCoverage:  fallbackScore,
		HallucinationRisk: fallbackScore,
		Actionability:     fallbackScore,
		Freshness:         fallbackScore,
		OverallScore:      fallbackScore,
		Flagged:           true,
		FlagReason:        "manual review required: automated evaluation unavailable",
		CreatedAt:         time.Now().UTC(),
	}
}

// overall is the arithmetic mean of the five rubric scores.
func overall(ev core.Evaluation) float64 {
	return (ev.Relevance + ev.EvidenceCoverage + ev.HallucinationRisk +
		ev.Actionability + ev.Freshness) / 5.0
}

// LocalFreshness computes the freshness rubric from the artifact's own
// citation dates rather than trusting the judge: the freshest citation's
// age runs through the standard recency decay. No parseable dates reads
// as stale-unknown, not zero.
func LocalFreshness(citations []core.Citation, now time.Time) float64 {
	if len(citations) == 0 {
		return 0
	}
	freshest := math.MaxInt32
	for _, c := range citations {
		age, ok := citationAge(c.Date, now)
		if ok && age < freshest {
			freshest = age
		}
	}
	if freshest == math.MaxInt32 {
		return 0.5
	}
	return core.RecencyFactor(freshest)
}

var citationDateLayouts = []string{"2006-01-02", "2006-01", "Jan 2006", "January 2006", "2006"}

func citationAge(date string, now time.Time) (int, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return 0, false
	}
	if strings.EqualFold(date, "recent") {
		return 0, true
	}
	for _, layout := range citationDateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			age := int(now.Sub(t).Hours() / 24)
			if age < 0 {
				age = 0
			}
			return age, true
		}
	}
	return 0, false
}

// Summarize aggregates evaluations into the monitoring rollup.
func Summarize(evals []core.Evaluation, artifacts []core.Artifact) core.MonitoringSummary {
	s := core.MonitoringSummary{TotalArtifacts: len(artifacts)}
	if len(evals) > 0 {
		for _, ev := range evals {
			s.AvgRelevance += ev.Relevance
			s.AvgEvidenceCoverage += ev.EvidenceCoverage
			s.AvgHallucinationRisk += ev.HallucinationRisk
			s.AvgActionability += ev.Actionability
			s.AvgFreshness += ev.Freshness
			s.AvgOverall += ev.OverallScore
			if ev.Flagged {
				s.FlaggedCount++
			}
		}
		n := float64(len(evals))
		s.AvgRelevance /= n
		s.AvgEvidenceCoverage /= n
		s.AvgHallucinationRisk /= n
		s.AvgActionability /= n
		s.AvgFreshness /= n
		s.AvgOverall /= n
	}

	accepted := make(map[string]bool)
	for _, a := range artifacts {
		if a.Accepted {
			s.AcceptedCount++
			accepted[a.ID] = true
		}
	}
	// Accepting a flagged artifact resolves its review.
	for _, ev := range evals {
		if ev.Flagged && !accepted[ev.ArtifactID] {
			s.PendingReview++
		}
	}

	sorted := make([]core.Evaluation, len(evals))
	copy(sorted, evals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	s.Evaluations = sorted
	return s
}
