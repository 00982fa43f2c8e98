package quality

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"rivalscope/internal/core"
)

type fakeJudge struct {
	scores   RawScores
	failures int
	calls    int
}

func (f *fakeJudge) JudgeArtifact(_ context.Context, _ core.Artifact, _ string) (RawScores, error) {
	f.calls++
	if f.calls <= f.failures {
		return RawScores{}, errors.New("judge unavailable")
	}
	return f.scores, nil
}

func citedArtifact() core.Artifact {
	return core.Artifact{
		ID: "art-1", ActionID: "act-1", Content: "# Battlecard",
		Citations: []core.Citation{
			{Source: "G2", Date: time.Now().UTC().Format("2006-01-02"), Quote: "slow support"},
		},
	}
}

func TestEvaluatePassingArtifact(t *testing.T) {
	judge := &fakeJudge{scores: RawScores{
		Relevance: 0.9, EvidenceCoverage: 0.8, HallucinationRisk: 0.9, Actionability: 0.8, Freshness: 0.2,
	}}
	e := NewEvaluator(judge, DefaultThresholds())

	ev := e.Evaluate(context.Background(), citedArtifact(), "Support complaints", 0)

	if ev.Flagged {
		t.Errorf("expected pass, flagged with reason %q", ev.FlagReason)
	}
	// Freshness comes from the citation date, not the judge's 0.2.
	if ev.Freshness != 1.0 {
		t.Errorf("expected local freshness 1.0 for a fresh citation, got %v", ev.Freshness)
	}
	want := (0.9 + 0.8 + 0.9 + 0.8 + 1.0) / 5.0
	if math.Abs(ev.OverallScore-want) > 1e-9 {
		t.Errorf("expected overall %v, got %v", want, ev.OverallScore)
	}
}

func TestEvaluateClampsJudgeScores(t *testing.T) {
	judge := &fakeJudge{scores: RawScores{
		Relevance: 7.0, EvidenceCoverage: -2.0, HallucinationRisk: 0.9, Actionability: 0.8, Freshness: 0.5,
	}}
	e := NewEvaluator(judge, DefaultThresholds())

	ev := e.Evaluate(context.Background(), citedArtifact(), "theme", 0)
	if ev.Relevance != 1.0 {
		t.Errorf("expected relevance clamped to 1, got %v", ev.Relevance)
	}
	if ev.EvidenceCoverage != 0 {
		t.Errorf("expected evidence clamped to 0, got %v", ev.EvidenceCoverage)
	}
}

func TestEvaluateFlagsEveryTrippedRubric(t *testing.T) {
	judge := &fakeJudge{scores: RawScores{
		Relevance: 0.2, EvidenceCoverage: 0.9, HallucinationRisk: 0.1, Actionability: 0.9, Freshness: 0.9,
	}}
	e := NewEvaluator(judge, DefaultThresholds())

	ev := e.Evaluate(context.Background(), citedArtifact(), "theme", 0)
	if !ev.Flagged {
		t.Fatal("expected flagged evaluation")
	}
	if !strings.Contains(ev.FlagReason, "relevance") {
		t.Errorf("flag reason must name relevance: %q", ev.FlagReason)
	}
	if !strings.Contains(ev.FlagReason, "hallucination_risk") {
		t.Errorf("flag reason must name hallucination_risk: %q", ev.FlagReason)
	}
	if strings.Contains(ev.FlagReason, "actionability") {
		t.Errorf("flag reason must not name passing rubrics: %q", ev.FlagReason)
	}
}

func TestEvaluateRetriesJudgeOnce(t *testing.T) {
	judge := &fakeJudge{
		failures: 1,
		scores:   RawScores{Relevance: 0.9, EvidenceCoverage: 0.9, HallucinationRisk: 0.9, Actionability: 0.9, Freshness: 0.9},
	}
	e := NewEvaluator(judge, DefaultThresholds())

	ev := e.Evaluate(context.Background(), citedArtifact(), "theme", 0)
	if judge.calls != 2 {
		t.Errorf("expected 2 judge calls, got %d", judge.calls)
	}
	if ev.Flagged {
		t.Errorf("retry success must not flag: %q", ev.FlagReason)
	}
}

func TestEvaluateFallsBackAfterTwoJudgeFailures(t *testing.T) {
	judge := &fakeJudge{failures: 2}
	e := NewEvaluator(judge, DefaultThresholds())

	ev := e.Evaluate(context.Background(), citedArtifact(), "theme", 0)
	if judge.calls != 2 {
		t.Errorf("expected exactly 2 judge calls, got %d", judge.calls)
	}
	if !ev.Flagged {
		t.Fatal("fallback evaluation must be flagged")
	}
	if !strings.Contains(ev.FlagReason, "manual review") {
		t.Errorf("fallback must demand manual review: %q", ev.FlagReason)
	}
	for name, score := range map[string]float64{
		"relevance": ev.Relevance, "evidence": ev.EvidenceCoverage, "hallucination": ev.HallucinationRisk,
		"actionability": ev.Actionability, "freshness": ev.Freshness, "overall": ev.OverallScore,
	} {
		if score != 0.5 {
			t.Errorf("fallback %s = %v, want 0.5", name, score)
		}
	}
}

func TestEvaluateZeroCitationsZeroesEvidence(t *testing.T) {
	judge := &fakeJudge{scores: RawScores{
		Relevance: 0.9, EvidenceCoverage: 0.9, HallucinationRisk: 0.9, Actionability: 0.9, Freshness: 0.9,
	}}
	e := NewEvaluator(judge, DefaultThresholds())

	artifact := citedArtifact()
	artifact.Citations = nil

	ev := e.Evaluate(context.Background(), artifact, "theme", 0)
	if ev.EvidenceCoverage != 0 {
		t.Errorf("expected evidence coverage 0 without citations, got %v", ev.EvidenceCoverage)
	}
	if !ev.Flagged {
		t.Error("zero evidence coverage must flag the artifact")
	}
}

func TestEvaluateDegradesOnFailedCitations(t *testing.T) {
	judge := &fakeJudge{scores: RawScores{
		Relevance: 0.9, EvidenceCoverage: 1.0, HallucinationRisk: 0.9, Actionability: 0.9, Freshness: 0.9,
	}}
	e := NewEvaluator(judge, DefaultThresholds())

	// 1 parsed citation, 1 undecodable: coverage scales by 1/2.
	ev := e.Evaluate(context.Background(), citedArtifact(), "theme", 1)
	if math.Abs(ev.EvidenceCoverage-0.5) > 1e-9 {
		t.Errorf("expected degraded coverage 0.5, got %v", ev.EvidenceCoverage)
	}
}

func TestLocalFreshness(t *testing.T) {
	now := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	fresh := []core.Citation{{Date: "2026-08-01"}}
	if got := LocalFreshness(fresh, now); got != 1.0 {
		t.Errorf("fresh citation: got %v, want 1.0", got)
	}

	stale := []core.Citation{{Date: "2025-01-01"}}
	if got := LocalFreshness(stale, now); got != 0 {
		t.Errorf("stale citation: got %v, want 0", got)
	}

	recent := []core.Citation{{Date: "Recent"}}
	if got := LocalFreshness(recent, now); got != 1.0 {
		t.Errorf("Recent marker: got %v, want 1.0", got)
	}

	unparseable := []core.Citation{{Date: "sometime last year"}}
	if got := LocalFreshness(unparseable, now); got != 0.5 {
		t.Errorf("unparseable dates: got %v, want 0.5", got)
	}

	if got := LocalFreshness(nil, now); got != 0 {
		t.Errorf("no citations: got %v, want 0", got)
	}

	// Freshest citation wins.
	mixed := []core.Citation{{Date: "2024-01-01"}, {Date: "2026-08-20"}}
	if got := LocalFreshness(mixed, now); got != 1.0 {
		t.Errorf("freshest of several: got %v, want 1.0", got)
	}
}

func TestSummarize(t *testing.T) {
	evals := []core.Evaluation{
		{ArtifactID: "a", Relevance: 0.8, EvidenceCoverage: 0.6, HallucinationRisk: 0.9, Actionability: 0.7, Freshness: 1.0, OverallScore: 0.8, Flagged: true},
		{ArtifactID: "b", Relevance: 0.6, EvidenceCoverage: 0.8, HallucinationRisk: 0.7, Actionability: 0.9, Freshness: 0.6, OverallScore: 0.72},
	}
	artifacts := []core.Artifact{{ID: "a", Accepted: true}, {ID: "b"}}

	s := Summarize(evals, artifacts)
	if s.TotalArtifacts != 2 {
		t.Errorf("total artifacts = %d", s.TotalArtifacts)
	}
	if s.FlaggedCount != 1 || s.AcceptedCount != 1 {
		t.Errorf("flagged=%d accepted=%d", s.FlaggedCount, s.AcceptedCount)
	}
	// The only flagged artifact was accepted, which resolves its review.
	if s.PendingReview != 0 {
		t.Errorf("pending review = %d, want 0", s.PendingReview)
	}
	if math.Abs(s.AvgRelevance-0.7) > 1e-9 {
		t.Errorf("avg relevance = %v", s.AvgRelevance)
	}
	if math.Abs(s.AvgOverall-0.76) > 1e-9 {
		t.Errorf("avg overall = %v", s.AvgOverall)
	}
}

func TestSummarizePendingReviewCountsUnacceptedFlags(t *testing.T) {
	evals := []core.Evaluation{
		{ArtifactID: "a", Flagged: true},
		{ArtifactID: "b", Flagged: true},
		{ArtifactID: "c"},
	}
	artifacts := []core.Artifact{{ID: "a", Accepted: true}, {ID: "b"}, {ID: "c"}}

	s := Summarize(evals, artifacts)
	if s.FlaggedCount != 2 {
		t.Errorf("flagged = %d, want 2", s.FlaggedCount)
	}
	if s.PendingReview != 1 {
		t.Errorf("pending review = %d, want 1 (only the unaccepted flagged artifact)", s.PendingReview)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil)
	if s.TotalArtifacts != 0 || s.AvgOverall != 0 {
		t.Errorf("unexpected summary for empty input: %+v", s)
	}
}
