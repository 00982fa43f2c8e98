package report

import (
	"strings"
	"testing"

	"rivalscope/internal/core"
)

func weakness(name string, severity float64, freq int, move string) core.Theme {
	return core.Theme{
		ID: "theme-" + name, Name: name, Sentiment: core.SentimentNegative,
		SeverityScore: severity, Frequency: freq, RecencyDays: 10,
		IsWeakness: true, DifferentiationMove: move, Confidence: 0.6,
	}
}

func TestBuildSnapshotSWOT(t *testing.T) {
	competitor := core.Competitor{Name: "Acme"}
	themes := []core.Theme{
		weakness("Pricing opacity", 0.9, 5, "Lead with transparent pricing"),
		{Name: "Loved onboarding", Sentiment: core.SentimentPositive, SeverityScore: 0.7, Frequency: 3, Confidence: 0.8},
		{Name: "Minor UI quirks", Sentiment: core.SentimentNegative, SeverityScore: 0.1, Frequency: 1, Confidence: 0.4},
	}

	snap := BuildSnapshot(competitor, themes, nil)

	if snap.Title != "Competitive Snapshot: Acme" {
		t.Errorf("unexpected title %q", snap.Title)
	}
	if snap.ThemeCount != 3 || snap.EvidenceCount != 9 {
		t.Errorf("counts: themes=%d evidence=%d", snap.ThemeCount, snap.EvidenceCount)
	}

	if len(snap.SWOT.Weaknesses) != 1 || snap.SWOT.Weaknesses[0] != "Pricing opacity" {
		t.Errorf("weaknesses: %v", snap.SWOT.Weaknesses)
	}
	if len(snap.SWOT.Opportunities) != 1 || snap.SWOT.Opportunities[0] != "Lead with transparent pricing" {
		t.Errorf("opportunities: %v", snap.SWOT.Opportunities)
	}
	if len(snap.SWOT.Strengths) != 1 || snap.SWOT.Strengths[0] != "Loved onboarding" {
		t.Errorf("strengths: %v", snap.SWOT.Strengths)
	}
	// A strong positive theme is a threat to us.
	if len(snap.SWOT.Threats) != 1 || !strings.Contains(snap.SWOT.Threats[0], "Loved onboarding") {
		t.Errorf("threats: %v", snap.SWOT.Threats)
	}

	// The single true weakness leads; the low-severity negative theme pads
	// the ranked list behind it.
	if len(snap.TopWeaknesses) != 2 || snap.TopWeaknesses[0].Name != "Pricing opacity" {
		t.Errorf("top weaknesses: %+v", snap.TopWeaknesses)
	}
	if snap.PositioningAngle != "Lead with transparent pricing" {
		t.Errorf("positioning angle should come from the top weakness's move, got %q", snap.PositioningAngle)
	}
	if len(snap.RecommendedActions) != 2 || !strings.Contains(snap.RecommendedActions[0], "Pricing opacity") {
		t.Errorf("recommended actions: %v", snap.RecommendedActions)
	}
}

func TestBuildSnapshotTopWeaknessesCutAtThree(t *testing.T) {
	themes := []core.Theme{
		weakness("w1", 0.9, 4, ""),
		weakness("w2", 0.8, 3, ""),
		weakness("w3", 0.7, 2, ""),
		weakness("w4", 0.6, 1, ""),
	}

	snap := BuildSnapshot(core.Competitor{Name: "Acme"}, themes, nil)
	if len(snap.TopWeaknesses) != 3 {
		t.Fatalf("expected top-3 cut, got %d", len(snap.TopWeaknesses))
	}
	if snap.TopWeaknesses[0].Name != "w1" || snap.TopWeaknesses[2].Name != "w3" {
		t.Errorf("unexpected ranking: %+v", snap.TopWeaknesses)
	}
	if snap.TopWeaknesses[0].Evidence != "4 insights, freshest 10 days old" {
		t.Errorf("unexpected evidence line: %q", snap.TopWeaknesses[0].Evidence)
	}
}

func TestBuildSnapshotPadsWeaknessesFromLowerRanks(t *testing.T) {
	themes := []core.Theme{
		weakness("Real weakness", 0.9, 4, ""),
		{Name: "Mild gripes", Sentiment: core.SentimentNegative, SeverityScore: 0.3, Frequency: 2, Confidence: 0.5},
		{Name: "Mixed feelings", Sentiment: core.SentimentMixed, SeverityScore: 0.2, Frequency: 1, Confidence: 0.4},
		{Name: "Great docs", Sentiment: core.SentimentPositive, SeverityScore: 0.8, Frequency: 3, Confidence: 0.7},
	}

	snap := BuildSnapshot(core.Competitor{Name: "Acme"}, themes, nil)
	if len(snap.TopWeaknesses) != 3 {
		t.Fatalf("expected padding to 3, got %d: %+v", len(snap.TopWeaknesses), snap.TopWeaknesses)
	}
	if snap.TopWeaknesses[0].Name != "Real weakness" {
		t.Errorf("true weaknesses must rank first: %+v", snap.TopWeaknesses)
	}
	for _, w := range snap.TopWeaknesses {
		if w.Name == "Great docs" {
			t.Errorf("positive themes must never pad the weakness list: %+v", snap.TopWeaknesses)
		}
	}
}

func TestBuildSnapshotAccountsForAcceptedDeliverables(t *testing.T) {
	themes := []core.Theme{
		weakness("Pricing opacity", 0.9, 5, ""),
		weakness("Slow support", 0.7, 3, ""),
	}
	delivered := []Deliverable{
		{ThemeID: "theme-Pricing opacity", Type: core.ActionBattlecard, Title: "Battlecard: Pricing opacity"},
	}

	snap := BuildSnapshot(core.Competitor{Name: "Acme"}, themes, delivered)

	if len(snap.AcceptedArtifacts) != 1 || snap.AcceptedArtifacts[0] != "Battlecard: Pricing opacity" {
		t.Errorf("accepted artifacts: %v", snap.AcceptedArtifacts)
	}
	if len(snap.RecommendedActions) != 2 {
		t.Fatalf("recommended actions: %v", snap.RecommendedActions)
	}
	if !strings.Contains(snap.RecommendedActions[0], "Refresh the accepted battlecard") {
		t.Errorf("covered weakness must get a refresh recommendation, got %q", snap.RecommendedActions[0])
	}
	if !strings.Contains(snap.RecommendedActions[1], "Create a battlecard targeting") {
		t.Errorf("uncovered weakness keeps the create recommendation, got %q", snap.RecommendedActions[1])
	}
}

func TestBuildSnapshotWithoutMoveFallsBackToGenericAngle(t *testing.T) {
	snap := BuildSnapshot(core.Competitor{Name: "Acme"}, []core.Theme{
		weakness("Slow support", 0.8, 2, ""),
	}, nil)
	if !strings.Contains(snap.PositioningAngle, "Slow support") {
		t.Errorf("expected generic angle naming the weakness, got %q", snap.PositioningAngle)
	}
}

func TestBuildSnapshotEmpty(t *testing.T) {
	snap := BuildSnapshot(core.Competitor{Name: "Acme"}, nil, nil)
	if snap.ThemeCount != 0 || snap.AvgConfidence != 0 {
		t.Errorf("unexpected snapshot for no themes: %+v", snap)
	}
	if len(snap.TopWeaknesses) != 0 {
		t.Errorf("expected no ranked weaknesses, got %v", snap.TopWeaknesses)
	}
	if !strings.Contains(snap.PositioningAngle, "gather more sources") {
		t.Errorf("expected guidance to gather sources, got %q", snap.PositioningAngle)
	}
	if len(snap.RecommendedActions) != 0 {
		t.Errorf("no actions expected: %v", snap.RecommendedActions)
	}
}

func TestBuildSnapshotDoesNotMutateInput(t *testing.T) {
	themes := []core.Theme{
		weakness("low", 0.2, 1, ""),
		weakness("high", 0.9, 5, ""),
	}
	BuildSnapshot(core.Competitor{Name: "Acme"}, themes, nil)
	if themes[0].Name != "low" {
		t.Error("input slice order must be preserved")
	}
}
