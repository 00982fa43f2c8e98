package themes

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"rivalscope/internal/core"
	"rivalscope/internal/dedup"
	"rivalscope/internal/insight"
)

type fakeClusterer struct {
	clusters []RawCluster
	err      error
	calls    int
}

func (f *fakeClusterer) ClusterInsights(_ context.Context, _ string, _ []core.Insight) ([]RawCluster, error) {
	f.calls++
	return f.clusters, f.err
}

func newTestAggregator(t *testing.T, clusterer Clusterer) *Aggregator {
	t.Helper()
	scorer, err := insight.NewScorer(nil, insight.DefaultWeights(), 0.2)
	if err != nil {
		t.Fatalf("failed to build scorer: %v", err)
	}
	return NewAggregator(clusterer, scorer, dedup.New(nil), 0.3)
}

func negInsight(id, text string, score float64) core.Insight {
	return core.Insight{
		ID: id, CompetitorID: "comp-1", Text: text,
		Sentiment: core.SentimentNegative, SentimentScore: score,
		CreatedAt: time.Now().UTC(),
	}
}

func TestBuildThemesSeverityOrdering(t *testing.T) {
	insights := []core.Insight{
		negInsight("i1", "App crashes on startup for many users", -0.8),
		negInsight("i2", "Frequent crashes reported on mobile", -0.8),
		negInsight("i3", "Crash loops after the latest update", -0.8),
		negInsight("i4", "Android app crashes during sync", -0.8),
		negInsight("i5", "Checkout page felt slightly confusing once", -0.3),
	}
	clusterer := &fakeClusterer{clusters: []RawCluster{
		{Name: "Crash instability", InsightIDs: []string{"i1", "i2", "i3", "i4"}},
		{Name: "Checkout confusion", InsightIDs: []string{"i5"}},
	}}

	agg := newTestAggregator(t, clusterer)
	themes, err := agg.BuildThemes(context.Background(), "comp-1", "Acme", insights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(themes) != 2 {
		t.Fatalf("expected 2 themes, got %d", len(themes))
	}

	// The frequent, strongly negative cluster must rank first.
	if themes[0].Name != "Crash instability" {
		t.Fatalf("expected crash theme first, got %q", themes[0].Name)
	}
	if themes[0].SeverityScore <= themes[1].SeverityScore {
		t.Errorf("severity ordering violated: %v <= %v", themes[0].SeverityScore, themes[1].SeverityScore)
	}

	// The top raw severity is rescaled to just under 1.
	if math.Abs(themes[0].SeverityScore-0.95) > 1e-9 {
		t.Errorf("expected top severity 0.95, got %v", themes[0].SeverityScore)
	}
	for _, th := range themes {
		if th.SeverityScore < 0 || th.SeverityScore > 1 {
			t.Errorf("severity out of bounds for %q: %v", th.Name, th.SeverityScore)
		}
	}

	if !themes[0].IsWeakness {
		t.Error("severe negative theme must be a weakness")
	}
	if themes[1].IsWeakness {
		t.Error("low-severity theme must not be a weakness")
	}

	if themes[0].Frequency != 4 || themes[1].Frequency != 1 {
		t.Errorf("unexpected frequencies: %d, %d", themes[0].Frequency, themes[1].Frequency)
	}
}

func TestBuildThemesIdempotent(t *testing.T) {
	insights := []core.Insight{
		negInsight("i1", "Support never responds to tickets", -0.7),
		negInsight("i2", "Waited two weeks for a support reply", -0.6),
		negInsight("i3", "Pricing is opaque and expensive", -0.5),
	}
	clusters := []RawCluster{
		{Name: "Support neglect", InsightIDs: []string{"i1", "i2"}},
		{Name: "Pricing opacity", InsightIDs: []string{"i3"}},
	}

	agg := newTestAggregator(t, &fakeClusterer{clusters: clusters})
	first, err := agg.BuildThemes(context.Background(), "comp-1", "Acme", insights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := agg.BuildThemes(context.Background(), "comp-1", "Acme", insights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("theme counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("theme %d id changed between runs: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if first[i].Name != second[i].Name {
			t.Errorf("theme %d name changed between runs", i)
		}
		if first[i].SeverityScore != second[i].SeverityScore {
			t.Errorf("theme %d severity changed between runs", i)
		}
	}
}

func TestBuildThemesCollaboratorFailureFallsBack(t *testing.T) {
	insights := []core.Insight{
		negInsight("i1", "App crashes on startup constantly for everyone", -0.8),
		negInsight("i2", "App crashes on startup constantly for everyone", -0.8),
		negInsight("i3", "Completely unrelated remark about sales territory coverage", -0.2),
	}

	agg := newTestAggregator(t, &fakeClusterer{err: errors.New("model down")})
	themes, err := agg.BuildThemes(context.Background(), "comp-1", "Acme", insights)
	if err != nil {
		t.Fatalf("fallback clustering must not fail: %v", err)
	}

	covered := 0
	for _, th := range themes {
		covered += len(th.InsightIDs)
	}
	if covered != len(insights) {
		t.Errorf("fallback must cover all insights: got %d of %d", covered, len(insights))
	}
}

func TestBuildThemesValidatesPartition(t *testing.T) {
	insights := []core.Insight{
		negInsight("i1", "Pricing is too expensive for small teams", -0.6),
		negInsight("i2", "The dashboard takes ages to load", -0.5),
	}
	// Overlapping ids and an unknown id.
	clusterer := &fakeClusterer{clusters: []RawCluster{
		{Name: "Pricing", InsightIDs: []string{"i1", "ghost"}},
		{Name: "Performance", InsightIDs: []string{"i1", "i2"}},
	}}

	agg := newTestAggregator(t, clusterer)
	themes, err := agg.BuildThemes(context.Background(), "comp-1", "Acme", insights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]int)
	for _, th := range themes {
		for _, id := range th.InsightIDs {
			seen[id]++
		}
	}
	if seen["ghost"] != 0 {
		t.Error("unknown id must be dropped")
	}
	if seen["i1"] != 1 || seen["i2"] != 1 {
		t.Errorf("each insight must appear exactly once: %v", seen)
	}
}

// topicEmbedder maps support texts and pricing texts onto two orthogonal
// vectors, so same-topic texts read as identical.
type topicEmbedder struct{}

func (topicEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float64, error) {
	if strings.Contains(strings.ToLower(text), "support") {
		return []float64{1, 0}, nil
	}
	return []float64{0, 1}, nil
}

func TestBuildThemesMergesDuplicateClusters(t *testing.T) {
	insights := []core.Insight{
		negInsight("i1", "Support never responds to tickets", -0.7),
		negInsight("i2", "Support takes weeks to reply", -0.6),
		negInsight("i3", "Pricing is opaque and expensive", -0.5),
	}
	// The collaborator names the same weakness twice.
	clusterer := &fakeClusterer{clusters: []RawCluster{
		{Name: "Support neglect", InsightIDs: []string{"i1"}},
		{Name: "Slow support replies", InsightIDs: []string{"i2"}},
		{Name: "Pricing opacity", InsightIDs: []string{"i3"}},
	}}

	scorer, err := insight.NewScorer(nil, insight.DefaultWeights(), 0.2)
	if err != nil {
		t.Fatalf("failed to build scorer: %v", err)
	}
	agg := NewAggregator(clusterer, scorer, dedup.New(topicEmbedder{}), 0.3)

	themes, err := agg.BuildThemes(context.Background(), "comp-1", "Acme", insights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(themes) != 2 {
		t.Fatalf("duplicate clusters must merge into one theme, got %d themes", len(themes))
	}

	var support *core.Theme
	for i := range themes {
		if themes[i].Name == "Support neglect" {
			support = &themes[i]
		}
	}
	if support == nil {
		t.Fatalf("merged theme must keep the first cluster's name, got %+v", themes)
	}
	if support.Frequency != 2 || len(support.InsightIDs) != 2 {
		t.Errorf("merged theme must hold both insights: freq=%d ids=%v", support.Frequency, support.InsightIDs)
	}
}

func TestFallbackNameMultibyte(t *testing.T) {
	got := fallbackName("émigré customers dislike the pricing model entirely")
	if got != "Émigré customers dislike the pricing model" {
		t.Errorf("unexpected fallback name %q", got)
	}
}

func TestBuildThemesEmptyInput(t *testing.T) {
	agg := newTestAggregator(t, &fakeClusterer{})
	themes, err := agg.BuildThemes(context.Background(), "comp-1", "Acme", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if themes != nil {
		t.Errorf("expected no themes for empty input, got %d", len(themes))
	}
}

func TestDominantSentimentTieReadsMixed(t *testing.T) {
	members := []core.Insight{
		{Sentiment: core.SentimentPositive},
		{Sentiment: core.SentimentNegative},
	}
	if got := dominantSentiment(members); got != core.SentimentMixed {
		t.Errorf("expected mixed on even split, got %s", got)
	}
}

func TestSortThemesTieBreaks(t *testing.T) {
	themes := []core.Theme{
		{Name: "b", SeverityScore: 0.5, Frequency: 2, Confidence: 0.5},
		{Name: "a", SeverityScore: 0.5, Frequency: 2, Confidence: 0.5},
		{Name: "c", SeverityScore: 0.5, Frequency: 3, Confidence: 0.1},
	}
	SortThemes(themes)
	if themes[0].Name != "c" {
		t.Errorf("frequency should break severity tie, got %q first", themes[0].Name)
	}
	if themes[1].Name != "a" || themes[2].Name != "b" {
		t.Errorf("name should break the final tie: %q, %q", themes[1].Name, themes[2].Name)
	}
}
