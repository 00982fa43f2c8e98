package llm

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"rivalscope/internal/citations"
	"rivalscope/internal/core"
)

func TestDemoExtractInsights(t *testing.T) {
	d := NewDemoClient()
	chunk := "The pricing is far too expensive for what you get. " +
		"Support ignored my ticket for two weeks. " +
		"Short one."

	raws, err := d.ExtractInsights(context.Background(), chunk, "https://g2.com/acme", "Acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("expected 2 insights (short sentence dropped), got %d", len(raws))
	}
	for _, raw := range raws {
		if !strings.HasPrefix(raw.Text, "Acme: ") {
			t.Errorf("insight text must name the competitor: %q", raw.Text)
		}
		if raw.Persona != "G2 reviewer" {
			t.Errorf("expected persona from source url, got %q", raw.Persona)
		}
		if raw.Quote == "" {
			t.Error("expected a quote")
		}
	}
	if raws[0].Sentiment != string(core.SentimentNegative) {
		t.Errorf("pricing complaint should read negative, got %s", raws[0].Sentiment)
	}
}

func TestDemoExtractCapsAtEight(t *testing.T) {
	d := NewDemoClient()
	sentence := "This product keeps crashing and losing my work every day. "
	raws, err := d.ExtractInsights(context.Background(), strings.Repeat(sentence, 12), "", "Acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raws) != 8 {
		t.Errorf("expected cap at 8 insights, got %d", len(raws))
	}
}

func TestDemoClusterInsights(t *testing.T) {
	d := NewDemoClient()
	insights := []core.Insight{
		{ID: "i1", Text: "Acme: pricing is too expensive"},
		{ID: "i2", Text: "Acme: plans cost a fortune at higher tiers"},
		{ID: "i3", Text: "Acme: the app crashes constantly"},
		{ID: "i4", Text: "Acme: something entirely unmatched by topics"},
	}

	clusters, err := d.ClusterInsights(context.Background(), "Acme", insights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byName := make(map[string][]string)
	for _, c := range clusters {
		byName[c.Name] = c.InsightIDs
		if c.DifferentiationMove == "" {
			t.Errorf("cluster %q missing a differentiation move", c.Name)
		}
	}
	if got := byName["Pricing concerns"]; len(got) != 2 {
		t.Errorf("expected both pricing insights bucketed, got %v", got)
	}
	if got := byName["Reliability issues"]; len(got) != 1 || got[0] != "i3" {
		t.Errorf("expected crash insight under reliability, got %v", got)
	}
	// Unmatched insights are left out for local fallback clustering.
	for name, ids := range byName {
		for _, id := range ids {
			if id == "i4" {
				t.Errorf("unmatched insight assigned to %q", name)
			}
		}
	}
}

func TestDemoGenerateArtifact(t *testing.T) {
	d := NewDemoClient()
	req := ArtifactRequest{
		ActionType:     core.ActionBattlecard,
		CompetitorName: "Acme",
		Theme: core.Theme{
			Name:                "Pricing concerns",
			SeverityScore:       0.8,
			DifferentiationMove: "Lead with transparent pricing",
		},
		Insights: []core.Insight{
			{Text: "Acme: pricing is too expensive", Quote: "too expensive",
				Sources: []core.SourceRef{{URL: "https://g2.com/acme", Date: "2026-08-01"}}},
		},
	}

	draft, err := d.GenerateArtifact(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(draft.Content, "# Battlecard: Pricing concerns") {
		t.Errorf("missing title, got:\n%s", draft.Content)
	}
	if !strings.Contains(draft.Content, "Lead with transparent pricing") {
		t.Error("missing differentiation move section")
	}

	cits, failed := citations.ParseJSON(draft.CitationsJSON)
	if failed != 0 {
		t.Errorf("demo citations must all parse, %d failed", failed)
	}
	if len(cits) != 1 || cits[0].Quote != "too expensive" {
		t.Errorf("unexpected citations: %+v", cits)
	}
}

func TestDemoJudgeCoverageTracksCitations(t *testing.T) {
	d := NewDemoClient()

	scores, err := d.JudgeArtifact(context.Background(), core.Artifact{
		Citations: []core.Citation{{Quote: "a"}, {Quote: "b"}, {Quote: "c"}, {Quote: "d"}},
	}, "theme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores.EvidenceCoverage != 1.0 {
		t.Errorf("4 citations should saturate coverage, got %v", scores.EvidenceCoverage)
	}

	scores, _ = d.JudgeArtifact(context.Background(), core.Artifact{}, "theme")
	if scores.EvidenceCoverage != 0 {
		t.Errorf("no citations should zero coverage, got %v", scores.EvidenceCoverage)
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("é", 10)
	got := truncate(long, 8)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if got != strings.Repeat("é", 5)+"..." {
		t.Errorf("unexpected truncation %q", got)
	}

	short := "héllo"
	if truncate(short, 8) != short {
		t.Errorf("short strings must pass through unchanged")
	}
}

func TestDemoEmbeddingDeterministic(t *testing.T) {
	d := NewDemoClient()
	ctx := context.Background()

	a, err := d.GenerateEmbedding(ctx, "the app crashes on startup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := d.GenerateEmbedding(ctx, "the app crashes on startup")
	if len(a) != 64 || len(b) != 64 {
		t.Fatalf("expected 64-dim vectors, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("embeddings must be deterministic")
		}
	}

	c, _ := d.GenerateEmbedding(ctx, "billing portal is confusing")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should not share a vector")
	}
}
