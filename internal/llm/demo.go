package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	"rivalscope/internal/citations"
	"rivalscope/internal/core"
	"rivalscope/internal/insight"
	"rivalscope/internal/quality"
	"rivalscope/internal/sentiment"
	"rivalscope/internal/themes"
)

// demoTopics route insights into named themes by keyword.
var demoTopics = []struct {
	name     string
	move     string
	keywords []string
}{
	{"Pricing concerns", "Lead with transparent per-seat pricing in comparisons", []string{"price", "pricing", "expensive", "overpriced", "pricey", "cost", "plan", "tier"}},
	{"Reliability issues", "Publish an uptime SLA and status page front and center", []string{"crash", "crashes", "outage", "downtime", "bug", "buggy", "unreliable", "broken", "slow"}},
	{"Support complaints", "Offer guaranteed first-response times on all tiers", []string{"support", "ticket", "ignored", "waiting", "unresponsive", "response"}},
	{"Usability friction", "Invest in guided onboarding and in-app help", []string{"confusing", "clunky", "onboarding", "intuitive", "easy", "learning", "ui", "ux"}},
	{"Feature gaps", "Ship the most-requested missing integration first", []string{"missing", "lacking", "lacks", "limited", "integration", "api", "export"}},
}

// DemoClient is a deterministic, offline collaborator. Same inputs always
// produce the same outputs, which makes it usable in tests and demos
// without a key.
type DemoClient struct {
	analyzer *sentiment.Analyzer
}

// NewDemoClient creates the demo collaborator.
func NewDemoClient() *DemoClient {
	return &DemoClient{analyzer: sentiment.NewAnalyzer()}
}

// Close is a no-op for the demo client.
func (d *DemoClient) Close() error { return nil }

// ExtractInsights derives one insight per substantial sentence, scored by
// the local lexicon.
func (d *DemoClient) ExtractInsights(_ context.Context, chunk, sourceURL, competitorName string) ([]insight.RawInsight, error) {
	persona := "Reviewer"
	switch {
	case strings.Contains(sourceURL, "reddit"):
		persona = "Reddit user"
	case strings.Contains(sourceURL, "g2"):
		persona = "G2 reviewer"
	case sourceURL == "":
		persona = "Pasted note"
	}

	var raws []insight.RawInsight
	for _, sentence := range splitSentences(chunk) {
		if len(raws) >= 8 {
			break
		}
		score, sent := d.analyzer.Score(sentence)
		raws = append(raws, insight.RawInsight{
			Text:           fmt.Sprintf("%s: %s", competitorName, truncate(sentence, 160)),
			Sentiment:      string(sent),
			SentimentScore: score,
			Persona:        persona,
			Quote:          truncate(sentence, 200),
			Confidence:     0.7,
		})
	}
	return raws, nil
}

// ClusterInsights partitions insights by keyword topic; anything without a
// topic match is left for the caller's local clustering.
func (d *DemoClient) ClusterInsights(_ context.Context, _ string, insights []core.Insight) ([]themes.RawCluster, error) {
	buckets := make(map[string][]string)
	for _, ins := range insights {
		lower := strings.ToLower(ins.Text + " " + ins.Quote)
		for _, topic := range demoTopics {
			if containsAny(lower, topic.keywords) {
				buckets[topic.name] = append(buckets[topic.name], ins.ID)
				break
			}
		}
	}

	var clusters []themes.RawCluster
	for _, topic := range demoTopics {
		ids := buckets[topic.name]
		if len(ids) == 0 {
			continue
		}
		clusters = append(clusters, themes.RawCluster{
			Name:                topic.name,
			Description:         fmt.Sprintf("Recurring feedback about %s", strings.ToLower(topic.name)),
			DifferentiationMove: topic.move,
			InsightIDs:          ids,
		})
	}
	return clusters, nil
}

// GenerateArtifact renders a templated deliverable with citations built
// from the theme's own evidence.
func (d *DemoClient) GenerateArtifact(_ context.Context, req ArtifactRequest) (ArtifactDraft, error) {
	cits := citations.FromInsights(req.Insights)
	citsJSON, err := json.Marshal(cits)
	if err != nil {
		return ArtifactDraft{}, fmt.Errorf("failed to encode demo citations: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s: %s\n\n", titleFor(req.ActionType), req.Theme.Name)
	fmt.Fprintf(&sb, "Competitor: %s\n\n", req.CompetitorName)
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "%d pieces of evidence point to %q (severity %.2f, confidence %.2f).\n\n",
		len(req.Insights), req.Theme.Name, req.Theme.SeverityScore, req.Theme.Confidence)
	sb.WriteString("## Evidence\n\n")
	for _, ins := range req.Insights {
		fmt.Fprintf(&sb, "- %s\n", ins.Text)
	}
	if req.Theme.DifferentiationMove != "" {
		sb.WriteString("\n## Recommended Angle\n\n")
		sb.WriteString(req.Theme.DifferentiationMove)
		sb.WriteString("\n")
	}

	return ArtifactDraft{Content: sb.String(), CitationsJSON: string(citsJSON)}, nil
}

// JudgeArtifact scores deterministically from the artifact's own shape.
func (d *DemoClient) JudgeArtifact(_ context.Context, artifact core.Artifact, _ string) (quality.RawScores, error) {
	coverage := float64(len(artifact.Citations)) / 3.0
	if coverage > 1 {
		coverage = 1
	}
	return quality.RawScores{
		Relevance:         0.85,
		EvidenceCoverage:  coverage,
		HallucinationRisk: 0.90,
		Actionability:     0.75,
		Freshness:         0.80,
	}, nil
}

// GenerateEmbedding hashes words into a fixed-width vector. Crude, but
// deterministic and good enough for near-duplicate detection in demo mode.
func (d *DemoClient) GenerateEmbedding(_ context.Context, text string) ([]float64, error) {
	const dims = 64
	vec := make([]float64, dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(word, ".,!?;:\"'()")))
		vec[h.Sum32()%dims]++
	}
	return vec, nil
}

func splitSentences(text string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		part = strings.TrimSpace(part)
		if len(part) >= 30 {
			out = append(out, part)
		}
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func titleFor(t core.ActionType) string {
	switch t {
	case core.ActionBattlecard:
		return "Battlecard"
	case core.ActionMessaging:
		return "Messaging Brief"
	case core.ActionRoadmap:
		return "Roadmap Recommendation"
	default:
		return "Competitive Memo"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
