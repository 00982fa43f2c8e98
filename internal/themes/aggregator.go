// Package themes clusters insights into named themes and computes their
// aggregate scores: severity, confidence, frequency, recency, and the
// weakness flag. Clustering is deterministic for a given insight set, so
// reclustering the same inputs reproduces the same themes.
package themes

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"rivalscope/internal/core"
	"rivalscope/internal/dedup"
	"rivalscope/internal/insight"
	"rivalscope/internal/logger"
)

const (
	// localClusterThreshold groups insights in the fallback clusterer.
	localClusterThreshold = 0.55
	// severityCeiling keeps the top re-normalized severity just under 1.
	severityCeiling = 0.95
	// DefaultWeaknessBar is the severity a negative theme must exceed to
	// count as a weakness.
	DefaultWeaknessBar = 0.3
)

// RawCluster is the structured schema the clustering collaborator returns.
type RawCluster struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	DifferentiationMove string   `json:"differentiation_move"`
	InsightIDs          []string `json:"insight_ids"`
}

// Clusterer is the generation collaborator in clustering mode. It proposes
// a partition of the insights with names and descriptions; the aggregator
// validates the partition and computes all scores locally.
type Clusterer interface {
	ClusterInsights(ctx context.Context, competitorName string, insights []core.Insight) ([]RawCluster, error)
}

// Aggregator builds scored themes from insights.
type Aggregator struct {
	clusterer   Clusterer
	scorer      *insight.Scorer
	dedup       *dedup.Deduplicator
	weaknessBar float64
}

// NewAggregator wires the aggregator. clusterer may be nil, in which case
// the local similarity clusterer is used for everything.
func NewAggregator(clusterer Clusterer, scorer *insight.Scorer, dd *dedup.Deduplicator, weaknessBar float64) *Aggregator {
	if weaknessBar <= 0 {
		weaknessBar = DefaultWeaknessBar
	}
	return &Aggregator{clusterer: clusterer, scorer: scorer, dedup: dd, weaknessBar: weaknessBar}
}

// BuildThemes clusters the competitor's insights and scores each cluster.
// Inputs are sorted first so the same insight set always yields the same
// themes, ids included.
func (a *Aggregator) BuildThemes(ctx context.Context, competitorID, competitorName string, insights []core.Insight) ([]core.Theme, error) {
	if len(insights) == 0 {
		return nil, nil
	}

	sorted := make([]core.Insight, len(insights))
	copy(sorted, insights)
	insight.SortStable(sorted)

	byID := make(map[string]core.Insight, len(sorted))
	for _, ins := range sorted {
		byID[ins.ID] = ins
	}

	clusters := a.mergeClusters(ctx, a.partition(ctx, competitorName, sorted), byID)

	now := time.Now().UTC()
	var themes []core.Theme
	var rawSeverities []float64

	for _, cl := range clusters {
		members := make([]core.Insight, 0, len(cl.InsightIDs))
		for _, id := range cl.InsightIDs {
			if ins, ok := byID[id]; ok {
				members = append(members, ins)
			}
		}
		if len(members) == 0 {
			continue
		}

		freq := len(members)
		freqNorm := float64(freq) / float64(len(sorted))
		recencyDays := freshestAge(members, now)
		strength := meanSentimentStrength(members)
		rawSeverity := freqNorm * strength * core.RecencyFactor(recencyDays)

		name := strings.TrimSpace(cl.Name)
		if name == "" {
			name = fallbackName(members[0].Text)
		}

		theme := core.Theme{
			ID:                  themeID(competitorID, members),
			CompetitorID:        competitorID,
			Name:                name,
			Description:         cl.Description,
			Sentiment:           dominantSentiment(members),
			SeverityScore:       rawSeverity, // re-normalized below
			Confidence:          a.scorer.ClusterConfidence(members, freqNorm),
			Frequency:           freq,
			RecencyDays:         recencyDays,
			DifferentiationMove: cl.DifferentiationMove,
			InsightIDs:          memberIDs(members),
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		themes = append(themes, theme)
		rawSeverities = append(rawSeverities, rawSeverity)
	}

	normalizeSeverities(themes, rawSeverities)
	for i := range themes {
		themes[i].IsWeakness = themes[i].Sentiment == core.SentimentNegative &&
			themes[i].SeverityScore > a.weaknessBar
	}

	SortThemes(themes)

	logger.Info("Built themes", map[string]interface{}{
		"competitor_id": competitorID, "insights": len(sorted), "themes": len(themes),
	})
	return themes, nil
}

// partition asks the collaborator for a clustering and validates it; any
// insight the collaborator missed or misassigned joins a local fallback
// pass, and a collaborator failure degrades to full local clustering.
func (a *Aggregator) partition(ctx context.Context, competitorName string, sorted []core.Insight) []RawCluster {
	known := make(map[string]bool, len(sorted))
	for _, ins := range sorted {
		known[ins.ID] = true
	}

	var clusters []RawCluster
	if a.clusterer != nil {
		proposed, err := a.clusterer.ClusterInsights(ctx, competitorName, sorted)
		if err != nil {
			logger.Warn("Clustering collaborator failed, using local clustering", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			clusters = validateClusters(proposed, known)
		}
	}

	assigned := make(map[string]bool)
	for _, cl := range clusters {
		for _, id := range cl.InsightIDs {
			assigned[id] = true
		}
	}
	var leftover []core.Insight
	for _, ins := range sorted {
		if !assigned[ins.ID] {
			leftover = append(leftover, ins)
		}
	}
	if len(leftover) > 0 {
		clusters = append(clusters, a.localCluster(ctx, leftover)...)
	}
	return clusters
}

// validateClusters drops unknown ids and keeps each insight in its first
// assigned cluster only, so the result is a real partition.
func validateClusters(proposed []RawCluster, known map[string]bool) []RawCluster {
	taken := make(map[string]bool)
	var out []RawCluster
	for _, cl := range proposed {
		var ids []string
		for _, id := range cl.InsightIDs {
			if known[id] && !taken[id] {
				taken[id] = true
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		cl.InsightIDs = ids
		out = append(out, cl)
	}
	return out
}

// mergeClusters folds clusters that describe the same finding under
// different names into one, so the same weakness phrased two ways cannot
// surface as two themes. Comparison uses each cluster's name, description,
// and seed insight text against the insight dedup cutoff.
func (a *Aggregator) mergeClusters(ctx context.Context, clusters []RawCluster, byID map[string]core.Insight) []RawCluster {
	var out []RawCluster
	var reps []string
	for _, cl := range clusters {
		rep := clusterText(cl, byID)
		merged := false
		for i := range out {
			if a.dedup.Similarity(ctx, rep, reps[i]) >= a.dedup.InsightCutoff {
				out[i].InsightIDs = append(out[i].InsightIDs, cl.InsightIDs...)
				if out[i].Description == "" {
					out[i].Description = cl.Description
				}
				if out[i].DifferentiationMove == "" {
					out[i].DifferentiationMove = cl.DifferentiationMove
				}
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, cl)
			reps = append(reps, rep)
		}
	}
	return out
}

// clusterText is the representative text a cluster is deduped by.
func clusterText(cl RawCluster, byID map[string]core.Insight) string {
	parts := []string{cl.Name, cl.Description}
	if len(cl.InsightIDs) > 0 {
		if ins, ok := byID[cl.InsightIDs[0]]; ok {
			parts = append(parts, ins.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// localCluster greedily groups insights by text similarity. Input order is
// deterministic, so the grouping is too.
func (a *Aggregator) localCluster(ctx context.Context, insights []core.Insight) []RawCluster {
	type group struct {
		seed core.Insight
		ids  []string
	}
	var groups []*group

	for _, ins := range insights {
		placed := false
		for _, g := range groups {
			if a.dedup.Similarity(ctx, ins.Text, g.seed.Text) >= localClusterThreshold {
				g.ids = append(g.ids, ins.ID)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, &group{seed: ins, ids: []string{ins.ID}})
		}
	}

	clusters := make([]RawCluster, 0, len(groups))
	for _, g := range groups {
		clusters = append(clusters, RawCluster{
			Name:       fallbackName(g.seed.Text),
			InsightIDs: g.ids,
		})
	}
	return clusters
}

// normalizeSeverities rescales raw severity products so the highest lands
// at the ceiling and relative order is preserved.
func normalizeSeverities(themes []core.Theme, raw []float64) {
	maxRaw := 0.0
	for _, r := range raw {
		if r > maxRaw {
			maxRaw = r
		}
	}
	if maxRaw <= 0 {
		for i := range themes {
			themes[i].SeverityScore = 0
		}
		return
	}
	scale := severityCeiling / maxRaw
	for i := range themes {
		themes[i].SeverityScore = core.ClampUnit(raw[i] * scale)
	}
}

// SortThemes orders themes by severity, then frequency, then confidence,
// then name. The ordering is total, so equal inputs render identically.
func SortThemes(themes []core.Theme) {
	sort.Slice(themes, func(i, j int) bool {
		a, b := themes[i], themes[j]
		if a.SeverityScore != b.SeverityScore {
			return a.SeverityScore > b.SeverityScore
		}
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Name < b.Name
	})
}

// themeID derives a stable id from the competitor and the cluster's
// members, so reclustering identical inputs keeps theme identity.
func themeID(competitorID string, members []core.Insight) string {
	ids := memberIDs(members)
	sort.Strings(ids)
	seed := competitorID + "|" + strings.Join(ids, ",")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

func memberIDs(members []core.Insight) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}

func freshestAge(members []core.Insight, now time.Time) int {
	freshest := math.MaxInt32
	for _, m := range members {
		age := int(now.Sub(m.CreatedAt).Hours() / 24)
		if age < 0 {
			age = 0
		}
		if age < freshest {
			freshest = age
		}
	}
	return freshest
}

func meanSentimentStrength(members []core.Insight) float64 {
	var sum float64
	for _, m := range members {
		sum += math.Abs(m.SentimentScore)
	}
	return sum / float64(len(members))
}

// dominantSentiment is the majority sentiment across the cluster; an even
// split of positive and negative reads as mixed.
func dominantSentiment(members []core.Insight) core.Sentiment {
	counts := make(map[core.Sentiment]int)
	for _, m := range members {
		counts[m.Sentiment]++
	}
	best := core.SentimentNeutral
	bestCount := 0
	for _, s := range []core.Sentiment{core.SentimentNegative, core.SentimentPositive, core.SentimentMixed, core.SentimentNeutral} {
		if counts[s] > bestCount {
			best = s
			bestCount = counts[s]
		}
	}
	if counts[core.SentimentPositive] > 0 && counts[core.SentimentPositive] == counts[core.SentimentNegative] {
		return core.SentimentMixed
	}
	return best
}

func fallbackName(text string) string {
	words := strings.Fields(text)
	if len(words) > 6 {
		words = words[:6]
	}
	name := strings.Join(words, " ")
	if name == "" {
		return "Unnamed theme"
	}
	r := []rune(name)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
