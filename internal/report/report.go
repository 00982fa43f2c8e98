// Package report assembles point-in-time competitive snapshots from the
// current themes and the deliverables already accepted against them.
// Reports are derived views: building one never mutates pipeline state,
// and stored reports are immutable.
package report

import (
	"fmt"

	"rivalscope/internal/core"
	"rivalscope/internal/themes"
)

// topN bounds the ranked lists in a snapshot. Shorter lists pad from
// lower-ranked themes; only a genuinely sparse dataset yields fewer.
const topN = 3

// Deliverable is an accepted artifact joined to the theme it addresses.
type Deliverable struct {
	ThemeID string
	Type    core.ActionType
	Title   string
}

// BuildSnapshot derives a snapshot from the competitor's current themes
// and accepted deliverables. Works with whatever is available: an empty
// theme set yields an empty but valid snapshot.
func BuildSnapshot(competitor core.Competitor, themeSet []core.Theme, delivered []Deliverable) core.Snapshot {
	ordered := make([]core.Theme, len(themeSet))
	copy(ordered, themeSet)
	themes.SortThemes(ordered)

	snap := core.Snapshot{
		Title:      fmt.Sprintf("Competitive Snapshot: %s", competitor.Name),
		ThemeCount: len(ordered),
	}

	nameByID := make(map[string]string, len(ordered))
	var confSum float64
	for _, t := range ordered {
		nameByID[t.ID] = t.Name
		snap.EvidenceCount += t.Frequency
		confSum += t.Confidence

		switch {
		case t.IsWeakness:
			snap.SWOT.Weaknesses = append(snap.SWOT.Weaknesses, t.Name)
			if t.DifferentiationMove != "" {
				snap.SWOT.Opportunities = append(snap.SWOT.Opportunities, t.DifferentiationMove)
			}
		case t.Sentiment == core.SentimentPositive:
			snap.SWOT.Strengths = append(snap.SWOT.Strengths, t.Name)
			if t.SeverityScore >= 0.5 {
				snap.SWOT.Threats = append(snap.SWOT.Threats, fmt.Sprintf("%s resonates with their users", t.Name))
			}
		}
	}
	if len(ordered) > 0 {
		snap.AvgConfidence = confSum / float64(len(ordered))
	}

	// covered maps a theme name to the deliverable type already accepted
	// against it.
	covered := make(map[string]core.ActionType, len(delivered))
	for _, d := range delivered {
		if name, ok := nameByID[d.ThemeID]; ok {
			covered[name] = d.Type
		}
		snap.AcceptedArtifacts = append(snap.AcceptedArtifacts, d.Title)
	}

	snap.TopWeaknesses = rankWeaknesses(ordered)
	snap.PositioningAngle = positioningAngle(snap.TopWeaknesses, ordered)
	snap.RecommendedActions = recommend(snap.TopWeaknesses, covered)
	return snap
}

// rankWeaknesses picks the top weaknesses by severity, padding from
// lower-ranked non-positive themes so the list holds topN entries whenever
// enough themes exist. Ordering is already total from SortThemes, so the
// cut is deterministic.
func rankWeaknesses(ordered []core.Theme) []core.RankedWeakness {
	var out []core.RankedWeakness
	add := func(t core.Theme) {
		evidence := ""
		if t.Frequency > 0 {
			evidence = fmt.Sprintf("%d insights, freshest %d days old", t.Frequency, t.RecencyDays)
		}
		out = append(out, core.RankedWeakness{
			Name:     t.Name,
			Severity: t.SeverityScore,
			Evidence: evidence,
		})
	}

	for _, t := range ordered {
		if t.IsWeakness {
			add(t)
			if len(out) == topN {
				return out
			}
		}
	}
	for _, t := range ordered {
		if t.IsWeakness || t.Sentiment == core.SentimentPositive {
			continue
		}
		add(t)
		if len(out) == topN {
			break
		}
	}
	return out
}

func positioningAngle(weaknesses []core.RankedWeakness, ordered []core.Theme) string {
	if len(weaknesses) == 0 {
		return "No exploitable weaknesses identified yet; gather more sources."
	}
	top := weaknesses[0]
	for _, t := range ordered {
		if t.Name == top.Name && t.DifferentiationMove != "" {
			return t.DifferentiationMove
		}
	}
	return fmt.Sprintf("Differentiate against their weakness on %q", top.Name)
}

// recommend proposes one action per ranked weakness. A weakness that
// already has an accepted deliverable gets a refresh recommendation
// instead of a duplicate.
func recommend(weaknesses []core.RankedWeakness, covered map[string]core.ActionType) []string {
	var out []string
	for _, w := range weaknesses {
		if t, ok := covered[w.Name]; ok {
			out = append(out, fmt.Sprintf("Refresh the accepted %s for %q as new evidence arrives", t, w.Name))
			continue
		}
		out = append(out, fmt.Sprintf("Create a battlecard targeting %q (severity %.2f)", w.Name, w.Severity))
	}
	return out
}
