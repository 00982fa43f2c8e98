package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rivalscope/internal/core"
	"rivalscope/internal/quality"
	"rivalscope/internal/report"
)

// BuildReport snapshots the competitor's current state and stores it.
// Reports are append-only; rebuilding creates a new one.
func (o *Orchestrator) BuildReport(ctx context.Context, competitorID string) (*core.Report, error) {
	competitor, err := o.store.Competitors().Get(ctx, competitorID)
	if err != nil {
		return nil, err
	}
	themeSet, err := o.store.Themes().ListByCompetitor(ctx, competitorID)
	if err != nil {
		return nil, err
	}

	actions, err := o.store.Actions().List(ctx, competitorID)
	if err != nil {
		return nil, err
	}
	var delivered []report.Deliverable
	for _, act := range actions {
		if act.ActionType == core.ActionIgnore {
			continue
		}
		artifact, err := o.store.Artifacts().GetByAction(ctx, act.ID)
		if err != nil || !artifact.Accepted {
			continue
		}
		delivered = append(delivered, report.Deliverable{
			ThemeID: act.ThemeID,
			Type:    act.ActionType,
			Title:   act.Title,
		})
	}

	snap := report.BuildSnapshot(*competitor, themeSet, delivered)
	content, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	rep := &core.Report{
		ID:           uuid.NewString(),
		CompetitorID: competitorID,
		ReportType:   "snapshot",
		Title:        snap.Title,
		Content:      string(content),
		CreatedAt:    time.Now().UTC(),
	}
	if err := o.store.Reports().Create(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// Monitoring aggregates evaluation quality across all artifacts.
func (o *Orchestrator) Monitoring(ctx context.Context) (core.MonitoringSummary, error) {
	evals, err := o.store.Evaluations().ListAll(ctx)
	if err != nil {
		return core.MonitoringSummary{}, err
	}
	artifacts, err := o.store.Artifacts().ListAll(ctx)
	if err != nil {
		return core.MonitoringSummary{}, err
	}
	return quality.Summarize(evals, artifacts), nil
}
