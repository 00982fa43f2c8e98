package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rivalscope/internal/collect"
	"rivalscope/internal/core"
	"rivalscope/internal/dedup"
	"rivalscope/internal/logger"
)

// IngestURL fetches a URL for a competitor and runs the full extraction
// pipeline over its text.
func (o *Orchestrator) IngestURL(ctx context.Context, competitorID, rawURL string) (core.IngestResult, error) {
	if strings.TrimSpace(rawURL) == "" {
		return core.IngestResult{}, fmt.Errorf("%w: url is required", core.ErrValidation)
	}
	competitor, err := o.store.Competitors().Get(ctx, competitorID)
	if err != nil {
		return core.IngestResult{}, err
	}

	source := &core.Source{
		ID:           uuid.NewString(),
		CompetitorID: competitorID,
		URL:          rawURL,
		Origin:       core.OriginURL,
		SourceType:   collect.DetectSourceType(rawURL),
		Status:       core.SourceStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := o.store.Sources().Create(ctx, source); err != nil {
		return core.IngestResult{}, err
	}

	text, sourceType, err := o.collector.FetchURL(ctx, rawURL)
	if err != nil {
		_ = o.store.Sources().UpdateStatus(ctx, source.ID, core.SourceStatusFailed, err.Error())
		return core.IngestResult{
			Status:         "error",
			SourcesCreated: 1,
			Message:        fmt.Sprintf("fetch failed: %v", err),
		}, nil
	}
	source.SourceType = sourceType

	return o.process(ctx, competitor, source, text)
}

// IngestText runs the pipeline over pasted or uploaded text.
func (o *Orchestrator) IngestText(ctx context.Context, competitorID, text string, origin core.SourceOrigin) (core.IngestResult, error) {
	competitor, err := o.store.Competitors().Get(ctx, competitorID)
	if err != nil {
		return core.IngestResult{}, err
	}
	cleaned, err := collect.ParseRawText(text)
	if err != nil {
		return core.IngestResult{}, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	if origin == "" {
		origin = core.OriginPasted
	}

	source := &core.Source{
		ID:           uuid.NewString(),
		CompetitorID: competitorID,
		Origin:       origin,
		SourceType:   "manual",
		Status:       core.SourceStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := o.store.Sources().Create(ctx, source); err != nil {
		return core.IngestResult{}, err
	}

	return o.process(ctx, competitor, source, cleaned)
}

// process is the shared extraction path: redact, truncate, chunk, dedup,
// extract, dedup insights against the competitor's pool, persist, and
// recluster. Dedup failures degrade, they never abort the run.
func (o *Orchestrator) process(ctx context.Context, competitor *core.Competitor, source *core.Source, text string) (core.IngestResult, error) {
	if err := o.store.Sources().UpdateStatus(ctx, source.ID, core.SourceStatusProcessing, ""); err != nil {
		return core.IngestResult{}, err
	}

	text = collect.RedactPII(text)
	if len(text) > o.maxStoredText {
		text = text[:o.maxStoredText]
	}
	source.RawText = text

	chunks := o.dedup.FilterChunks(ctx, o.collector.ChunkText(text))

	var extracted []core.Insight
	failedChunks := 0
	for _, chunk := range chunks {
		insights, err := o.scorer.ScoreChunk(ctx, chunk, *source, competitor.Name)
		if err != nil {
			failedChunks++
			logger.Warn("Chunk extraction failed", map[string]interface{}{
				"source_id": source.ID, "error": err.Error(),
			})
			continue
		}
		extracted = append(extracted, insights...)
	}

	if len(extracted) == 0 {
		status := core.SourceStatusFailed
		msg := "no insights extracted"
		if failedChunks == 0 {
			// Nothing extractable is a quiet outcome, not a failure.
			status = core.SourceStatusDone
			msg = ""
		}
		_ = o.store.Sources().UpdateStatus(ctx, source.ID, status, msg)
		return core.IngestResult{
			Status:         "warning",
			SourcesCreated: 1,
			Message:        "no insights could be extracted from this source",
		}, nil
	}

	created, err := o.storeDeduped(ctx, competitor.ID, extracted)
	if err != nil {
		_ = o.store.Sources().UpdateStatus(ctx, source.ID, core.SourceStatusFailed, err.Error())
		return core.IngestResult{}, err
	}

	if err := o.store.Sources().UpdateStatus(ctx, source.ID, core.SourceStatusDone, ""); err != nil {
		return core.IngestResult{}, err
	}

	themeCount, err := o.Recluster(ctx, competitor.ID)
	if err != nil {
		logger.Error("Reclustering failed after ingest", err, map[string]interface{}{
			"competitor_id": competitor.ID,
		})
		return core.IngestResult{
			Status:            "warning",
			SourcesCreated:    1,
			InsightsExtracted: created,
			Message:           "insights stored but theme clustering failed",
		}, nil
	}

	return core.IngestResult{
		Status:            "success",
		SourcesCreated:    1,
		InsightsExtracted: created,
		ThemesGenerated:   themeCount,
	}, nil
}

// storeDeduped persists extracted insights, folding near-duplicates into
// the competitor's existing pool instead of creating new rows.
func (o *Orchestrator) storeDeduped(ctx context.Context, competitorID string, extracted []core.Insight) (int, error) {
	pool, err := o.store.Insights().ListByCompetitor(ctx, competitorID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, candidate := range extracted {
		if idx := o.dedup.MatchInsight(ctx, candidate, pool); idx >= 0 {
			retained := &pool[idx]
			before := len(retained.Sources)
			dedup.MergeProvenance(retained, candidate)
			if len(retained.Sources) != before {
				if err := o.store.Insights().UpdateSources(ctx, retained.ID, retained.Sources); err != nil {
					return created, err
				}
			}
			continue
		}

		ins := candidate
		if err := o.store.Insights().Create(ctx, &ins); err != nil {
			return created, err
		}
		pool = append(pool, ins)
		created++
	}
	return created, nil
}

// Recluster rebuilds the competitor's themes from its full insight pool.
// Runs are serialized per competitor; concurrent ingests queue up rather
// than interleave. Returns the number of themes produced.
func (o *Orchestrator) Recluster(ctx context.Context, competitorID string) (int, error) {
	mu := o.competitorLock(competitorID)
	mu.Lock()
	defer mu.Unlock()

	competitor, err := o.store.Competitors().Get(ctx, competitorID)
	if err != nil {
		return 0, err
	}
	insights, err := o.store.Insights().ListByCompetitor(ctx, competitorID)
	if err != nil {
		return 0, err
	}

	built, err := o.aggregator.BuildThemes(ctx, competitorID, competitor.Name, insights)
	if err != nil {
		return 0, err
	}

	if err := o.store.Themes().ReplaceForCompetitor(ctx, competitorID, built); err != nil {
		return 0, err
	}
	for _, theme := range built {
		for _, insightID := range theme.InsightIDs {
			if err := o.store.Insights().AssignTheme(ctx, insightID, theme.ID); err != nil {
				return 0, err
			}
		}
	}
	return len(built), nil
}
