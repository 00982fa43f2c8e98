package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rivalscope/internal/citations"
	"rivalscope/internal/core"
	"rivalscope/internal/llm"
	"rivalscope/internal/logger"
)

// Action event kinds.
const (
	EventCreated          = "created"
	EventGenerationStart  = "generation_started"
	EventGenerated        = "generated"
	EventEvaluated        = "evaluated"
	EventGenerationFailed = "generation_failed"
	EventAccepted         = "accepted"
	EventRejected         = "rejected"
)

// CreateActionRequest carries the user's decision on a theme.
type CreateActionRequest struct {
	ThemeID    string
	ActionType core.ActionType
	Title      string
	Owner      string
	DueDate    string
}

// CreateAction records a follow-up decision on a theme. Battlecard,
// messaging, and roadmap actions generate and evaluate their artifact
// immediately; a failed generation leaves the action pending with its
// failure recorded, it never fails the creation. Ignore actions complete
// immediately and never generate anything.
func (o *Orchestrator) CreateAction(ctx context.Context, req CreateActionRequest) (*core.Action, error) {
	switch req.ActionType {
	case core.ActionBattlecard, core.ActionMessaging, core.ActionRoadmap, core.ActionIgnore:
	default:
		return nil, fmt.Errorf("%w: unknown action type %q", core.ErrValidation, req.ActionType)
	}

	theme, err := o.store.Themes().Get(ctx, req.ThemeID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultTitle(req.ActionType, theme.Name)
	}

	status := core.ActionPending
	if req.ActionType == core.ActionIgnore {
		status = core.ActionDone
	}

	action := &core.Action{
		ID:           uuid.NewString(),
		ThemeID:      theme.ID,
		CompetitorID: theme.CompetitorID,
		ActionType:   req.ActionType,
		Title:        title,
		Owner:        req.Owner,
		DueDate:      req.DueDate,
		Status:       status,
		GenState:     core.GenCreated,
		CreatedAt:    time.Now().UTC(),
	}
	if err := o.store.Actions().Create(ctx, action); err != nil {
		return nil, err
	}
	o.recordEvent(ctx, action.ID, EventCreated, string(req.ActionType))

	if req.ActionType != core.ActionIgnore {
		if _, _, err := o.Generate(ctx, action.ID); err != nil {
			logger.Warn("Generation on action creation failed", map[string]interface{}{
				"action_id": action.ID, "error": err.Error(),
			})
		}
		if updated, err := o.store.Actions().Get(ctx, action.ID); err == nil {
			action = updated
		}
	}
	return action, nil
}

// Generate produces (or regenerates) the action's artifact and evaluates
// it. Only one generation runs per action at a time; a second concurrent
// call gets a state conflict. Replacement of artifact and evaluation is
// atomic, so a failed regeneration leaves the previous pair intact.
func (o *Orchestrator) Generate(ctx context.Context, actionID string) (*core.Artifact, *core.Evaluation, error) {
	if !o.genLocks.acquire(actionID) {
		return nil, nil, fmt.Errorf("%w: generation already in progress for action %s", core.ErrStateConflict, actionID)
	}
	defer o.genLocks.release(actionID)

	action, err := o.store.Actions().Get(ctx, actionID)
	if err != nil {
		return nil, nil, err
	}
	if action.ActionType == core.ActionIgnore {
		return nil, nil, fmt.Errorf("%w: ignore actions have no artifact", core.ErrValidation)
	}
	if existing, err := o.store.Artifacts().GetByAction(ctx, actionID); err == nil && existing.Accepted {
		return nil, nil, fmt.Errorf("%w: artifact already accepted and is immutable", core.ErrStateConflict)
	}

	theme, err := o.store.Themes().Get(ctx, action.ThemeID)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot generate for action %s: %w", actionID, err)
	}
	competitor, err := o.store.Competitors().Get(ctx, action.CompetitorID)
	if err != nil {
		return nil, nil, err
	}
	insights, err := o.store.Insights().ListByIDs(ctx, theme.InsightIDs)
	if err != nil {
		return nil, nil, err
	}

	if err := o.store.Actions().UpdateGenState(ctx, actionID, core.GenGenerating); err != nil {
		return nil, nil, err
	}
	o.recordEvent(ctx, actionID, EventGenerationStart, "")

	artifact, failedCits, err := o.generateWithRetry(ctx, action, theme, competitor.Name, insights)
	if err != nil {
		_ = o.store.Actions().UpdateGenState(ctx, actionID, core.GenFailed)
		o.recordEvent(ctx, actionID, EventGenerationFailed, err.Error())
		return nil, nil, err
	}
	o.recordEvent(ctx, actionID, EventGenerated, artifact.ID)

	if err := o.store.Actions().UpdateGenState(ctx, actionID, core.GenEvaluating); err != nil {
		return nil, nil, err
	}

	eval := o.evaluator.Evaluate(ctx, *artifact, theme.Name, failedCits)
	finalState := core.GenEvaluatedPassed
	if eval.Flagged {
		finalState = core.GenEvaluatedFlagged
	}

	if err := o.store.Artifacts().ReplaceForAction(ctx, actionID, artifact, &eval, finalState); err != nil {
		return nil, nil, err
	}
	o.recordEvent(ctx, actionID, EventEvaluated, fmt.Sprintf("overall %.2f flagged=%t", eval.OverallScore, eval.Flagged))

	return artifact, &eval, nil
}

// generateWithRetry runs the writer with one transparent retry. Upstream
// timeouts, malformed output, and citation-free drafts are all retryable
// once; any second failure surfaces as generation failure.
func (o *Orchestrator) generateWithRetry(ctx context.Context, action *core.Action, theme *core.Theme, competitorName string, insights []core.Insight) (*core.Artifact, int, error) {
	req := llm.ArtifactRequest{
		ActionType:     action.ActionType,
		CompetitorName: competitorName,
		Theme:          *theme,
		Insights:       insights,
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying artifact generation", map[string]interface{}{
				"action_id": action.ID, "error": lastErr.Error(),
			})
		}

		draft, err := o.client.GenerateArtifact(ctx, req)
		if err != nil {
			lastErr = err
			if retryable(err) {
				continue
			}
			return nil, 0, err
		}

		cits, failed := citations.ParseJSON(draft.CitationsJSON)
		if len(cits) == 0 {
			// An uncited artifact is unusable evidence-wise and counts as a
			// failed generation, not a low score.
			lastErr = fmt.Errorf("%w: artifact has no usable citations", core.ErrUpstreamMalformed)
			continue
		}

		return &core.Artifact{
			ID:           uuid.NewString(),
			ActionID:     action.ID,
			Content:      draft.Content,
			ArtifactType: action.ActionType,
			Citations:    cits,
			CreatedAt:    time.Now().UTC(),
		}, failed, nil
	}
	return nil, 0, lastErr
}

func retryable(err error) bool {
	return errors.Is(err, core.ErrUpstreamTimeout) || errors.Is(err, core.ErrUpstreamMalformed)
}

// Accept marks the action's artifact as final. The action completes and
// the artifact becomes immutable.
func (o *Orchestrator) Accept(ctx context.Context, actionID string) (*core.Artifact, error) {
	artifact, err := o.store.Artifacts().GetByAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if artifact.Accepted {
		return nil, fmt.Errorf("%w: artifact already accepted", core.ErrStateConflict)
	}

	if err := o.store.Artifacts().MarkAccepted(ctx, artifact.ID); err != nil {
		return nil, err
	}
	if err := o.store.Actions().UpdateStatus(ctx, actionID, core.ActionDone); err != nil {
		return nil, err
	}
	artifact.Accepted = true
	o.recordEvent(ctx, actionID, EventAccepted, artifact.ID)
	return artifact, nil
}

// Reject sends the action back to pending. The artifact is kept for
// reference until a regeneration replaces it.
func (o *Orchestrator) Reject(ctx context.Context, actionID string) error {
	artifact, err := o.store.Artifacts().GetByAction(ctx, actionID)
	if err != nil {
		return err
	}
	if artifact.Accepted {
		return fmt.Errorf("%w: accepted artifacts cannot be rejected", core.ErrStateConflict)
	}

	if err := o.store.Actions().UpdateStatus(ctx, actionID, core.ActionPending); err != nil {
		return err
	}
	o.recordEvent(ctx, actionID, EventRejected, artifact.ID)
	return nil
}

// ActionDetail is an action joined with its artifact, evaluation, and
// event history.
type ActionDetail struct {
	Action     core.Action        `json:"action"`
	Artifact   *core.Artifact     `json:"artifact,omitempty"`
	Evaluation *core.Evaluation   `json:"evaluation,omitempty"`
	Events     []core.ActionEvent `json:"events,omitempty"`
}

// GetActionDetail loads the action with everything attached to it.
func (o *Orchestrator) GetActionDetail(ctx context.Context, actionID string) (*ActionDetail, error) {
	action, err := o.store.Actions().Get(ctx, actionID)
	if err != nil {
		return nil, err
	}
	detail := &ActionDetail{Action: *action}

	if artifact, err := o.store.Artifacts().GetByAction(ctx, actionID); err == nil {
		detail.Artifact = artifact
		if eval, err := o.store.Evaluations().GetByArtifact(ctx, artifact.ID); err == nil {
			detail.Evaluation = eval
		}
	}
	if events, err := o.store.ActionEvents().ListByAction(ctx, actionID); err == nil {
		detail.Events = events
	}
	return detail, nil
}

// recordEvent appends to the action's event log. Event writes are
// best-effort; they never fail the operation that triggered them.
func (o *Orchestrator) recordEvent(ctx context.Context, actionID, kind, detail string) {
	ev := &core.ActionEvent{
		ID:        uuid.NewString(),
		ActionID:  actionID,
		Kind:      kind,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.store.ActionEvents().Append(ctx, ev); err != nil {
		logger.Warn("Failed to record action event", map[string]interface{}{
			"action_id": actionID, "kind": kind, "error": err.Error(),
		})
	}
}

func defaultTitle(t core.ActionType, themeName string) string {
	switch t {
	case core.ActionBattlecard:
		return "Battlecard: " + themeName
	case core.ActionMessaging:
		return "Messaging: " + themeName
	case core.ActionRoadmap:
		return "Roadmap: " + themeName
	case core.ActionIgnore:
		return "Ignore: " + themeName
	default:
		return themeName
	}
}
