// Package persistence defines the storage contracts and the SQLite
// implementation behind them. Callers depend on the interfaces; the
// concrete store is injected at startup.
package persistence

import (
	"context"

	"rivalscope/internal/core"
)

// CompetitorRepository manages competitor records.
type CompetitorRepository interface {
	Create(ctx context.Context, c *core.Competitor) error
	Get(ctx context.Context, id string) (*core.Competitor, error)
	GetByName(ctx context.Context, name string) (*core.Competitor, error)
	List(ctx context.Context) ([]core.Competitor, error)
	Update(ctx context.Context, c *core.Competitor) error
	Delete(ctx context.Context, id string) error
}

// SourceRepository manages raw input records.
type SourceRepository interface {
	Create(ctx context.Context, s *core.Source) error
	Get(ctx context.Context, id string) (*core.Source, error)
	ListByCompetitor(ctx context.Context, competitorID string) ([]core.Source, error)
	UpdateStatus(ctx context.Context, id string, status core.SourceStatus, errMsg string) error
}

// InsightRepository manages extracted insights. Insights are immutable
// except for provenance merges and theme assignment.
type InsightRepository interface {
	Create(ctx context.Context, ins *core.Insight) error
	Get(ctx context.Context, id string) (*core.Insight, error)
	ListByCompetitor(ctx context.Context, competitorID string) ([]core.Insight, error)
	ListByIDs(ctx context.Context, ids []string) ([]core.Insight, error)
	UpdateSources(ctx context.Context, id string, sources []core.SourceRef) error
	AssignTheme(ctx context.Context, insightID, themeID string) error
}

// ThemeRepository manages theme clusters. Reclustering replaces a
// competitor's whole theme set in one transaction.
type ThemeRepository interface {
	ReplaceForCompetitor(ctx context.Context, competitorID string, themes []core.Theme) error
	Get(ctx context.Context, id string) (*core.Theme, error)
	ListByCompetitor(ctx context.Context, competitorID string) ([]core.Theme, error)
}

// ActionRepository manages user-created actions.
type ActionRepository interface {
	Create(ctx context.Context, a *core.Action) error
	Get(ctx context.Context, id string) (*core.Action, error)
	List(ctx context.Context, competitorID string) ([]core.Action, error)
	UpdateStatus(ctx context.Context, id string, status core.ActionStatus) error
	UpdateGenState(ctx context.Context, id string, state core.GenerationState) error
}

// ActionEventRepository appends lifecycle events. Append-only.
type ActionEventRepository interface {
	Append(ctx context.Context, ev *core.ActionEvent) error
	ListByAction(ctx context.Context, actionID string) ([]core.ActionEvent, error)
}

// ArtifactRepository manages generated deliverables. An action has at most
// one artifact; regeneration replaces the artifact and its evaluation
// atomically via ReplaceForAction.
type ArtifactRepository interface {
	GetByAction(ctx context.Context, actionID string) (*core.Artifact, error)
	Get(ctx context.Context, id string) (*core.Artifact, error)
	ListAll(ctx context.Context) ([]core.Artifact, error)
	ReplaceForAction(ctx context.Context, actionID string, artifact *core.Artifact, eval *core.Evaluation, state core.GenerationState) error
	MarkAccepted(ctx context.Context, id string) error
}

// EvaluationRepository reads rubric evaluations. Writes happen only through
// ArtifactRepository.ReplaceForAction so artifact and evaluation stay paired.
type EvaluationRepository interface {
	GetByArtifact(ctx context.Context, artifactID string) (*core.Evaluation, error)
	ListAll(ctx context.Context) ([]core.Evaluation, error)
}

// ReportRepository manages snapshots. Append-only; reports are never
// updated or deleted.
type ReportRepository interface {
	Create(ctx context.Context, r *core.Report) error
	Get(ctx context.Context, id string) (*core.Report, error)
	ListByCompetitor(ctx context.Context, competitorID string) ([]core.Report, error)
}

// Store bundles all repositories over one database handle.
type Store interface {
	Competitors() CompetitorRepository
	Sources() SourceRepository
	Insights() InsightRepository
	Themes() ThemeRepository
	Actions() ActionRepository
	ActionEvents() ActionEventRepository
	Artifacts() ArtifactRepository
	Evaluations() EvaluationRepository
	Reports() ReportRepository
	Close() error
}
