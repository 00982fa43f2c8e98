package core

import "time"

// SourceStatus tracks a Source through the ingestion pipeline.
type SourceStatus string

const (
	SourceStatusPending    SourceStatus = "pending"
	SourceStatusProcessing SourceStatus = "processing"
	SourceStatusDone       SourceStatus = "done"
	SourceStatusFailed     SourceStatus = "failed"
)

// SourceOrigin describes how a Source entered the system.
type SourceOrigin string

const (
	OriginURL    SourceOrigin = "url"
	OriginPasted SourceOrigin = "pasted-text"
	OriginUpload SourceOrigin = "upload"
)

// Sentiment is the discrete sentiment category of an insight or theme.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// ActionType is the kind of follow-up a user chose for a theme.
type ActionType string

const (
	ActionBattlecard ActionType = "battlecard"
	ActionMessaging  ActionType = "messaging"
	ActionRoadmap    ActionType = "roadmap"
	ActionIgnore     ActionType = "ignore"
)

// ActionStatus is the user-facing status of an action.
type ActionStatus string

const (
	ActionPending ActionStatus = "pending"
	ActionDone    ActionStatus = "done"
)

// GenerationState tracks an action's artifact generation lifecycle.
type GenerationState string

const (
	GenCreated          GenerationState = "created"
	GenGenerating       GenerationState = "generating"
	GenGenerated        GenerationState = "generated"
	GenEvaluating       GenerationState = "evaluating"
	GenEvaluatedPassed  GenerationState = "evaluated_passed"
	GenEvaluatedFlagged GenerationState = "evaluated_flagged"
	GenFailed           GenerationState = "generation_failed"
)

// Competitor is a company under competitive watch.
type Competitor struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url,omitempty"`
	Sector      string    `json:"sector,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Source is one raw input unit (a fetched URL, pasted text, or upload).
// Immutable once its status reaches done.
type Source struct {
	ID           string       `json:"id"`
	CompetitorID string       `json:"competitor_id"`
	URL          string       `json:"url,omitempty"`
	Origin       SourceOrigin `json:"origin"`
	SourceType   string       `json:"source_type"` // reddit, g2, forum, blog, pricing, web, manual
	Status       SourceStatus `json:"status"`
	RawText      string       `json:"raw_text,omitempty"`
	Error        string       `json:"error,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// SourceRef points at where a piece of evidence came from.
type SourceRef struct {
	URL  string `json:"url,omitempty"`
	Date string `json:"date,omitempty"`
}

// Insight is one atomic, cited observation extracted from source text.
// Immutable after creation; dedup may append to Sources.
type Insight struct {
	ID             string      `json:"id"`
	SourceID       string      `json:"source_id"`
	CompetitorID   string      `json:"competitor_id"`
	Text           string      `json:"text"`
	Quote          string      `json:"quote,omitempty"`
	Sentiment      Sentiment   `json:"sentiment"`
	SentimentScore float64     `json:"sentiment_score"` // -1.0 to 1.0
	Persona        string      `json:"persona,omitempty"`
	Confidence     float64     `json:"confidence"` // 0.0 to 1.0
	LowConfidence  bool        `json:"low_confidence"`
	Sources        []SourceRef `json:"sources,omitempty"` // provenance, grows when near-duplicates merge in
	ThemeID        string      `json:"theme_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Theme is a cluster of semantically related insights with aggregate scoring.
type Theme struct {
	ID                  string    `json:"id"`
	CompetitorID        string    `json:"competitor_id"`
	Name                string    `json:"name"`
	Description         string    `json:"description,omitempty"`
	Sentiment           Sentiment `json:"sentiment"`
	SeverityScore       float64   `json:"severity_score"` // 0.0 to 1.0
	Confidence          float64   `json:"confidence"`     // 0.0 to 1.0, blended over the cluster
	Frequency           int       `json:"frequency"`      // count of distinct insights assigned
	RecencyDays         int       `json:"recency_days"`   // age of the freshest supporting insight
	IsWeakness          bool      `json:"is_weakness"`
	DifferentiationMove string    `json:"differentiation_move,omitempty"`
	InsightIDs          []string  `json:"insight_ids,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Action is a user decision to act on a theme.
type Action struct {
	ID           string          `json:"id"`
	ThemeID      string          `json:"theme_id,omitempty"` // empty if the theme was deleted later
	CompetitorID string          `json:"competitor_id"`
	ActionType   ActionType      `json:"action_type"`
	Title        string          `json:"title,omitempty"`
	Owner        string          `json:"owner,omitempty"`
	DueDate      string          `json:"due_date,omitempty"`
	Status       ActionStatus    `json:"status"`
	GenState     GenerationState `json:"generation_state"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ActionEvent records a lifecycle event for an action (generation started,
// failed, artifact accepted, and so on).
type ActionEvent struct {
	ID        string    `json:"id"`
	ActionID  string    `json:"action_id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Citation is one piece of evidence attached to an artifact.
type Citation struct {
	Source string `json:"source"`
	Date   string `json:"date"`
	URL    string `json:"url,omitempty"`
	Quote  string `json:"quote,omitempty"`
}

// Artifact is a generated deliverable tied to one action (0 or 1 at a time;
// regenerating replaces it). Immutable once accepted.
type Artifact struct {
	ID           string     `json:"id"`
	ActionID     string     `json:"action_id"`
	Content      string     `json:"content"`
	ArtifactType ActionType `json:"artifact_type"`
	Citations    []Citation `json:"citations"`
	Accepted     bool       `json:"accepted"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Evaluation is the five-rubric quality scoring of one artifact.
// Replaced whenever the artifact is regenerated.
type Evaluation struct {
	ID                string    `json:"id"`
	ArtifactID        string    `json:"artifact_id"`
	Relevance         float64   `json:"relevance"`
	EvidenceCoverage  float64   `json:"evidence_coverage"`
	HallucinationRisk float64   `json:"hallucination_risk"` // inverted: 1.0 = no risk
	Actionability     float64   `json:"actionability"`
	Freshness         float64   `json:"freshness"`
	OverallScore      float64   `json:"overall_score"`
	Flagged           bool      `json:"flagged"`
	FlagReason        string    `json:"flag_reason,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Report is an immutable point-in-time competitive snapshot.
type Report struct {
	ID           string    `json:"id"`
	CompetitorID string    `json:"competitor_id"`
	ReportType   string    `json:"report_type"` // snapshot
	Title        string    `json:"title"`
	Content      string    `json:"content"` // JSON-encoded Snapshot
	CreatedAt    time.Time `json:"created_at"`
}

// Snapshot is the structured payload stored inside a Report.
type Snapshot struct {
	Title              string           `json:"title"`
	SWOT               SWOT             `json:"swot"`
	PositioningAngle   string           `json:"positioning_angle"`
	TopWeaknesses      []RankedWeakness `json:"top_weaknesses"`
	RecommendedActions []string         `json:"recommended_actions"`
	AcceptedArtifacts  []string         `json:"accepted_artifacts,omitempty"` // titles of delivered deliverables
	EvidenceCount      int              `json:"evidence_count"`
	ThemeCount         int              `json:"theme_count"`
	AvgConfidence      float64          `json:"avg_confidence"`
}

// SWOT buckets derived from themes and artifacts.
type SWOT struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// RankedWeakness is one entry in a snapshot's top-weakness list.
type RankedWeakness struct {
	Name     string  `json:"name"`
	Severity float64 `json:"severity"`
	Evidence string  `json:"evidence,omitempty"`
}

// MonitoringSummary aggregates quality metrics across all artifacts.
type MonitoringSummary struct {
	TotalArtifacts       int          `json:"total_artifacts"`
	AvgRelevance         float64      `json:"avg_relevance"`
	AvgEvidenceCoverage  float64      `json:"avg_evidence_coverage"`
	AvgHallucinationRisk float64      `json:"avg_hallucination_risk"`
	AvgActionability     float64      `json:"avg_actionability"`
	AvgFreshness         float64      `json:"avg_freshness"`
	AvgOverall           float64      `json:"avg_overall"`
	FlaggedCount         int          `json:"flagged_count"`
	AcceptedCount        int          `json:"accepted_count"`
	PendingReview        int          `json:"pending_review"`
	Evaluations          []Evaluation `json:"evaluations,omitempty"`
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Status            string `json:"status"` // success, warning, error
	SourcesCreated    int    `json:"sources_created"`
	InsightsExtracted int    `json:"insights_extracted"`
	ThemesGenerated   int    `json:"themes_generated"`
	Message           string `json:"message,omitempty"`
}

// ClampUnit clamps a score to [0, 1]. Collaborator output is untrusted, so
// every score field passes through here (or ClampSigned) before storage.
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampSigned clamps a sentiment score to [-1, 1].
func ClampSigned(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// RecencyFactor converts an evidence age in days into a 0-1 weight.
// Full credit within 60 days, linear decay to zero by 180.
func RecencyFactor(ageDays int) float64 {
	switch {
	case ageDays <= 60:
		return 1.0
	case ageDays >= 180:
		return 0.0
	default:
		return float64(180-ageDays) / 120.0
	}
}
