package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"rivalscope/internal/core"
	"rivalscope/internal/logger"
)

// SQLiteStore implements Store over a local SQLite database.
type SQLiteStore struct {
	db *sql.DB

	competitors  *sqliteCompetitors
	sources      *sqliteSources
	insights     *sqliteInsights
	themes       *sqliteThemes
	actions      *sqliteActions
	actionEvents *sqliteActionEvents
	artifacts    *sqliteArtifacts
	evaluations  *sqliteEvaluations
	reports      *sqliteReports
}

// NewSQLiteStore opens (and migrates) the database under dir.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dir, "rivalscope.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent pipeline writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	s.competitors = &sqliteCompetitors{db}
	s.sources = &sqliteSources{db}
	s.insights = &sqliteInsights{db}
	s.themes = &sqliteThemes{db}
	s.actions = &sqliteActions{db}
	s.actionEvents = &sqliteActionEvents{db}
	s.artifacts = &sqliteArtifacts{db}
	s.evaluations = &sqliteEvaluations{db}
	s.reports = &sqliteReports{db}

	logger.Debug("Opened store", map[string]interface{}{"path": dbPath})
	return s, nil
}

func (s *SQLiteStore) Competitors() CompetitorRepository   { return s.competitors }
func (s *SQLiteStore) Sources() SourceRepository           { return s.sources }
func (s *SQLiteStore) Insights() InsightRepository         { return s.insights }
func (s *SQLiteStore) Themes() ThemeRepository             { return s.themes }
func (s *SQLiteStore) Actions() ActionRepository           { return s.actions }
func (s *SQLiteStore) ActionEvents() ActionEventRepository { return s.actionEvents }
func (s *SQLiteStore) Artifacts() ArtifactRepository       { return s.artifacts }
func (s *SQLiteStore) Evaluations() EvaluationRepository   { return s.evaluations }
func (s *SQLiteStore) Reports() ReportRepository           { return s.reports }

// Close closes the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS competitors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		url TEXT,
		sector TEXT,
		description TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		competitor_id TEXT NOT NULL REFERENCES competitors(id),
		url TEXT,
		origin TEXT NOT NULL,
		source_type TEXT NOT NULL,
		status TEXT NOT NULL,
		raw_text TEXT,
		error TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS insights (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		competitor_id TEXT NOT NULL,
		text TEXT NOT NULL,
		quote TEXT,
		sentiment TEXT NOT NULL,
		sentiment_score REAL NOT NULL,
		persona TEXT,
		confidence REAL NOT NULL,
		low_confidence INTEGER NOT NULL DEFAULT 0,
		sources_json TEXT,
		theme_id TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS themes (
		id TEXT PRIMARY KEY,
		competitor_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		sentiment TEXT NOT NULL,
		severity_score REAL NOT NULL,
		confidence REAL NOT NULL,
		frequency INTEGER NOT NULL,
		recency_days INTEGER NOT NULL,
		is_weakness INTEGER NOT NULL DEFAULT 0,
		differentiation_move TEXT,
		insight_ids_json TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS actions (
		id TEXT PRIMARY KEY,
		theme_id TEXT,
		competitor_id TEXT NOT NULL,
		action_type TEXT NOT NULL,
		title TEXT,
		owner TEXT,
		due_date TEXT,
		status TEXT NOT NULL,
		gen_state TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS action_events (
		id TEXT PRIMARY KEY,
		action_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		detail TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		action_id TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL,
		artifact_type TEXT NOT NULL,
		citations_json TEXT,
		accepted INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		artifact_id TEXT NOT NULL,
		relevance REAL NOT NULL,
		evidence_coverage REAL NOT NULL,
		hallucination_risk REAL NOT NULL,
		actionability REAL NOT NULL,
		freshness REAL NOT NULL,
		overall_score REAL NOT NULL,
		flagged INTEGER NOT NULL DEFAULT 0,
		flag_reason TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		competitor_id TEXT NOT NULL,
		report_type TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sources_competitor ON sources(competitor_id);
	CREATE INDEX IF NOT EXISTS idx_insights_competitor ON insights(competitor_id);
	CREATE INDEX IF NOT EXISTS idx_themes_competitor ON themes(competitor_id);
	CREATE INDEX IF NOT EXISTS idx_actions_competitor ON actions(competitor_id);
	CREATE INDEX IF NOT EXISTS idx_events_action ON action_events(action_id);
	CREATE INDEX IF NOT EXISTS idx_evaluations_artifact ON evaluations(artifact_id);
	CREATE INDEX IF NOT EXISTS idx_reports_competitor ON reports(competitor_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func notFound(entity, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", core.ErrNotFound, entity, id)
	}
	return err
}

// --- competitors ---

type sqliteCompetitors struct{ db *sql.DB }

func (r *sqliteCompetitors) Create(ctx context.Context, c *core.Competitor) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO competitors (id, name, url, sector, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.URL, c.Sector, c.Description, c.CreatedAt, c.UpdatedAt)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint") {
		return fmt.Errorf("%w: competitor %q already exists", core.ErrValidation, c.Name)
	}
	return err
}

func (r *sqliteCompetitors) Get(ctx context.Context, id string) (*core.Competitor, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, url, sector, description, created_at, updated_at FROM competitors WHERE id = ?`, id)
	return scanCompetitor(row, id)
}

func (r *sqliteCompetitors) GetByName(ctx context.Context, name string) (*core.Competitor, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, url, sector, description, created_at, updated_at FROM competitors WHERE name = ?`, name)
	return scanCompetitor(row, name)
}

func scanCompetitor(row *sql.Row, ref string) (*core.Competitor, error) {
	var c core.Competitor
	err := row.Scan(&c.ID, &c.Name, &c.URL, &c.Sector, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound("competitor", ref, err)
	}
	return &c, nil
}

func (r *sqliteCompetitors) List(ctx context.Context) ([]core.Competitor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, url, sector, description, created_at, updated_at FROM competitors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Competitor
	for rows.Next() {
		var c core.Competitor
		if err := rows.Scan(&c.ID, &c.Name, &c.URL, &c.Sector, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *sqliteCompetitors) Update(ctx context.Context, c *core.Competitor) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE competitors SET name = ?, url = ?, sector = ?, description = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.URL, c.Sector, c.Description, c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "competitor", c.ID)
}

func (r *sqliteCompetitors) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM competitors WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "competitor", id)
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", core.ErrNotFound, entity, id)
	}
	return nil
}

// --- sources ---

type sqliteSources struct{ db *sql.DB }

func (r *sqliteSources) Create(ctx context.Context, s *core.Source) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sources (id, competitor_id, url, origin, source_type, status, raw_text, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.CompetitorID, s.URL, s.Origin, s.SourceType, s.Status, s.RawText, s.Error, s.CreatedAt)
	return err
}

func (r *sqliteSources) Get(ctx context.Context, id string) (*core.Source, error) {
	var s core.Source
	err := r.db.QueryRowContext(ctx,
		`SELECT id, competitor_id, url, origin, source_type, status, raw_text, error, created_at
		 FROM sources WHERE id = ?`, id).
		Scan(&s.ID, &s.CompetitorID, &s.URL, &s.Origin, &s.SourceType, &s.Status, &s.RawText, &s.Error, &s.CreatedAt)
	if err != nil {
		return nil, notFound("source", id, err)
	}
	return &s, nil
}

func (r *sqliteSources) ListByCompetitor(ctx context.Context, competitorID string) ([]core.Source, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, competitor_id, url, origin, source_type, status, raw_text, error, created_at
		 FROM sources WHERE competitor_id = ? ORDER BY created_at DESC`, competitorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Source
	for rows.Next() {
		var s core.Source
		if err := rows.Scan(&s.ID, &s.CompetitorID, &s.URL, &s.Origin, &s.SourceType, &s.Status, &s.RawText, &s.Error, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sqliteSources) UpdateStatus(ctx context.Context, id string, status core.SourceStatus, errMsg string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sources SET status = ?, error = ? WHERE id = ?`, status, errMsg, id)
	if err != nil {
		return err
	}
	return requireRow(res, "source", id)
}

// --- insights ---

type sqliteInsights struct{ db *sql.DB }

func (r *sqliteInsights) Create(ctx context.Context, ins *core.Insight) error {
	refs, err := json.Marshal(ins.Sources)
	if err != nil {
		return fmt.Errorf("failed to encode source refs: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO insights (id, source_id, competitor_id, text, quote, sentiment, sentiment_score,
		 persona, confidence, low_confidence, sources_json, theme_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ins.ID, ins.SourceID, ins.CompetitorID, ins.Text, ins.Quote, ins.Sentiment, ins.SentimentScore,
		ins.Persona, ins.Confidence, ins.LowConfidence, string(refs), ins.ThemeID, ins.CreatedAt)
	return err
}

const insightColumns = `id, source_id, competitor_id, text, quote, sentiment, sentiment_score,
	persona, confidence, low_confidence, sources_json, theme_id, created_at`

func (r *sqliteInsights) Get(ctx context.Context, id string) (*core.Insight, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+insightColumns+` FROM insights WHERE id = ?`, id)
	ins, err := scanInsightRow(row.Scan)
	if err != nil {
		return nil, notFound("insight", id, err)
	}
	return ins, nil
}

func (r *sqliteInsights) ListByCompetitor(ctx context.Context, competitorID string) ([]core.Insight, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+insightColumns+` FROM insights WHERE competitor_id = ? ORDER BY created_at, id`, competitorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInsights(rows)
}

func (r *sqliteInsights) ListByIDs(ctx context.Context, ids []string) ([]core.Insight, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+insightColumns+` FROM insights WHERE id IN (`+placeholders+`) ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInsights(rows)
}

func collectInsights(rows *sql.Rows) ([]core.Insight, error) {
	var out []core.Insight
	for rows.Next() {
		ins, err := scanInsightRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *ins)
	}
	return out, rows.Err()
}

func scanInsightRow(scan func(...interface{}) error) (*core.Insight, error) {
	var ins core.Insight
	var refsJSON string
	err := scan(&ins.ID, &ins.SourceID, &ins.CompetitorID, &ins.Text, &ins.Quote, &ins.Sentiment,
		&ins.SentimentScore, &ins.Persona, &ins.Confidence, &ins.LowConfidence, &refsJSON, &ins.ThemeID, &ins.CreatedAt)
	if err != nil {
		return nil, err
	}
	if refsJSON != "" {
		if err := json.Unmarshal([]byte(refsJSON), &ins.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode source refs for insight %s: %w", ins.ID, err)
		}
	}
	return &ins, nil
}

func (r *sqliteInsights) UpdateSources(ctx context.Context, id string, sources []core.SourceRef) error {
	refs, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to encode source refs: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE insights SET sources_json = ? WHERE id = ?`, string(refs), id)
	if err != nil {
		return err
	}
	return requireRow(res, "insight", id)
}

func (r *sqliteInsights) AssignTheme(ctx context.Context, insightID, themeID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE insights SET theme_id = ? WHERE id = ?`, themeID, insightID)
	if err != nil {
		return err
	}
	return requireRow(res, "insight", insightID)
}

// --- themes ---

type sqliteThemes struct{ db *sql.DB }

// ReplaceForCompetitor swaps the competitor's theme set in one transaction,
// so readers never observe a half-reclustered state.
func (r *sqliteThemes) ReplaceForCompetitor(ctx context.Context, competitorID string, themes []core.Theme) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM themes WHERE competitor_id = ?`, competitorID); err != nil {
		return err
	}
	for _, t := range themes {
		ids, err := json.Marshal(t.InsightIDs)
		if err != nil {
			return fmt.Errorf("failed to encode insight ids: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO themes (id, competitor_id, name, description, sentiment, severity_score, confidence,
			 frequency, recency_days, is_weakness, differentiation_move, insight_ids_json, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.CompetitorID, t.Name, t.Description, t.Sentiment, t.SeverityScore, t.Confidence,
			t.Frequency, t.RecencyDays, t.IsWeakness, t.DifferentiationMove, string(ids), t.CreatedAt, t.UpdatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const themeColumns = `id, competitor_id, name, description, sentiment, severity_score, confidence,
	frequency, recency_days, is_weakness, differentiation_move, insight_ids_json, created_at, updated_at`

func (r *sqliteThemes) Get(ctx context.Context, id string) (*core.Theme, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+themeColumns+` FROM themes WHERE id = ?`, id)
	t, err := scanThemeRow(row.Scan)
	if err != nil {
		return nil, notFound("theme", id, err)
	}
	return t, nil
}

func (r *sqliteThemes) ListByCompetitor(ctx context.Context, competitorID string) ([]core.Theme, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+themeColumns+` FROM themes WHERE competitor_id = ?
		 ORDER BY severity_score DESC, frequency DESC, confidence DESC, name`, competitorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Theme
	for rows.Next() {
		t, err := scanThemeRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanThemeRow(scan func(...interface{}) error) (*core.Theme, error) {
	var t core.Theme
	var idsJSON string
	err := scan(&t.ID, &t.CompetitorID, &t.Name, &t.Description, &t.Sentiment, &t.SeverityScore,
		&t.Confidence, &t.Frequency, &t.RecencyDays, &t.IsWeakness, &t.DifferentiationMove,
		&idsJSON, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if idsJSON != "" {
		if err := json.Unmarshal([]byte(idsJSON), &t.InsightIDs); err != nil {
			return nil, fmt.Errorf("failed to decode insight ids for theme %s: %w", t.ID, err)
		}
	}
	return &t, nil
}

// --- actions ---

type sqliteActions struct{ db *sql.DB }

func (r *sqliteActions) Create(ctx context.Context, a *core.Action) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO actions (id, theme_id, competitor_id, action_type, title, owner, due_date, status, gen_state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ThemeID, a.CompetitorID, a.ActionType, a.Title, a.Owner, a.DueDate, a.Status, a.GenState, a.CreatedAt)
	return err
}

const actionColumns = `id, theme_id, competitor_id, action_type, title, owner, due_date, status, gen_state, created_at`

func (r *sqliteActions) Get(ctx context.Context, id string) (*core.Action, error) {
	var a core.Action
	err := r.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM actions WHERE id = ?`, id).
		Scan(&a.ID, &a.ThemeID, &a.CompetitorID, &a.ActionType, &a.Title, &a.Owner, &a.DueDate, &a.Status, &a.GenState, &a.CreatedAt)
	if err != nil {
		return nil, notFound("action", id, err)
	}
	return &a, nil
}

func (r *sqliteActions) List(ctx context.Context, competitorID string) ([]core.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions ORDER BY created_at DESC`
	args := []interface{}{}
	if competitorID != "" {
		query = `SELECT ` + actionColumns + ` FROM actions WHERE competitor_id = ? ORDER BY created_at DESC`
		args = append(args, competitorID)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Action
	for rows.Next() {
		var a core.Action
		if err := rows.Scan(&a.ID, &a.ThemeID, &a.CompetitorID, &a.ActionType, &a.Title, &a.Owner, &a.DueDate, &a.Status, &a.GenState, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *sqliteActions) UpdateStatus(ctx context.Context, id string, status core.ActionStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE actions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	return requireRow(res, "action", id)
}

func (r *sqliteActions) UpdateGenState(ctx context.Context, id string, state core.GenerationState) error {
	res, err := r.db.ExecContext(ctx, `UPDATE actions SET gen_state = ? WHERE id = ?`, state, id)
	if err != nil {
		return err
	}
	return requireRow(res, "action", id)
}

// --- action events ---

type sqliteActionEvents struct{ db *sql.DB }

func (r *sqliteActionEvents) Append(ctx context.Context, ev *core.ActionEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO action_events (id, action_id, kind, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.ActionID, ev.Kind, ev.Detail, ev.CreatedAt)
	return err
}

func (r *sqliteActionEvents) ListByAction(ctx context.Context, actionID string) ([]core.ActionEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, action_id, kind, detail, created_at FROM action_events WHERE action_id = ? ORDER BY created_at, id`, actionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.ActionEvent
	for rows.Next() {
		var ev core.ActionEvent
		if err := rows.Scan(&ev.ID, &ev.ActionID, &ev.Kind, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// --- artifacts ---

type sqliteArtifacts struct{ db *sql.DB }

const artifactColumns = `id, action_id, content, artifact_type, citations_json, accepted, created_at`

func (r *sqliteArtifacts) GetByAction(ctx context.Context, actionID string) (*core.Artifact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE action_id = ?`, actionID)
	a, err := scanArtifactRow(row.Scan)
	if err != nil {
		return nil, notFound("artifact for action", actionID, err)
	}
	return a, nil
}

func (r *sqliteArtifacts) Get(ctx context.Context, id string) (*core.Artifact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	a, err := scanArtifactRow(row.Scan)
	if err != nil {
		return nil, notFound("artifact", id, err)
	}
	return a, nil
}

func (r *sqliteArtifacts) ListAll(ctx context.Context) ([]core.Artifact, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+artifactColumns+` FROM artifacts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Artifact
	for rows.Next() {
		a, err := scanArtifactRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanArtifactRow(scan func(...interface{}) error) (*core.Artifact, error) {
	var a core.Artifact
	var citsJSON string
	err := scan(&a.ID, &a.ActionID, &a.Content, &a.ArtifactType, &citsJSON, &a.Accepted, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if citsJSON != "" {
		if err := json.Unmarshal([]byte(citsJSON), &a.Citations); err != nil {
			return nil, fmt.Errorf("failed to decode citations for artifact %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

// ReplaceForAction deletes the action's previous artifact and evaluation,
// inserts the new pair, and moves the action's generation state, all in
// one transaction. Regeneration is all-or-nothing.
func (r *sqliteArtifacts) ReplaceForAction(ctx context.Context, actionID string, artifact *core.Artifact, eval *core.Evaluation, state core.GenerationState) error {
	cits, err := json.Marshal(artifact.Citations)
	if err != nil {
		return fmt.Errorf("failed to encode citations: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM evaluations WHERE artifact_id IN (SELECT id FROM artifacts WHERE action_id = ?)`, actionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE action_id = ?`, actionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO artifacts (id, action_id, content, artifact_type, citations_json, accepted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		artifact.ID, artifact.ActionID, artifact.Content, artifact.ArtifactType, string(cits), artifact.Accepted, artifact.CreatedAt); err != nil {
		return err
	}
	if eval != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO evaluations (id, artifact_id, relevance, evidence_coverage, hallucination_risk,
			 actionability, freshness, overall_score, flagged, flag_reason, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			eval.ID, eval.ArtifactID, eval.Relevance, eval.EvidenceCoverage, eval.HallucinationRisk,
			eval.Actionability, eval.Freshness, eval.OverallScore, eval.Flagged, eval.FlagReason, eval.CreatedAt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE actions SET gen_state = ? WHERE id = ?`, state, actionID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *sqliteArtifacts) MarkAccepted(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE artifacts SET accepted = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "artifact", id)
}

// --- evaluations ---

type sqliteEvaluations struct{ db *sql.DB }

const evalColumns = `id, artifact_id, relevance, evidence_coverage, hallucination_risk,
	actionability, freshness, overall_score, flagged, flag_reason, created_at`

func (r *sqliteEvaluations) GetByArtifact(ctx context.Context, artifactID string) (*core.Evaluation, error) {
	var ev core.Evaluation
	err := r.db.QueryRowContext(ctx,
		`SELECT `+evalColumns+` FROM evaluations WHERE artifact_id = ?`, artifactID).
		Scan(&ev.ID, &ev.ArtifactID, &ev.Relevance, &ev.EvidenceCoverage, &ev.HallucinationRisk,
			&ev.Actionability, &ev.Freshness, &ev.OverallScore, &ev.Flagged, &ev.FlagReason, &ev.CreatedAt)
	if err != nil {
		return nil, notFound("evaluation for artifact", artifactID, err)
	}
	return &ev, nil
}

func (r *sqliteEvaluations) ListAll(ctx context.Context) ([]core.Evaluation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+evalColumns+` FROM evaluations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Evaluation
	for rows.Next() {
		var ev core.Evaluation
		if err := rows.Scan(&ev.ID, &ev.ArtifactID, &ev.Relevance, &ev.EvidenceCoverage, &ev.HallucinationRisk,
			&ev.Actionability, &ev.Freshness, &ev.OverallScore, &ev.Flagged, &ev.FlagReason, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// --- reports ---

type sqliteReports struct{ db *sql.DB }

func (r *sqliteReports) Create(ctx context.Context, rep *core.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, competitor_id, report_type, title, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.CompetitorID, rep.ReportType, rep.Title, rep.Content, rep.CreatedAt)
	return err
}

func (r *sqliteReports) Get(ctx context.Context, id string) (*core.Report, error) {
	var rep core.Report
	err := r.db.QueryRowContext(ctx,
		`SELECT id, competitor_id, report_type, title, content, created_at FROM reports WHERE id = ?`, id).
		Scan(&rep.ID, &rep.CompetitorID, &rep.ReportType, &rep.Title, &rep.Content, &rep.CreatedAt)
	if err != nil {
		return nil, notFound("report", id, err)
	}
	return &rep, nil
}

func (r *sqliteReports) ListByCompetitor(ctx context.Context, competitorID string) ([]core.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, competitor_id, report_type, title, content, created_at
		 FROM reports WHERE competitor_id = ? ORDER BY created_at DESC`, competitorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Report
	for rows.Next() {
		var rep core.Report
		if err := rows.Scan(&rep.ID, &rep.CompetitorID, &rep.ReportType, &rep.Title, &rep.Content, &rep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}
