package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rivalscope/internal/core"
	"rivalscope/internal/pipeline"
)

// --- competitors ---

type competitorRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Sector      string `json:"sector"`
	Description string `json:"description"`
}

func (s *Server) handleCreateCompetitor(w http.ResponseWriter, r *http.Request) {
	var req competitorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, fmt.Errorf("%w: name is required", core.ErrValidation))
		return
	}

	now := time.Now().UTC()
	c := &core.Competitor{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		URL:         req.URL,
		Sector:      req.Sector,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Competitors().Create(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCompetitors(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Competitors().List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetCompetitor(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.Competitors().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCompetitor(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.Competitors().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req competitorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name != "" {
		c.Name = strings.TrimSpace(req.Name)
	}
	if req.URL != "" {
		c.URL = req.URL
	}
	if req.Sector != "" {
		c.Sector = req.Sector
	}
	if req.Description != "" {
		c.Description = req.Description
	}
	c.UpdatedAt = time.Now().UTC()

	if err := s.store.Competitors().Update(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCompetitor(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Competitors().Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- ingestion ---

type ingestRequest struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	competitorID := chi.URLParam(r, "id")

	var req ingestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var result core.IngestResult
	var err error
	switch {
	case req.URL != "":
		result, err = s.orch.IngestURL(r.Context(), competitorID, req.URL)
	case req.Text != "":
		result, err = s.orch.IngestText(r.Context(), competitorID, req.Text, core.OriginPasted)
	default:
		err = fmt.Errorf("%w: either url or text is required", core.ErrValidation)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Sources().ListByCompetitor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Insights().ListByCompetitor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListThemes(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Themes().ListByCompetitor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- actions ---

type createActionRequest struct {
	ThemeID    string `json:"theme_id"`
	ActionType string `json:"action_type"`
	Title      string `json:"title"`
	Owner      string `json:"owner"`
	DueDate    string `json:"due_date"`
}

func (s *Server) handleCreateAction(w http.ResponseWriter, r *http.Request) {
	var req createActionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ThemeID == "" {
		writeError(w, fmt.Errorf("%w: theme_id is required", core.ErrValidation))
		return
	}

	action, err := s.orch.CreateAction(r.Context(), pipeline.CreateActionRequest{
		ThemeID:    req.ThemeID,
		ActionType: core.ActionType(req.ActionType),
		Title:      req.Title,
		Owner:      req.Owner,
		DueDate:    req.DueDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, action)
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Actions().List(r.Context(), r.URL.Query().Get("competitor_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	detail, err := s.orch.GetActionDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	artifact, eval, err := s.orch.Generate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"artifact":   artifact,
		"evaluation": eval,
	})
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.orch.Accept(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Reject(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// --- reports and monitoring ---

func (s *Server) handleBuildReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.orch.BuildReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Reports().ListByCompetitor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.store.Reports().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleMonitoring(w http.ResponseWriter, r *http.Request) {
	summary, err := s.orch.Monitoring(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
