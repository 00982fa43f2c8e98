// Package llm provides the generation collaborator behind insight
// extraction, clustering, artifact writing, and artifact judging. Two
// backends exist: the live Gemini client and a deterministic demo client
// used for tests and keyless trials. Both are selected by configuration
// and injected at construction, never switched on implicitly.
package llm

import (
	"context"
	"fmt"

	"rivalscope/internal/config"
	"rivalscope/internal/core"
	"rivalscope/internal/insight"
	"rivalscope/internal/quality"
	"rivalscope/internal/themes"
)

// ArtifactRequest carries everything the writer needs for one deliverable.
type ArtifactRequest struct {
	ActionType     core.ActionType
	CompetitorName string
	Theme          core.Theme
	Insights       []core.Insight
}

// ArtifactDraft is the writer's raw output before validation. CitationsJSON
// is kept unparsed so the caller can degrade on partial decode failures.
type ArtifactDraft struct {
	Content       string
	CitationsJSON string
}

// Client is the full collaborator surface. Every method maps upstream
// failures onto the shared error taxonomy: deadline exhaustion wraps
// core.ErrUpstreamTimeout, off-schema output wraps core.ErrUpstreamMalformed.
type Client interface {
	insight.Extractor
	themes.Clusterer
	quality.Judge
	GenerateArtifact(ctx context.Context, req ArtifactRequest) (ArtifactDraft, error)
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
	Close() error
}

// New builds the collaborator selected by configuration.
func New(ctx context.Context, cfg config.AI) (Client, error) {
	switch cfg.Mode {
	case "demo":
		return NewDemoClient(), nil
	case "live":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("%w: ai.mode is live but no Gemini API key is configured", core.ErrValidation)
		}
		return NewGeminiClient(ctx, cfg.Gemini)
	default:
		return nil, fmt.Errorf("%w: unknown ai.mode %q", core.ErrValidation, cfg.Mode)
	}
}
