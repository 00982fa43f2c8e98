package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"rivalscope/internal/config"
	"rivalscope/internal/core"
	"rivalscope/internal/insight"
	"rivalscope/internal/logger"
	"rivalscope/internal/quality"
	"rivalscope/internal/themes"
)

// defaultCallBudget bounds a single collaborator call end to end.
const defaultCallBudget = 2 * time.Minute

// GeminiClient is the live collaborator backed by Google Gemini.
type GeminiClient struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	embedModel *genai.EmbeddingModel
	budget     time.Duration
}

// NewGeminiClient creates the live client from configuration.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(cfg.MaxTokens)
	}

	budget := defaultCallBudget
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
			budget = d
		}
	}

	return &GeminiClient{
		client:     client,
		model:      model,
		embedModel: client.EmbeddingModel(cfg.EmbeddingModel),
		budget:     budget,
	}, nil
}

// Close releases the underlying connection.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// ExtractInsights pulls structured observations out of one text chunk.
func (g *GeminiClient) ExtractInsights(ctx context.Context, chunk, sourceURL, competitorName string) ([]insight.RawInsight, error) {
	prompt := extractionPrompt(chunk, sourceURL, competitorName)
	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var raws []insight.RawInsight
	if err := decodeJSON(text, &raws); err != nil {
		return nil, fmt.Errorf("%w: insight extraction: %v", core.ErrUpstreamMalformed, err)
	}
	return raws, nil
}

// ClusterInsights proposes a partition of the insights into named themes.
func (g *GeminiClient) ClusterInsights(ctx context.Context, competitorName string, insights []core.Insight) ([]themes.RawCluster, error) {
	prompt := clusteringPrompt(competitorName, insights)
	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var clusters []themes.RawCluster
	if err := decodeJSON(text, &clusters); err != nil {
		return nil, fmt.Errorf("%w: clustering: %v", core.ErrUpstreamMalformed, err)
	}
	return clusters, nil
}

// GenerateArtifact writes one deliverable for an action.
func (g *GeminiClient) GenerateArtifact(ctx context.Context, req ArtifactRequest) (ArtifactDraft, error) {
	prompt := artifactPrompt(req)
	text, err := g.generate(ctx, prompt)
	if err != nil {
		return ArtifactDraft{}, err
	}

	var out struct {
		Content   string          `json:"content"`
		Citations json.RawMessage `json:"citations"`
	}
	if err := decodeJSON(text, &out); err != nil {
		return ArtifactDraft{}, fmt.Errorf("%w: artifact generation: %v", core.ErrUpstreamMalformed, err)
	}
	if strings.TrimSpace(out.Content) == "" {
		return ArtifactDraft{}, fmt.Errorf("%w: artifact generation returned empty content", core.ErrUpstreamMalformed)
	}
	return ArtifactDraft{Content: out.Content, CitationsJSON: string(out.Citations)}, nil
}

// JudgeArtifact scores one artifact against the five rubrics.
func (g *GeminiClient) JudgeArtifact(ctx context.Context, artifact core.Artifact, themeName string) (quality.RawScores, error) {
	prompt := judgePrompt(artifact, themeName)
	text, err := g.generate(ctx, prompt)
	if err != nil {
		return quality.RawScores{}, err
	}

	var scores quality.RawScores
	if err := decodeJSON(text, &scores); err != nil {
		return quality.RawScores{}, fmt.Errorf("%w: judging: %v", core.ErrUpstreamMalformed, err)
	}
	return scores, nil
}

// GenerateEmbedding embeds one text for similarity comparison.
func (g *GeminiClient) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.budget)
	defer cancel()

	res, err := g.embedModel.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, mapUpstreamErr(err, "embedding")
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: embedding returned no values", core.ErrUpstreamMalformed)
	}

	vec := make([]float64, len(res.Embedding.Values))
	for i, v := range res.Embedding.Values {
		vec[i] = float64(v)
	}
	return vec, nil
}

// generate runs one prompt within the call budget and returns the text.
func (g *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.budget)
	defer cancel()

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", mapUpstreamErr(err, "generation")
	}
	logger.Debug("Gemini call completed", map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates in response", core.ErrUpstreamMalformed)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty text response", core.ErrUpstreamMalformed)
	}
	return sb.String(), nil
}

func mapUpstreamErr(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", core.ErrUpstreamTimeout, op)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// decodeJSON decodes collaborator output that may arrive wrapped in
// markdown fences or surrounded by prose.
func decodeJSON(text string, v interface{}) error {
	cleaned := stripFences(text)
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	start := strings.IndexAny(cleaned, "[{")
	end := strings.LastIndexAny(cleaned, "]}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON payload found")
	}
	return json.Unmarshal([]byte(cleaned[start:end+1]), v)
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
