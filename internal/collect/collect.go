// Package collect turns raw public text (fetched pages, pasted text,
// uploads) into cleaned, redacted, overlapping chunks ready for insight
// extraction.
package collect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"rivalscope/internal/logger"
)

const (
	// DefaultChunkSize is the chunk window in words (roughly 500-1000
	// tokens once tokenized).
	DefaultChunkSize = 800
	// DefaultChunkOverlap is the word overlap carried into the next chunk.
	DefaultChunkOverlap = 100
	// MinRawTextLen is the shortest pasted text worth extracting from.
	MinRawTextLen = 20
)

// sourcePatterns maps a source type to URL fragments that identify it.
var sourcePatterns = map[string][]string{
	"reddit":     {"reddit.com"},
	"g2":         {"g2.com"},
	"capterra":   {"capterra.com"},
	"trustpilot": {"trustpilot.com"},
	"forum":      {"community.", "forum.", "discuss."},
	"blog":       {"blog.", "/blog/"},
	"pricing":    {"/pricing", "/plans"},
}

var (
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe = regexp.MustCompile(`\b(\+?1?[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	ssnRe   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	wsRe    = regexp.MustCompile(`\s+`)
)

// Collector fetches and prepares source text.
type Collector struct {
	ChunkSize    int
	ChunkOverlap int
	UserAgent    string
	HTTPClient   *http.Client
}

// New creates a collector with default chunking parameters.
func New() *Collector {
	return &Collector{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		UserAgent:    "rivalscope/1.0 (competitive research)",
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// DetectSourceType classifies a URL into a known source category.
func DetectSourceType(rawURL string) string {
	lower := strings.ToLower(rawURL)
	for sourceType, patterns := range sourcePatterns {
		for _, p := range patterns {
			if strings.Contains(lower, p) {
				return sourceType
			}
		}
	}
	return "web"
}

// FetchURL fetches a URL and extracts its readable text.
// Returns the extracted text and the detected source type.
func (c *Collector) FetchURL(ctx context.Context, rawURL string) (string, string, error) {
	sourceType := DetectSourceType(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", sourceType, fmt.Errorf("invalid URL %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", sourceType, fmt.Errorf("could not reach %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", sourceType, fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", sourceType, fmt.Errorf("failed to read response from %s: %w", rawURL, err)
	}

	text, err := ExtractText(string(body))
	if err != nil {
		return "", sourceType, err
	}
	if len(strings.TrimSpace(text)) < 50 {
		return "", sourceType, fmt.Errorf("no meaningful content extracted from %s", rawURL)
	}

	logger.Debug("Fetched URL", map[string]interface{}{"url": rawURL, "chars": len(text), "source_type": sourceType})
	return text, sourceType, nil
}

// ExtractText parses HTML and pulls out readable body text, dropping
// navigation, scripts, and boilerplate.
func ExtractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, nav, footer, header, aside, noscript, svg, iframe").Remove()

	root := doc.Find("main")
	if root.Length() == 0 {
		root = doc.Find("article")
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var lines []string
	root.Find("h1, h2, h3, p, li, blockquote, td").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) > 20 {
			lines = append(lines, text)
		}
	})
	if len(lines) == 0 {
		text := strings.TrimSpace(root.Text())
		if text != "" {
			lines = append(lines, text)
		}
	}
	if len(lines) > 300 {
		lines = lines[:300]
	}

	return strings.Join(lines, "\n"), nil
}

// ParseRawText validates pasted text input.
func ParseRawText(text string) (string, error) {
	cleaned := strings.TrimSpace(text)
	if len(cleaned) < MinRawTextLen {
		return "", fmt.Errorf("text too short to extract meaningful insights (minimum %d characters)", MinRawTextLen)
	}
	return cleaned, nil
}

// RedactPII strips emails, phone numbers, and SSN-like patterns before
// anything is stored or sent to a collaborator.
func RedactPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL_REDACTED]")
	text = phoneRe.ReplaceAllString(text, "[PHONE_REDACTED]")
	text = ssnRe.ReplaceAllString(text, "[SSN_REDACTED]")
	return text
}

// ChunkText splits text into overlapping word windows. A text at or under
// the chunk size comes back as a single chunk.
func (c *Collector) ChunkText(text string) []string {
	words := strings.Fields(text)
	if len(words) <= c.ChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(words) {
		end := start + c.ChunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
		start = end - c.ChunkOverlap
	}
	return chunks
}

// NormalizeText lowercases and collapses whitespace, the canonical form
// used for exact-match dedup.
func NormalizeText(text string) string {
	return wsRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
}
