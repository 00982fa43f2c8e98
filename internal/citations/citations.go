// Package citations builds, parses, and renders evidence citations for
// generated artifacts.
package citations

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"rivalscope/internal/core"
)

// FromInsights builds the citation list for an artifact from the insights
// that back its theme. Insights without a quote carry no citable evidence
// and are skipped.
func FromInsights(insights []core.Insight) []core.Citation {
	var cits []core.Citation
	for _, ins := range insights {
		if ins.Quote == "" {
			continue
		}
		source := ins.Persona
		sourceURL := ""
		date := "Recent"
		if len(ins.Sources) > 0 {
			sourceURL = ins.Sources[0].URL
			if ins.Sources[0].Date != "" {
				date = ins.Sources[0].Date
			}
		}
		if source == "" {
			if pub := ExtractPublisher(sourceURL); pub != "" {
				source = pub
			} else {
				source = "Unknown"
			}
		}
		cits = append(cits, core.Citation{
			Source: source,
			Date:   date,
			URL:    sourceURL,
			Quote:  ins.Quote,
		})
	}
	return cits
}

// Format renders a citation in the persisted, user-facing form:
// [Source Title - Date - URL] with an optional inline quote.
func Format(c core.Citation) string {
	parts := []string{c.Source, c.Date}
	if c.URL != "" {
		parts = append(parts, c.URL)
	}
	formatted := "[" + strings.Join(parts, " - ") + "]"
	if c.Quote != "" {
		formatted += fmt.Sprintf(" %q", c.Quote)
	}
	return formatted
}

// ParseJSON decodes a citations payload from collaborator output.
// Decoding is best-effort: a malformed array falls back to element-by-element
// parsing, and the count of undecodable elements is reported so evaluation
// can degrade evidence coverage instead of failing outright.
func ParseJSON(raw string) (parsed []core.Citation, failed int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, 0
	}

	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return parsed, 0
	}

	// Whole-array decode failed; try each element in isolation.
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, 1
	}
	for _, elem := range elems {
		var c core.Citation
		if err := json.Unmarshal(elem, &c); err != nil {
			failed++
			continue
		}
		parsed = append(parsed, c)
	}
	return parsed, failed
}

// ExtractPublisher extracts the publisher/domain name from a URL.
func ExtractPublisher(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := parsedURL.Hostname()
	host = strings.TrimPrefix(host, "www.")

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return host
}
