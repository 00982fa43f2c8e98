package llm

import (
	"fmt"
	"strings"

	"rivalscope/internal/core"
)

func extractionPrompt(chunk, sourceURL, competitorName string) string {
	var sb strings.Builder
	sb.WriteString("You are a competitive intelligence analyst. Extract atomic insights about ")
	sb.WriteString(competitorName)
	sb.WriteString(" from the text below.\n\n")
	if sourceURL != "" {
		fmt.Fprintf(&sb, "Source URL: %s\n\n", sourceURL)
	}
	sb.WriteString("Rules:\n")
	sb.WriteString("- One insight per distinct observation. No summaries of the whole text.\n")
	sb.WriteString("- Every insight needs a short verbatim quote from the text as evidence.\n")
	sb.WriteString("- sentiment is one of: positive, negative, neutral, mixed.\n")
	sb.WriteString("- sentiment_score is a number from -1.0 to 1.0.\n")
	sb.WriteString("- persona is who voiced it (e.g. \"G2 reviewer\", \"Reddit user\") or empty.\n\n")
	sb.WriteString("Respond with ONLY a JSON array:\n")
	sb.WriteString(`[{"text": "...", "sentiment": "negative", "sentiment_score": -0.7, "persona": "...", "quote": "...", "confidence": 0.8}]`)
	sb.WriteString("\n\nText:\n")
	sb.WriteString(chunk)
	return sb.String()
}

func clusteringPrompt(competitorName string, insights []core.Insight) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Group these insights about %s into themes. ", competitorName)
	sb.WriteString("A theme is a recurring topic (pricing complaints, reliability issues, onboarding friction).\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Every insight id appears in exactly one theme.\n")
	sb.WriteString("- Theme names are short noun phrases, at most six words.\n")
	sb.WriteString("- For themes describing a weakness, suggest one differentiation_move: how a rival could exploit it.\n\n")
	sb.WriteString("Respond with ONLY a JSON array:\n")
	sb.WriteString(`[{"name": "...", "description": "...", "differentiation_move": "...", "insight_ids": ["..."]}]`)
	sb.WriteString("\n\nInsights:\n")
	for _, ins := range insights {
		fmt.Fprintf(&sb, "- id=%s sentiment=%s text=%s\n", ins.ID, ins.Sentiment, ins.Text)
	}
	return sb.String()
}

func artifactPrompt(req ArtifactRequest) string {
	var sb strings.Builder
	switch req.ActionType {
	case core.ActionBattlecard:
		fmt.Fprintf(&sb, "Write a sales battlecard against %s focused on the theme %q.\n", req.CompetitorName, req.Theme.Name)
		sb.WriteString("Sections: Overview, Their Strengths, Their Weaknesses, Landmine Questions, Objection Handling.\n")
	case core.ActionMessaging:
		fmt.Fprintf(&sb, "Write positioning messaging that exploits %s's weakness on %q.\n", req.CompetitorName, req.Theme.Name)
		sb.WriteString("Sections: Positioning Statement, Proof Points, Target Personas, Suggested Channels.\n")
	case core.ActionRoadmap:
		fmt.Fprintf(&sb, "Write a product roadmap recommendation responding to %s's theme %q.\n", req.CompetitorName, req.Theme.Name)
		sb.WriteString("Sections: Opportunity, Recommended Items (prioritized, with rationale), Risks, Success Metrics.\n")
	default:
		fmt.Fprintf(&sb, "Write a competitive analysis memo about %s's theme %q.\n", req.CompetitorName, req.Theme.Name)
	}

	if req.Theme.DifferentiationMove != "" {
		fmt.Fprintf(&sb, "Suggested angle: %s\n", req.Theme.DifferentiationMove)
	}

	sb.WriteString("\nGround every claim in the evidence below. Do not invent facts.\n")
	sb.WriteString("Each citation must reference one of the evidence items.\n\n")
	sb.WriteString("Respond with ONLY a JSON object:\n")
	sb.WriteString(`{"content": "markdown document", "citations": [{"source": "...", "date": "...", "url": "...", "quote": "..."}]}`)
	sb.WriteString("\n\nEvidence:\n")
	for _, ins := range req.Insights {
		fmt.Fprintf(&sb, "- [%s] %s", ins.Sentiment, ins.Text)
		if ins.Quote != "" {
			fmt.Fprintf(&sb, " (quote: %q)", ins.Quote)
		}
		if len(ins.Sources) > 0 {
			fmt.Fprintf(&sb, " (url: %s, date: %s)", ins.Sources[0].URL, ins.Sources[0].Date)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func judgePrompt(artifact core.Artifact, themeName string) string {
	var sb strings.Builder
	sb.WriteString("You are a strict quality judge for competitive intelligence deliverables.\n")
	fmt.Fprintf(&sb, "Score this %s (theme: %q) on five rubrics, each 0.0 to 1.0:\n", artifact.ArtifactType, themeName)
	sb.WriteString("- relevance: does it address the theme?\n")
	sb.WriteString("- evidence_coverage: are claims backed by the citations?\n")
	sb.WriteString("- hallucination_risk: 1.0 means no unsupported claims, 0.0 means mostly invented.\n")
	sb.WriteString("- actionability: can a reader act on it today?\n")
	sb.WriteString("- freshness: does it rely on recent evidence?\n\n")
	sb.WriteString("Respond with ONLY a JSON object:\n")
	sb.WriteString(`{"relevance": 0.0, "evidence_coverage": 0.0, "hallucination_risk": 0.0, "actionability": 0.0, "freshness": 0.0}`)
	sb.WriteString("\n\nDeliverable:\n")
	sb.WriteString(artifact.Content)
	sb.WriteString("\n\nCitations:\n")
	for _, c := range artifact.Citations {
		fmt.Fprintf(&sb, "- %s (%s) %s: %q\n", c.Source, c.Date, c.URL, c.Quote)
	}
	return sb.String()
}
