// Package export renders workflow artifacts to standalone markdown
// documents with deterministic filenames and hands them to an artifact
// store. Output-only: nothing here is ever read back.
package export

import (
	"fmt"
	"strings"

	"taxinference/internal/session"
)

// KeyFactsFilename and SituationsFilename are fixed artifact names.
const (
	KeyFactsFilename   = "key-facts.md"
	SituationsFilename = "tax-situations.md"
)

// AnalysisFilename derives the artifact name for a research analysis.
func AnalysisFilename(situationTitle string) string {
	return session.SlugID(situationTitle) + "-analysis.md"
}

// DocumentFilename derives the artifact name for a generated document.
func DocumentFilename(doc session.GeneratedDocument) string {
	return session.SlugID(doc.Title) + ".md"
}

// RenderKeyFacts produces the key facts summary document.
func RenderKeyFacts(categories []session.KeyFactCategory) string {
	var sb strings.Builder
	sb.WriteString("# Key Facts Summary\n\n")
	for _, category := range categories {
		fmt.Fprintf(&sb, "## %s\n\n", category.Category)
		for _, fact := range category.Facts {
			fmt.Fprintf(&sb, "- **%s:** %s\n", fact.Label, fact.Value)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderSituations produces the situations list document.
func RenderSituations(situations []session.TaxSituation) string {
	var sb strings.Builder
	sb.WriteString("# Potential Tax Situations\n\n")
	for _, sit := range situations {
		fmt.Fprintf(&sb, "- **%s:** %s\n", sit.Title, sit.Description)
	}
	return sb.String()
}

// RenderAnalysis produces the research analysis document.
func RenderAnalysis(a session.ResearchAnalysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Research Analysis: %s\n\n", a.SituationTitle)
	fmt.Fprintf(&sb, "## Summary\n\n> %s\n\n", strings.ReplaceAll(a.Summary, "\n", "\n> "))

	if len(a.ApplicableLaw) > 0 {
		sb.WriteString("## Applicable Law & Regulations\n\n")
		for _, law := range a.ApplicableLaw {
			fmt.Fprintf(&sb, "- **%s:** %s\n", law.Citation, law.Description)
		}
		sb.WriteString("\n")
	}

	if len(a.KeyImplications) > 0 {
		sb.WriteString("## Key Implications\n\n")
		for _, item := range a.KeyImplications {
			fmt.Fprintf(&sb, "- %s\n", item.Implication)
			writeJustification(&sb, item.Justification)
		}
		sb.WriteString("\n")
	}

	if len(a.PlanningOpportunities) > 0 {
		sb.WriteString("## Planning Opportunities\n\n")
		for _, item := range a.PlanningOpportunities {
			fmt.Fprintf(&sb, "- %s\n", item.Opportunity)
			writeJustification(&sb, item.Justification)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeJustification(sb *strings.Builder, j *session.Justification) {
	if j == nil {
		return
	}
	source := j.Text
	if j.URL != "" {
		source = fmt.Sprintf("[%s](%s)", j.Text, j.URL)
	}
	fmt.Fprintf(sb, "  - *Source: %s*\n", source)
}
