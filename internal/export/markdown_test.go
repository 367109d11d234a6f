package export

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taxinference/internal/session"
)

func TestRenderKeyFacts(t *testing.T) {
	got := RenderKeyFacts([]session.KeyFactCategory{
		{Category: "Income", Facts: []session.KeyFact{
			{Label: "W-2 wages", Value: "$120,000"},
			{Label: "Filing status", Value: "Married filing jointly"},
		}},
		{Category: "Real Estate", Facts: []session.KeyFact{
			{Label: "Sale price", Value: "$650,000"},
		}},
	})

	want := "# Key Facts Summary\n\n" +
		"## Income\n\n" +
		"- **W-2 wages:** $120,000\n" +
		"- **Filing status:** Married filing jointly\n\n" +
		"## Real Estate\n\n" +
		"- **Sale price:** $650,000\n\n"
	assert.Equal(t, want, got)
}

func TestRenderSituations(t *testing.T) {
	got := RenderSituations([]session.TaxSituation{
		{ID: "topic-a", Title: "Topic A", Description: "First issue."},
		{ID: "topic-b", Title: "Topic B", Description: "Second issue."},
	})
	want := "# Potential Tax Situations\n\n" +
		"- **Topic A:** First issue.\n" +
		"- **Topic B:** Second issue.\n"
	assert.Equal(t, want, got)
}

func TestRenderAnalysis(t *testing.T) {
	got := RenderAnalysis(session.ResearchAnalysis{
		SituationTitle: "Section 121 Exclusion",
		Summary:        "Line one.\nLine two.",
		ApplicableLaw: []session.LawReference{
			{Citation: "IRC §121", Description: "Exclusion of gain."},
		},
		KeyImplications: []session.Implication{
			{Implication: "Gain under the cap is excluded.", Justification: &session.Justification{Text: "IRS Topic 701", URL: "https://www.irs.gov/taxtopics/tc701"}},
		},
		PlanningOpportunities: []session.Opportunity{
			{Opportunity: "Time the sale to meet the use test.", Justification: &session.Justification{Text: "Pub 523"}},
		},
	})

	assert.Contains(t, got, "# Research Analysis: Section 121 Exclusion\n")
	// Multi-line summaries stay inside the blockquote.
	assert.Contains(t, got, "## Summary\n\n> Line one.\n> Line two.\n")
	assert.Contains(t, got, "## Applicable Law & Regulations\n\n- **IRC §121:** Exclusion of gain.\n")
	assert.Contains(t, got, "- Gain under the cap is excluded.\n  - *Source: [IRS Topic 701](https://www.irs.gov/taxtopics/tc701)*\n")
	// Justifications without a URL render as plain text.
	assert.Contains(t, got, "- Time the sale to meet the use test.\n  - *Source: Pub 523*\n")
}

func TestRenderAnalysisOmitsEmptySections(t *testing.T) {
	got := RenderAnalysis(session.ResearchAnalysis{SituationTitle: "Bare", Summary: "s"})
	assert.NotContains(t, got, "## Applicable Law")
	assert.NotContains(t, got, "## Key Implications")
	assert.NotContains(t, got, "## Planning Opportunities")
}

func TestFilenames(t *testing.T) {
	assert.Equal(t, "key-facts.md", KeyFactsFilename)
	assert.Equal(t, "tax-situations.md", SituationsFilename)
	assert.Equal(t, "section-121-exclusion-analysis.md", AnalysisFilename("Section 121 Exclusion"))
	assert.Equal(t, "tax-memo-topic-a.md", DocumentFilename(session.GeneratedDocument{Title: "Tax Memo: Topic A"}))
}
