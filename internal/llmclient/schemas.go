package llmclient

import genai "google.golang.org/genai"

// Response schemas for the structured collaborator calls. Descriptions are
// part of the contract: they steer field content.

var keyFactsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {
			Type:        genai.TypeString,
			Description: "A brief, warm summary. If on-topic, confirm the scenario is understood and suggest analyzing tax situations next. If off-topic, politely steer back to US tax topics.",
		},
		"keyFacts": {
			Type:        genai.TypeArray,
			Description: "Categories of extracted facts. Empty for off-topic queries.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"category": {
						Type:        genai.TypeString,
						Description: "Category name (e.g. 'Client Information', 'Property Details', 'Transaction Timeline').",
					},
					"facts": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"label": {Type: genai.TypeString, Description: "Fact name (e.g. 'Filing Status', 'Sale Price')."},
								"value": {Type: genai.TypeString, Description: "Fact value (e.g. 'Married Filing Jointly', '$800,000')."},
							},
							Required: []string{"label", "value"},
						},
					},
				},
				Required: []string{"category", "facts"},
			},
		},
		"clarifyingQuestions": {
			Type:        genai.TypeArray,
			Description: "Questions to ask when the scenario lacks enough detail for meaningful key facts. Only for vague input.",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"summary", "keyFacts"},
}

var taxSituationsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {
			Type:        genai.TypeString,
			Description: "A brief, friendly intro stating the key tax situations have been spotted from the facts.",
		},
		"taxSituations": {
			Type:        genai.TypeArray,
			Description: "Identified tax situations, ordered by dependency: foundational topics before topics that depend on them.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":       {Type: genai.TypeString, Description: "Concise situation title (e.g. 'Section 121 Exclusion')."},
					"description": {Type: genai.TypeString, Description: "One-sentence explanation of why the situation is relevant."},
				},
				Required: []string{"title", "description"},
			},
		},
	},
	Required: []string{"summary", "taxSituations"},
}

var justificationSchema = &genai.Schema{
	Type:        genai.TypeObject,
	Description: "Optional justification citing a secondary source (e.g. an IRS Publication) that supports the interpretation.",
	Properties: map[string]*genai.Schema{
		"text": {Type: genai.TypeString, Description: "Source name (e.g. 'IRS Publication 523')."},
		"url":  {Type: genai.TypeString, Description: "Direct URL to the source when available online."},
	},
	Required: []string{"text"},
}

var researchAnalysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"situationTitle": {Type: genai.TypeString, Description: "Title of the tax situation being analyzed."},
		"summary":        {Type: genai.TypeString, Description: "Concise summary of the tax rules and their application to the facts."},
		"applicableLaw": {
			Type:        genai.TypeArray,
			Description: "Authoritative sources: IRC sections, Treasury Regulations, or key court cases.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"citation":    {Type: genai.TypeString, Description: "Formal citation, as specific as possible (e.g. 'IRC § 121(b)(1)')."},
					"description": {Type: genai.TypeString, Description: "What the cited law states."},
				},
				Required: []string{"citation", "description"},
			},
		},
		"keyImplications": {
			Type:        genai.TypeArray,
			Description: "The most important consequences, each justified from a secondary source where possible.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"implication":   {Type: genai.TypeString},
					"justification": justificationSchema,
				},
				Required: []string{"implication"},
			},
		},
		"planningOpportunities": {
			Type:        genai.TypeArray,
			Description: "Potential strategies the user could consider, each justified from a secondary source where possible.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"opportunity":   {Type: genai.TypeString},
					"justification": justificationSchema,
				},
				Required: []string{"opportunity"},
			},
		},
	},
	Required: []string{"situationTitle", "summary", "applicableLaw", "keyImplications", "planningOpportunities"},
}

var researchValidationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isAuthoritative": {
			Type:        genai.TypeBoolean,
			Description: "True when every cited source in applicableLaw is a primary, authoritative source (IRC, Treas. Reg., Rev. Rul., court cases).",
		},
		"hasInDepthDescriptions": {
			Type:        genai.TypeBoolean,
			Description: "True when every applicableLaw description substantively explains the law's mechanics and its relevance to the facts.",
		},
		"areJustificationsValid": {
			Type:        genai.TypeBoolean,
			Description: "True when every secondary-source justification accurately describes the source at its URL and the source is relevant.",
		},
		"feedback": {
			Type:        genai.TypeString,
			Description: "Specific, constructive feedback naming weak citations, superficial descriptions, or problematic justifications. Brief confirmation when all checks pass.",
		},
	},
	Required: []string{"isAuthoritative", "hasInDepthDescriptions", "areJustificationsValid", "feedback"},
}

var generatedDocumentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"content": {Type: genai.TypeString, Description: "Full document content in Markdown."},
	},
	Required: []string{"content"},
}

// objectiveSchema builds the objectives node schema. The original schema is
// recursive; genai schemas cannot self-reference, so nesting is expanded to
// a fixed depth.
func objectiveSchema(depth int) *genai.Schema {
	node := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString, Description: "Concise objective title (e.g. 'Maximize Section 121 Exclusion')."},
			"description": {Type: genai.TypeString, Description: "One-sentence explanation of what the objective entails."},
		},
		Required: []string{"title", "description"},
	}
	if depth > 0 {
		node.Properties["subObjectives"] = &genai.Schema{
			Type:        genai.TypeArray,
			Description: "More granular, atomic sub-tasks under this parent objective.",
			Items:       objectiveSchema(depth - 1),
		}
	}
	return node
}

var refinedObjectivesSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {
			Type:        genai.TypeString,
			Description: "A brief, encouraging summary: confirm the refined goals, or explain that a bit more clarity is needed.",
		},
		"objectives": {
			Type:        genai.TypeArray,
			Description: "Refined, synthesized objectives. Empty when asking clarifying questions.",
			Items:       objectiveSchema(3),
		},
		"clarifyingQuestions": {
			Type:        genai.TypeArray,
			Description: "Questions to ask when the stated objectives are too vague to act on.",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"summary", "objectives"},
}

// Tool declarations for the general chat turn. The model picks at most one;
// the dispatcher interprets the returned intent tag.

var listKeyFactsTool = &genai.FunctionDeclaration{
	Name:        "list_key_facts",
	Description: "Analyzes the entire conversation history to extract and list all key facts in a structured format. Use when the user asks to see, list, show, or summarize the key facts again.",
	Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
}

var updateKeyFactsTool = &genai.FunctionDeclaration{
	Name:        "update_key_facts",
	Description: "Use when the latest user message contains new factual information, corrections, or attachments that alter the established scenario and require the key facts to be regenerated.",
	Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
}

var identifyTaxSituationsTool = &genai.FunctionDeclaration{
	Name:        "identify_tax_situations",
	Description: "Analyzes the conversation and key facts to identify the potential tax situations that need research. Use when the user asks to identify, analyze, or determine the tax situations.",
	Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
}

var addResearchTopicTool = &genai.FunctionDeclaration{
	Name:        "add_research_topic",
	Description: "Adds a new research topic to the list of tax situations when the user explicitly asks to add or research a specific topic not identified by the system.",
	Parameters: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"topic": {Type: genai.TypeString, Description: "Title of the new research topic."},
		},
		Required: []string{"topic"},
	},
}
