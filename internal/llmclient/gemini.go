package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"taxinference/internal/session"
)

// DefaultModel is the model used for every collaborator call.
const DefaultModel = "gemini-2.5-pro"

// GeminiClient is a thin wrapper around the official genai client
// implementing the Collaborator contract. It focuses on the API calls only;
// timeouts, retries, and error surfacing are the caller's concern.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient builds a client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	// NOTE: apiKey is currently unused here; the genai client may read it
	// from env. Keep the parameter for a consistent factory signature.
	_ = apiKey

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }

// historyToContents maps conversation turns to genai contents, inlining
// file attachments as blob parts.
func historyToContents(history []session.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		parts := []*genai.Part{{Text: msg.Text}}
		for _, f := range msg.FilesData {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: f.MimeType, Data: f.Data},
			})
		}
		contents = append(contents, &genai.Content{Role: string(msg.Role), Parts: parts})
	}
	return contents
}

func systemContent(instruction string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: instruction}}}
}

// generateJSON requests application/json constrained by schema and decodes
// the first candidate part into out.
func (g *GeminiClient) generateJSON(ctx context.Context, contents []*genai.Content, instruction string, schema *genai.Schema, out any) error {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: systemContent(instruction),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
	})
	if err != nil {
		return err
	}
	txt, err := firstText(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(txt), out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func (g *GeminiClient) ExtractFacts(ctx context.Context, scenario string, files []session.FileData) (KeyFactsResult, error) {
	parts := []*genai.Part{{Text: scenario}}
	for _, f := range files {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: f.MimeType, Data: f.Data}})
	}
	contents := []*genai.Content{{Role: string(session.RoleUser), Parts: parts}}

	var out KeyFactsResult
	if err := g.generateJSON(ctx, contents, extractFactsInstruction, keyFactsSchema, &out); err != nil {
		return KeyFactsResult{}, err
	}
	return out, nil
}

func (g *GeminiClient) ExtractFactsFromHistory(ctx context.Context, history []session.Message) (KeyFactsResult, error) {
	var out KeyFactsResult
	if err := g.generateJSON(ctx, historyToContents(history), regenerateFactsInstruction, keyFactsSchema, &out); err != nil {
		return KeyFactsResult{}, err
	}
	return out, nil
}

func (g *GeminiClient) IdentifySituations(ctx context.Context, history []session.Message) (SituationsResult, error) {
	var out SituationsResult
	if err := g.generateJSON(ctx, historyToContents(history), identifySituationsInstruction, taxSituationsSchema, &out); err != nil {
		return SituationsResult{}, err
	}
	return out, nil
}

func (g *GeminiClient) ConductResearch(ctx context.Context, history []session.Message, situation session.TaxSituation, prior map[string]session.ResearchAnalysis, feedback string) (session.ResearchAnalysis, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Please research the following tax situation:\n\nTitle: %s\nDescription: %s\n", situation.Title, situation.Description)
	if len(prior) > 0 {
		priorJSON, _ := json.MarshalIndent(prior, "", "  ")
		fmt.Fprintf(&sb, "\nPreviously accepted analyses for other topics, for cross-topic consistency:\n\n%s\n", priorJSON)
	}
	if strings.TrimSpace(feedback) != "" {
		fmt.Fprintf(&sb, "\nA prior attempt was rejected by review. Address all of this feedback:\n\n%s\n", feedback)
	}
	contents := append(historyToContents(history), &genai.Content{
		Role:  string(session.RoleUser),
		Parts: []*genai.Part{{Text: sb.String()}},
	})

	var out session.ResearchAnalysis
	if err := g.generateJSON(ctx, contents, conductResearchInstruction, researchAnalysisSchema, &out); err != nil {
		return session.ResearchAnalysis{}, err
	}
	return out, nil
}

func (g *GeminiClient) ValidateResearch(ctx context.Context, analysis session.ResearchAnalysis) (ValidationResult, error) {
	analysisJSON, _ := json.MarshalIndent(analysis, "", "  ")
	contents := []*genai.Content{{
		Role:  string(session.RoleUser),
		Parts: []*genai.Part{{Text: "Review this research analysis:\n\n" + string(analysisJSON)}},
	}}

	var out ValidationResult
	if err := g.generateJSON(ctx, contents, validateResearchInstruction, researchValidationSchema, &out); err != nil {
		return ValidationResult{}, err
	}
	return out, nil
}

func (g *GeminiClient) GenerateDocument(ctx context.Context, kind session.DocumentKind, history []session.Message, analysis session.ResearchAnalysis) (string, error) {
	instruction := generateMemoInstruction
	if kind == session.DocumentLetter {
		instruction = generateLetterInstruction
	}
	analysisJSON, _ := json.MarshalIndent(analysis, "", "  ")
	contents := append(historyToContents(history), &genai.Content{
		Role:  string(session.RoleUser),
		Parts: []*genai.Part{{Text: "Here is the research analysis to use for generating the document:\n\n" + string(analysisJSON)}},
	})

	var out struct {
		Content string `json:"content"`
	}
	if err := g.generateJSON(ctx, contents, instruction, generatedDocumentSchema, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (g *GeminiClient) RefineObjectives(ctx context.Context, history []session.Message, analyses map[string]session.ResearchAnalysis, userText string) (ObjectivesResult, error) {
	analysesJSON, _ := json.MarshalIndent(analyses, "", "  ")
	prompt := fmt.Sprintf("All research is complete. Here are all the analyses:\n\n%s\n\nHere are my primary objectives for this case:\n\n%q", analysesJSON, userText)
	contents := append(historyToContents(history), &genai.Content{
		Role:  string(session.RoleUser),
		Parts: []*genai.Part{{Text: prompt}},
	})

	var out ObjectivesResult
	if err := g.generateJSON(ctx, contents, refineObjectivesInstruction, refinedObjectivesSchema, &out); err != nil {
		return ObjectivesResult{}, err
	}
	return out, nil
}

func (g *GeminiClient) EvaluateObjective(ctx context.Context, history []session.Message, analyses map[string]session.ResearchAnalysis, objective session.Objective) (string, error) {
	analysesJSON, _ := json.MarshalIndent(analyses, "", "  ")
	prompt := fmt.Sprintf("Provide a detailed analysis and recommendation for this objective:\n\nTitle: %s\nDescription: %s\n\nAll research conducted so far:\n\n%s", objective.Title, objective.Description, analysesJSON)
	contents := append(historyToContents(history), &genai.Content{
		Role:  string(session.RoleUser),
		Parts: []*genai.Part{{Text: prompt}},
	})

	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: systemContent(evaluateObjectiveInstruction),
	})
	if err != nil {
		return "", err
	}
	return firstText(resp)
}

func (g *GeminiClient) ChatTurn(ctx context.Context, history []session.Message) (ChatTurnResult, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, historyToContents(history), &genai.GenerateContentConfig{
		SystemInstruction: systemContent(chatTurnInstruction),
		Tools: []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				listKeyFactsTool,
				updateKeyFactsTool,
				identifyTaxSituationsTool,
				addResearchTopicTool,
			},
		}},
	})
	if err != nil {
		return ChatTurnResult{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ChatTurnResult{}, ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			result := ChatTurnResult{Text: text.String()}
			switch part.FunctionCall.Name {
			case "list_key_facts":
				result.Intent = IntentListFacts
			case "update_key_facts":
				result.Intent = IntentUpdateFacts
			case "identify_tax_situations":
				result.Intent = IntentIdentifySituations
			case "add_research_topic":
				result.Intent = IntentAddTopic
				if topic, ok := part.FunctionCall.Args["topic"].(string); ok {
					result.Topic = topic
				}
			default:
				// Unknown tool tag degrades to plain text display.
				result.Intent = IntentNone
			}
			return result, nil
		}
		text.WriteString(part.Text)
	}
	return ChatTurnResult{Text: text.String()}, nil
}
