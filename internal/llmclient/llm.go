// Package llmclient defines the collaborator contract the orchestration
// core depends on and its Gemini implementation. The core treats the
// collaborator as an oracle with a typed request/response contract; prompt
// text and response schemas live here and nowhere else.
package llmclient

import (
	"context"
	"errors"

	"taxinference/internal/session"
)

var (
	// ErrInvalidJSON signals a structurally unusable model response.
	ErrInvalidJSON = errors.New("llmclient: invalid JSON response")
	// ErrEmptyResponse signals a response with no candidates or parts.
	ErrEmptyResponse = errors.New("llmclient: empty response")
)

// Intent is the tool-call decision returned by a chat turn. The dispatcher
// switches on it exhaustively; IntentNone degrades to plain text display.
type Intent string

const (
	IntentNone               Intent = ""
	IntentListFacts          Intent = "list_facts"
	IntentUpdateFacts        Intent = "update_facts"
	IntentIdentifySituations Intent = "identify_situations"
	IntentAddTopic           Intent = "add_topic"
)

// KeyFactsResult is the fact-extraction response.
type KeyFactsResult struct {
	Summary             string                    `json:"summary"`
	KeyFacts            []session.KeyFactCategory `json:"keyFacts"`
	ClarifyingQuestions []string                  `json:"clarifyingQuestions,omitempty"`
}

// RawSituation is a situation before id assignment.
type RawSituation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SituationsResult is the situation-identification response. Ordering is
// dependency-first: foundational topics precede dependent ones.
type SituationsResult struct {
	Summary    string         `json:"summary"`
	Situations []RawSituation `json:"taxSituations"`
}

// ValidationResult reports the three independent research quality checks
// plus free-text feedback for the next attempt.
type ValidationResult struct {
	IsAuthoritative        bool   `json:"isAuthoritative"`
	HasInDepthDescriptions bool   `json:"hasInDepthDescriptions"`
	AreJustificationsValid bool   `json:"areJustificationsValid"`
	Feedback               string `json:"feedback"`
}

// Passed reports whether all three checks succeeded.
func (v ValidationResult) Passed() bool {
	return v.IsAuthoritative && v.HasInDepthDescriptions && v.AreJustificationsValid
}

// ObjectivesResult is the objectives-refinement response. Either Objectives
// or ClarifyingQuestions is populated, not both.
type ObjectivesResult struct {
	Summary             string              `json:"summary"`
	Objectives          []session.Objective `json:"objectives"`
	ClarifyingQuestions []string            `json:"clarifyingQuestions,omitempty"`
}

// ChatTurnResult is a general chat-turn response: either plain text or a
// tool intent the dispatcher must act on. Topic is set for IntentAddTopic.
type ChatTurnResult struct {
	Text   string
	Intent Intent
	Topic  string
}

// Collaborator is the external model backend consumed by the dispatcher.
// Every call is blocking; callers bound it with a context deadline.
type Collaborator interface {
	ExtractFacts(ctx context.Context, scenario string, files []session.FileData) (KeyFactsResult, error)
	ExtractFactsFromHistory(ctx context.Context, history []session.Message) (KeyFactsResult, error)
	IdentifySituations(ctx context.Context, history []session.Message) (SituationsResult, error)
	ConductResearch(ctx context.Context, history []session.Message, situation session.TaxSituation, prior map[string]session.ResearchAnalysis, feedback string) (session.ResearchAnalysis, error)
	ValidateResearch(ctx context.Context, analysis session.ResearchAnalysis) (ValidationResult, error)
	GenerateDocument(ctx context.Context, kind session.DocumentKind, history []session.Message, analysis session.ResearchAnalysis) (string, error)
	RefineObjectives(ctx context.Context, history []session.Message, analyses map[string]session.ResearchAnalysis, userText string) (ObjectivesResult, error)
	EvaluateObjective(ctx context.Context, history []session.Message, analyses map[string]session.ResearchAnalysis, objective session.Objective) (string, error)
	ChatTurn(ctx context.Context, history []session.Message) (ChatTurnResult, error)
}
