package chat

import (
	"context"
	"sync"

	"taxinference/internal/llmclient"
	"taxinference/internal/session"
)

// fakeCollaborator implements llmclient.Collaborator with per-operation
// function hooks and call counters. Unset hooks return zero values.
type fakeCollaborator struct {
	mu    sync.Mutex
	calls map[string]int

	extractFacts     func(scenario string, files []session.FileData) (llmclient.KeyFactsResult, error)
	extractHistory   func(history []session.Message) (llmclient.KeyFactsResult, error)
	identify         func(history []session.Message) (llmclient.SituationsResult, error)
	research         func(situation session.TaxSituation, feedback string) (session.ResearchAnalysis, error)
	validate         func(analysis session.ResearchAnalysis) (llmclient.ValidationResult, error)
	generateDocument func(kind session.DocumentKind, analysis session.ResearchAnalysis) (string, error)
	refineObjectives func(userText string) (llmclient.ObjectivesResult, error)
	evaluate         func(objective session.Objective) (string, error)
	chatTurn         func(history []session.Message) (llmclient.ChatTurnResult, error)
}

func newFakeCollaborator() *fakeCollaborator {
	return &fakeCollaborator{calls: make(map[string]int)}
}

func (f *fakeCollaborator) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeCollaborator) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeCollaborator) ExtractFacts(_ context.Context, scenario string, files []session.FileData) (llmclient.KeyFactsResult, error) {
	f.count("ExtractFacts")
	if f.extractFacts == nil {
		return llmclient.KeyFactsResult{}, nil
	}
	return f.extractFacts(scenario, files)
}

func (f *fakeCollaborator) ExtractFactsFromHistory(_ context.Context, history []session.Message) (llmclient.KeyFactsResult, error) {
	f.count("ExtractFactsFromHistory")
	if f.extractHistory == nil {
		return llmclient.KeyFactsResult{}, nil
	}
	return f.extractHistory(history)
}

func (f *fakeCollaborator) IdentifySituations(_ context.Context, history []session.Message) (llmclient.SituationsResult, error) {
	f.count("IdentifySituations")
	if f.identify == nil {
		return llmclient.SituationsResult{}, nil
	}
	return f.identify(history)
}

func (f *fakeCollaborator) ConductResearch(_ context.Context, _ []session.Message, situation session.TaxSituation, _ map[string]session.ResearchAnalysis, feedback string) (session.ResearchAnalysis, error) {
	f.count("ConductResearch")
	if f.research == nil {
		return session.ResearchAnalysis{SituationTitle: situation.Title}, nil
	}
	return f.research(situation, feedback)
}

func (f *fakeCollaborator) ValidateResearch(_ context.Context, analysis session.ResearchAnalysis) (llmclient.ValidationResult, error) {
	f.count("ValidateResearch")
	if f.validate == nil {
		return llmclient.ValidationResult{IsAuthoritative: true, HasInDepthDescriptions: true, AreJustificationsValid: true}, nil
	}
	return f.validate(analysis)
}

func (f *fakeCollaborator) GenerateDocument(_ context.Context, kind session.DocumentKind, _ []session.Message, analysis session.ResearchAnalysis) (string, error) {
	f.count("GenerateDocument")
	if f.generateDocument == nil {
		return "content", nil
	}
	return f.generateDocument(kind, analysis)
}

func (f *fakeCollaborator) RefineObjectives(_ context.Context, _ []session.Message, _ map[string]session.ResearchAnalysis, userText string) (llmclient.ObjectivesResult, error) {
	f.count("RefineObjectives")
	if f.refineObjectives == nil {
		return llmclient.ObjectivesResult{}, nil
	}
	return f.refineObjectives(userText)
}

func (f *fakeCollaborator) EvaluateObjective(_ context.Context, _ []session.Message, _ map[string]session.ResearchAnalysis, objective session.Objective) (string, error) {
	f.count("EvaluateObjective")
	if f.evaluate == nil {
		return "evaluation", nil
	}
	return f.evaluate(objective)
}

func (f *fakeCollaborator) ChatTurn(_ context.Context, history []session.Message) (llmclient.ChatTurnResult, error) {
	f.count("ChatTurn")
	if f.chatTurn == nil {
		return llmclient.ChatTurnResult{Text: "ok"}, nil
	}
	return f.chatTurn(history)
}

// fakeExporter records exported documents.
type fakeExporter struct {
	mu   sync.Mutex
	docs []session.GeneratedDocument
	err  error
}

func (f *fakeExporter) ExportDocument(_ context.Context, _ string, doc session.GeneratedDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeExporter) exported() []session.GeneratedDocument {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.GeneratedDocument(nil), f.docs...)
}

func newTestDispatcher(llm *fakeCollaborator) (*Dispatcher, *fakeExporter, *session.Session) {
	exporter := &fakeExporter{}
	d := &Dispatcher{LLM: llm, Exporter: exporter}
	return d, exporter, session.New("s-test")
}
