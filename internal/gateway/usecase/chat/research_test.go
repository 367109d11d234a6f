package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"taxinference/internal/llmclient"
	"taxinference/internal/session"
)

func passingValidation() llmclient.ValidationResult {
	return llmclient.ValidationResult{
		IsAuthoritative:        true,
		HasInDepthDescriptions: true,
		AreJustificationsValid: true,
	}
}

func TestResearchAcceptsOnThirdAttempt(t *testing.T) {
	llm := newFakeCollaborator()
	var feedbackSeen []string
	llm.research = func(situation session.TaxSituation, feedback string) (session.ResearchAnalysis, error) {
		feedbackSeen = append(feedbackSeen, feedback)
		return session.ResearchAnalysis{SituationTitle: situation.Title, Summary: "attempt"}, nil
	}
	validations := 0
	llm.validate = func(session.ResearchAnalysis) (llmclient.ValidationResult, error) {
		validations++
		if validations < 3 {
			return llmclient.ValidationResult{IsAuthoritative: true, Feedback: "needs depth"}, nil
		}
		return passingValidation(), nil
	}
	d, _, s := newTestDispatcher(llm)
	sit := session.NewTaxSituation("Topic A", "a")
	s.AppendMessage(session.Message{Role: session.RoleModel, TaxSituations: []session.TaxSituation{sit}})

	if err := d.ResearchTopic(context.Background(), s, sit); err != nil {
		t.Fatalf("ResearchTopic() error = %v", err)
	}

	if llm.callCount("ConductResearch") != 3 || llm.callCount("ValidateResearch") != 3 {
		t.Fatalf("calls = %d research / %d validate, want 3/3",
			llm.callCount("ConductResearch"), llm.callCount("ValidateResearch"))
	}
	// Rejected feedback threads into the next attempt; the first carries none.
	want := []string{"", "needs depth", "needs depth"}
	for i, fb := range feedbackSeen {
		if fb != want[i] {
			t.Fatalf("feedback[%d] = %q, want %q", i, fb, want[i])
		}
	}
	if !s.IsResearched(sit.ID) {
		t.Fatalf("accepted analysis not committed")
	}
	last := lastMessage(t, s)
	if last.ResearchAnalysis == nil || !strings.Contains(last.Text, "**Topic A**") {
		t.Fatalf("result message malformed: %+v", last)
	}
}

func TestResearchPartialValidationDoesNotPass(t *testing.T) {
	llm := newFakeCollaborator()
	llm.validate = func(session.ResearchAnalysis) (llmclient.ValidationResult, error) {
		// Two of three checks is still a rejection.
		return llmclient.ValidationResult{IsAuthoritative: true, HasInDepthDescriptions: true}, nil
	}
	d, _, s := newTestDispatcher(llm)
	sit := session.NewTaxSituation("Topic A", "a")
	s.AppendMessage(session.Message{Role: session.RoleModel, TaxSituations: []session.TaxSituation{sit}})

	err := d.ResearchTopic(context.Background(), s, sit)
	if !errors.Is(err, ErrValidationExhausted) {
		t.Fatalf("error = %v, want ErrValidationExhausted", err)
	}
	if s.IsResearched(sit.ID) {
		t.Fatalf("rejected analysis must not be committed")
	}
	if llm.callCount("ConductResearch") != MaxResearchAttempts {
		t.Fatalf("attempts = %d, want %d", llm.callCount("ConductResearch"), MaxResearchAttempts)
	}
}

func TestResearchCollaboratorFailureStopsLoop(t *testing.T) {
	llm := newFakeCollaborator()
	boom := errors.New("deadline exceeded")
	llm.research = func(session.TaxSituation, string) (session.ResearchAnalysis, error) {
		return session.ResearchAnalysis{}, boom
	}
	d, _, s := newTestDispatcher(llm)
	sit := session.NewTaxSituation("Topic A", "a")
	s.AppendMessage(session.Message{Role: session.RoleModel, TaxSituations: []session.TaxSituation{sit}})

	err := d.ResearchTopic(context.Background(), s, sit)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want collaborator failure", err)
	}
	if llm.callCount("ConductResearch") != 1 {
		t.Fatalf("a hard failure must not retry: %d calls", llm.callCount("ConductResearch"))
	}
	if llm.callCount("ValidateResearch") != 0 {
		t.Fatalf("validation must not run after a failed generation")
	}
}

func TestReResearchEvictsCachedDocuments(t *testing.T) {
	llm := newFakeCollaborator()
	d, _, s := newTestDispatcher(llm)
	sit := session.NewTaxSituation("Topic A", "a")
	s.AppendMessage(session.Message{Role: session.RoleModel, TaxSituations: []session.TaxSituation{sit}})
	s.CommitAnalysis(sit.ID, session.ResearchAnalysis{SituationTitle: sit.Title})
	s.PutDocument(sit.ID, session.GeneratedDocument{Kind: session.DocumentMemo, Title: "Tax Memo: Topic A"})

	if err := d.ResearchTopic(context.Background(), s, sit); err != nil {
		t.Fatalf("ResearchTopic() error = %v", err)
	}
	if _, ok := s.CachedDocument(sit.ID, session.DocumentMemo); ok {
		t.Fatalf("cached memo survived re-research")
	}
}

func TestRefusedReResearchKeepsCachedDocuments(t *testing.T) {
	llm := newFakeCollaborator()
	d, _, s := newTestDispatcher(llm)
	sit := session.NewTaxSituation("Topic A", "a")
	s.AppendMessage(session.Message{Role: session.RoleModel, TaxSituations: []session.TaxSituation{sit}})
	s.CommitAnalysis(sit.ID, session.ResearchAnalysis{SituationTitle: sit.Title})
	s.PutDocument(sit.ID, session.GeneratedDocument{Kind: session.DocumentMemo, Title: "Tax Memo: Topic A"})

	if err := s.BeginAction("busy", ""); err != nil {
		t.Fatalf("BeginAction() error = %v", err)
	}
	defer s.EndAction()

	err := d.ResearchTopic(context.Background(), s, sit)
	if !errors.Is(err, session.ErrActionInFlight) {
		t.Fatalf("error = %v, want ErrActionInFlight", err)
	}
	// A refused duplicate click must not have touched the document cache.
	if _, ok := s.CachedDocument(sit.ID, session.DocumentMemo); !ok {
		t.Fatalf("refused re-research evicted the cached memo")
	}
	if llm.callCount("ConductResearch") != 0 {
		t.Fatalf("busy session must not reach the collaborator")
	}
}

func TestFullCoverageEntersObjectivesPhase(t *testing.T) {
	llm := newFakeCollaborator()
	d, _, s := newTestDispatcher(llm)
	a := session.NewTaxSituation("Topic A", "a")
	b := session.NewTaxSituation("Topic B", "b")
	s.AppendMessage(session.Message{Role: session.RoleModel, TaxSituations: []session.TaxSituation{a, b}})

	if err := d.ResearchTopic(context.Background(), s, a); err != nil {
		t.Fatalf("ResearchTopic(a) error = %v", err)
	}
	if s.AwaitingObjectives() {
		t.Fatalf("objectives phase entered before full coverage")
	}

	if err := d.ResearchTopic(context.Background(), s, b); err != nil {
		t.Fatalf("ResearchTopic(b) error = %v", err)
	}
	if !s.AwaitingObjectives() {
		t.Fatalf("objectives phase not entered at full coverage")
	}
	if !strings.Contains(lastMessage(t, s).Text, "main objectives") {
		t.Fatalf("missing objectives prompt: %q", lastMessage(t, s).Text)
	}
}

func TestResearchEmitsSubStepEvents(t *testing.T) {
	llm := newFakeCollaborator()
	d, _, s := newTestDispatcher(llm)
	sit := session.NewTaxSituation("Topic A", "a")
	s.AppendMessage(session.Message{Role: session.RoleModel, TaxSituations: []session.TaxSituation{sit}})

	events, cancel := s.Subscribe()
	defer cancel()

	if err := d.ResearchTopic(context.Background(), s, sit); err != nil {
		t.Fatalf("ResearchTopic() error = %v", err)
	}

	var subSteps []string
	for done := false; !done; {
		select {
		case evt := <-events:
			if evt.Kind == session.EventActionSubStep {
				subSteps = append(subSteps, evt.SubStep)
			}
			if evt.Kind == session.EventActionFinished {
				done = true
			}
		default:
			done = true
		}
	}
	if len(subSteps) < 2 {
		t.Fatalf("subSteps = %v, want research + validation progress", subSteps)
	}
	if subSteps[0] != "Attempt 1/3: Researching topic..." {
		t.Fatalf("subSteps[0] = %q", subSteps[0])
	}
	if subSteps[1] != "Attempt 1/3: Validating sources..." {
		t.Fatalf("subSteps[1] = %q", subSteps[1])
	}
}

func TestObjectivesSubmissionCommitsTree(t *testing.T) {
	llm := newFakeCollaborator()
	llm.refineObjectives = func(userText string) (llmclient.ObjectivesResult, error) {
		return llmclient.ObjectivesResult{
			Summary: "Here is the plan.",
			Objectives: []session.Objective{
				{Title: "Minimize Liability", SubObjectives: []session.Objective{{Title: "Harvest Losses"}}},
			},
		}, nil
	}
	d, _, s := newTestDispatcher(llm)
	s.SetAwaitingObjectives(true)

	if err := d.HandleUserInput(context.Background(), s, "keep my bill low", nil); err != nil {
		t.Fatalf("HandleUserInput() error = %v", err)
	}

	if s.AwaitingObjectives() {
		t.Fatalf("awaiting flag must clear on commit")
	}
	objectives := s.Objectives()
	if len(objectives) != 1 || objectives[0].ID != "minimize-liability-0" {
		t.Fatalf("objectives = %+v", objectives)
	}
	if objectives[0].SubObjectives[0].ID != "minimize-liability-0-harvest-losses-0" {
		t.Fatalf("sub objective id = %q", objectives[0].SubObjectives[0].ID)
	}
	if llm.callCount("ChatTurn") != 0 {
		t.Fatalf("objectives submission must bypass the chat turn")
	}
}

func TestObjectivesClarificationStaysAwaiting(t *testing.T) {
	llm := newFakeCollaborator()
	llm.refineObjectives = func(string) (llmclient.ObjectivesResult, error) {
		return llmclient.ObjectivesResult{
			Summary:             "Almost there.",
			ClarifyingQuestions: []string{"Short term or long term?"},
		}, nil
	}
	d, _, s := newTestDispatcher(llm)
	s.SetAwaitingObjectives(true)

	if err := d.HandleUserInput(context.Background(), s, "lower taxes", nil); err != nil {
		t.Fatalf("HandleUserInput() error = %v", err)
	}
	if !s.AwaitingObjectives() {
		t.Fatalf("clarifying questions must keep the awaiting phase")
	}
	if len(s.Objectives()) != 0 {
		t.Fatalf("no objectives may be committed on clarification")
	}
	if !strings.Contains(lastMessage(t, s).Text, "- Short term or long term?") {
		t.Fatalf("questions not rendered: %q", lastMessage(t, s).Text)
	}
}

func TestEvaluateObjectiveAppendsContent(t *testing.T) {
	llm := newFakeCollaborator()
	llm.evaluate = func(objective session.Objective) (string, error) {
		return "## Evaluation of " + objective.Title, nil
	}
	d, _, s := newTestDispatcher(llm)
	obj := session.Objective{ID: "minimize-liability-0", Title: "Minimize Liability"}
	s.SetObjectives([]session.Objective{obj})

	if err := d.EvaluateObjective(context.Background(), s, obj); err != nil {
		t.Fatalf("EvaluateObjective() error = %v", err)
	}
	if got := lastMessage(t, s).Text; got != "## Evaluation of Minimize Liability" {
		t.Fatalf("last message = %q", got)
	}
}
