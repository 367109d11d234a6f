package session

import (
	"testing"
	"time"
)

func newTestSession() *Session {
	return New("s-test")
}

func TestProjectionsFollowHistory(t *testing.T) {
	s := newTestSession()

	if s.FactsGenerated() || s.SituationsIdentified() {
		t.Fatalf("fresh session must project nothing")
	}

	s.AppendMessage(Message{Role: RoleUser, Text: "scenario"})
	s.AppendMessage(Message{
		Role:     RoleModel,
		Text:     "facts",
		KeyFacts: []KeyFactCategory{{Category: "Income"}},
	})
	if !s.FactsGenerated() {
		t.Fatalf("FactsGenerated = false after key facts message")
	}
	if s.SituationsIdentified() {
		t.Fatalf("SituationsIdentified = true without situations")
	}
	if s.UserMessageCount() != 1 {
		t.Fatalf("UserMessageCount = %d, want 1", s.UserMessageCount())
	}

	s.AppendMessage(Message{
		Role:          RoleModel,
		Text:          "situations",
		TaxSituations: []TaxSituation{NewTaxSituation("Topic A", "a"), NewTaxSituation("Topic B", "b")},
	})
	if !s.SituationsIdentified() {
		t.Fatalf("SituationsIdentified = false after situations message")
	}
	if got := len(s.AllSituations()); got != 2 {
		t.Fatalf("AllSituations len = %d, want 2", got)
	}
}

func TestAllSituationsDeduplicatesAcrossMessages(t *testing.T) {
	s := newTestSession()
	s.AppendMessage(Message{Role: RoleModel, TaxSituations: []TaxSituation{NewTaxSituation("Topic A", "first")}})
	s.AppendMessage(Message{Role: RoleModel, TaxSituations: []TaxSituation{
		NewTaxSituation("Topic A", "second"),
		NewTaxSituation("Topic B", "b"),
	}})

	all := s.AllSituations()
	if len(all) != 2 {
		t.Fatalf("AllSituations len = %d, want 2", len(all))
	}
	if all[0].Description != "first" {
		t.Fatalf("first occurrence must win, got %q", all[0].Description)
	}
}

func TestLatestKeyFactsLastWins(t *testing.T) {
	s := newTestSession()
	s.AppendMessage(Message{Role: RoleModel, KeyFacts: []KeyFactCategory{{Category: "Old"}}})
	s.AppendMessage(Message{Role: RoleModel, Text: "plain turn"})
	s.AppendMessage(Message{Role: RoleModel, KeyFacts: []KeyFactCategory{{Category: "New"}}})

	facts := s.LatestKeyFacts()
	if len(facts) != 1 || facts[0].Category != "New" {
		t.Fatalf("LatestKeyFacts = %+v, want the newest set", facts)
	}
}

func TestMergeSituationIntoOwner(t *testing.T) {
	s := newTestSession()
	s.AppendMessage(Message{Role: RoleModel, TaxSituations: []TaxSituation{NewTaxSituation("Topic A", "a")}})

	if !s.MergeSituationIntoOwner(NewTaxSituation("Topic B", "b")) {
		t.Fatalf("merge of a new topic must succeed")
	}
	if s.MergeSituationIntoOwner(NewTaxSituation("topic a", "dup")) {
		t.Fatalf("merge of a colliding slug must be skipped")
	}
	if got := len(s.AllSituations()); got != 2 {
		t.Fatalf("AllSituations len = %d, want 2", got)
	}
}

func TestResetDerivedStripsPayloadsAndClearsIndexes(t *testing.T) {
	s := newTestSession()
	sit := NewTaxSituation("Topic A", "a")
	s.AppendMessage(Message{Role: RoleModel, TaxSituations: []TaxSituation{sit}})
	s.CommitAnalysis(sit.ID, ResearchAnalysis{SituationTitle: sit.Title, Summary: "done"})
	s.PutDocument(sit.ID, GeneratedDocument{Kind: DocumentMemo, Title: "Tax Memo: Topic A"})
	s.SetObjectives([]Objective{{ID: "o-0", Title: "O"}})
	s.SetAwaitingObjectives(true)

	s.ResetDerived()

	if s.SituationsIdentified() {
		t.Fatalf("situations payload must be stripped from history")
	}
	if s.IsResearched(sit.ID) {
		t.Fatalf("analyses index must be cleared")
	}
	if _, ok := s.CachedDocument(sit.ID, DocumentMemo); ok {
		t.Fatalf("document cache must be cleared")
	}
	if len(s.Objectives()) != 0 || s.AwaitingObjectives() {
		t.Fatalf("objectives phase must be reset")
	}
	// The messages themselves stay; only derived payloads go.
	if s.HistoryLen() != 1 {
		t.Fatalf("HistoryLen = %d, want 1", s.HistoryLen())
	}
}

func TestAllResearchedRequiresFullCoverage(t *testing.T) {
	s := newTestSession()
	if s.AllResearched() {
		t.Fatalf("no situations means nothing is researched")
	}
	a := NewTaxSituation("Topic A", "a")
	b := NewTaxSituation("Topic B", "b")
	s.AppendMessage(Message{Role: RoleModel, TaxSituations: []TaxSituation{a, b}})

	s.CommitAnalysis(a.ID, ResearchAnalysis{SituationTitle: a.Title})
	if s.AllResearched() {
		t.Fatalf("one of two researched must not be full coverage")
	}
	s.CommitAnalysis(b.ID, ResearchAnalysis{SituationTitle: b.Title})
	if !s.AllResearched() {
		t.Fatalf("both researched must be full coverage")
	}
}

func TestActionSingleFlight(t *testing.T) {
	s := newTestSession()
	if err := s.BeginAction("research-a", "Topic A"); err != nil {
		t.Fatalf("BeginAction() error = %v", err)
	}
	if err := s.BeginAction("chat", ""); err != ErrActionInFlight {
		t.Fatalf("second BeginAction() error = %v, want ErrActionInFlight", err)
	}
	s.EndAction()
	if err := s.BeginAction("chat", ""); err != nil {
		t.Fatalf("BeginAction() after EndAction() error = %v", err)
	}
}

func TestToggleObjectiveAndCompletionSet(t *testing.T) {
	s := newTestSession()
	if !s.ToggleObjective("o-1") {
		t.Fatalf("first toggle must mark completed")
	}
	if !s.ToggleObjective("o-0") {
		t.Fatalf("toggle of a second id must mark completed")
	}
	got := s.CompletedObjectiveIDs()
	if len(got) != 2 || got[0] != "o-0" || got[1] != "o-1" {
		t.Fatalf("CompletedObjectiveIDs = %v, want sorted [o-0 o-1]", got)
	}
	if s.ToggleObjective("o-1") {
		t.Fatalf("second toggle must unmark")
	}
}

func TestErrorsDismissal(t *testing.T) {
	s := newTestSession()
	rec := s.AddError("something broke")
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Fatalf("error record not populated: %+v", rec)
	}
	if s.DismissError("nope") {
		t.Fatalf("dismiss of unknown id must report false")
	}
	if !s.DismissError(rec.ID) {
		t.Fatalf("dismiss of known id must report true")
	}
	if got := len(s.Errors()); got != 0 {
		t.Fatalf("Errors len = %d after dismissal", got)
	}
}

func TestSubscribeReceivesAppendedMessages(t *testing.T) {
	s := newTestSession()
	events, cancel := s.Subscribe()
	defer cancel()

	s.AppendMessage(Message{Role: RoleUser, Text: "hi"})

	select {
	case evt := <-events:
		if evt.Kind != EventMessage || evt.Message == nil || evt.Message.Text != "hi" {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("no event received")
	}
}

func TestExportReplaceStateRoundTrip(t *testing.T) {
	s := newTestSession()
	sit := NewTaxSituation("Topic A", "a")
	s.AppendMessage(Message{Role: RoleUser, Text: "scenario"})
	s.AppendMessage(Message{Role: RoleModel, TaxSituations: []TaxSituation{sit}})
	s.CommitAnalysis(sit.ID, ResearchAnalysis{SituationTitle: sit.Title, Summary: "sum"})
	s.ToggleObjective("o-0")
	s.SetAwaitingObjectives(true)

	state := s.ExportState()

	other := New("s-other")
	other.ReplaceState(state)

	if other.HistoryLen() != 2 {
		t.Fatalf("HistoryLen = %d, want 2", other.HistoryLen())
	}
	if !other.IsResearched(sit.ID) {
		t.Fatalf("analyses not carried over")
	}
	if got := other.CompletedObjectiveIDs(); len(got) != 1 || got[0] != "o-0" {
		t.Fatalf("completed set not carried over: %v", got)
	}
	if !other.AwaitingObjectives() {
		t.Fatalf("awaiting flag not carried over")
	}

	// The exported state is a snapshot, not a live view.
	state.ChatHistory[0].Text = "mutated"
	if s.Messages()[0].Text != "scenario" {
		t.Fatalf("ExportState leaked live storage")
	}
}
