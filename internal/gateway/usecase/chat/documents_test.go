package chat

import (
	"context"
	"strings"
	"testing"

	"taxinference/internal/session"
)

func TestGenerateDocumentCachesAndExports(t *testing.T) {
	llm := newFakeCollaborator()
	llm.generateDocument = func(kind session.DocumentKind, analysis session.ResearchAnalysis) (string, error) {
		return "memo body", nil
	}
	d, exporter, s := newTestDispatcher(llm)
	sit := session.NewTaxSituation("Topic A", "a")
	analysis := session.ResearchAnalysis{SituationTitle: sit.Title}
	s.CommitAnalysis(sit.ID, analysis)

	if err := d.GenerateDocument(context.Background(), s, sit.ID, session.DocumentMemo, analysis); err != nil {
		t.Fatalf("GenerateDocument() error = %v", err)
	}

	doc, ok := s.CachedDocument(sit.ID, session.DocumentMemo)
	if !ok {
		t.Fatalf("memo not cached")
	}
	if doc.Title != "Tax Memo: Topic A" || doc.Content != "memo body" {
		t.Fatalf("cached doc = %+v", doc)
	}
	exported := exporter.exported()
	if len(exported) != 1 || exported[0].Title != "Tax Memo: Topic A" {
		t.Fatalf("exported = %+v", exported)
	}
	last := lastMessage(t, s)
	if last.GeneratedDoc == nil || !strings.Contains(last.Text, "prepared the tax memo") {
		t.Fatalf("confirmation message malformed: %+v", last)
	}
}

func TestGenerateLetterUsesLetterTitle(t *testing.T) {
	llm := newFakeCollaborator()
	d, _, s := newTestDispatcher(llm)
	sit := session.NewTaxSituation("Topic A", "a")
	analysis := session.ResearchAnalysis{SituationTitle: sit.Title}
	s.CommitAnalysis(sit.ID, analysis)

	if err := d.GenerateDocument(context.Background(), s, sit.ID, session.DocumentLetter, analysis); err != nil {
		t.Fatalf("GenerateDocument() error = %v", err)
	}
	doc, ok := s.CachedDocument(sit.ID, session.DocumentLetter)
	if !ok || doc.Title != "Client Letter: Topic A" {
		t.Fatalf("cached letter = %+v (ok=%v)", doc, ok)
	}
}

func TestCacheHitSkipsCollaborator(t *testing.T) {
	llm := newFakeCollaborator()
	d, exporter, s := newTestDispatcher(llm)
	sit := session.NewTaxSituation("Topic A", "a")
	analysis := session.ResearchAnalysis{SituationTitle: sit.Title}
	cached := session.GeneratedDocument{Kind: session.DocumentMemo, Title: "Tax Memo: Topic A", Content: "old body"}
	s.CommitAnalysis(sit.ID, analysis)
	s.PutDocument(sit.ID, cached)

	if err := d.GenerateDocument(context.Background(), s, sit.ID, session.DocumentMemo, analysis); err != nil {
		t.Fatalf("GenerateDocument() error = %v", err)
	}

	if llm.callCount("GenerateDocument") != 0 {
		t.Fatalf("cache hit must not call the collaborator")
	}
	exported := exporter.exported()
	if len(exported) != 1 || exported[0].Content != "old body" {
		t.Fatalf("cache hit must re-export the stored document: %+v", exported)
	}
	if !strings.Contains(lastMessage(t, s).Text, "found the cached tax memo") {
		t.Fatalf("cache-hit message = %q", lastMessage(t, s).Text)
	}
}

func TestMemoAndLetterCacheIndependently(t *testing.T) {
	llm := newFakeCollaborator()
	d, _, s := newTestDispatcher(llm)
	sit := session.NewTaxSituation("Topic A", "a")
	analysis := session.ResearchAnalysis{SituationTitle: sit.Title}
	s.CommitAnalysis(sit.ID, analysis)
	s.PutDocument(sit.ID, session.GeneratedDocument{Kind: session.DocumentMemo, Title: "Tax Memo: Topic A"})

	if err := d.GenerateDocument(context.Background(), s, sit.ID, session.DocumentLetter, analysis); err != nil {
		t.Fatalf("GenerateDocument() error = %v", err)
	}
	if llm.callCount("GenerateDocument") != 1 {
		t.Fatalf("letter slot must miss when only the memo is cached")
	}
}

func TestExportFailureDoesNotFailGeneration(t *testing.T) {
	llm := newFakeCollaborator()
	d, exporter, s := newTestDispatcher(llm)
	exporter.err = context.DeadlineExceeded
	sit := session.NewTaxSituation("Topic A", "a")
	analysis := session.ResearchAnalysis{SituationTitle: sit.Title}
	s.CommitAnalysis(sit.ID, analysis)

	if err := d.GenerateDocument(context.Background(), s, sit.ID, session.DocumentMemo, analysis); err != nil {
		t.Fatalf("GenerateDocument() error = %v, export is a side-channel", err)
	}
	if _, ok := s.CachedDocument(sit.ID, session.DocumentMemo); !ok {
		t.Fatalf("document must still be cached when export fails")
	}
}
