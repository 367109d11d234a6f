package chat

import (
	"context"
	"fmt"
	"log"

	"taxinference/internal/session"
)

// GenerateDocument produces the memo or letter for a researched situation.
// A cache hit re-emits the stored artifact without a collaborator call;
// otherwise the document is generated, appended to the transcript,
// exported, and memoized under (situationID, kind).
func (d *Dispatcher) GenerateDocument(ctx context.Context, s *session.Session, situationID string, kind session.DocumentKind, analysis session.ResearchAnalysis) error {
	noun := "tax memo"
	actionID := ActionGenerateMemo + "-" + situationID
	apology := fmt.Sprintf("I had an issue generating the memo for %q. Let's try that again.", analysis.SituationTitle)
	if kind == session.DocumentLetter {
		noun = "client letter"
		actionID = ActionGenerateLetter + "-" + situationID
		apology = fmt.Sprintf("Sorry, I couldn't generate the client letter for %q. Want to give it another go?", analysis.SituationTitle)
	}

	if cached, ok := s.CachedDocument(situationID, kind); ok {
		d.export(ctx, s, cached)
		s.AppendMessage(session.Message{
			Role: session.RoleModel,
			Text: fmt.Sprintf("I found the cached %s for **%s**. It's been downloaded for you again.", noun, analysis.SituationTitle),
		})
		return nil
	}

	return d.withAction(s, actionID, analysis.SituationTitle, apology, func() error {
		cctx, cancel := d.callCtx(ctx)
		defer cancel()
		content, err := d.LLM.GenerateDocument(cctx, kind, s.Messages(), analysis)
		if err != nil {
			return err
		}

		title := "Tax Memo: " + analysis.SituationTitle
		confirmation := fmt.Sprintf("I've prepared the tax memo for **%s**. It's been downloaded for you automatically and saved to your checklist for quick access later.", analysis.SituationTitle)
		if kind == session.DocumentLetter {
			title = "Client Letter: " + analysis.SituationTitle
			confirmation = fmt.Sprintf("I've drafted a client letter regarding **%s**. It has been downloaded automatically and saved for quick access in your checklist.", analysis.SituationTitle)
		}
		doc := session.GeneratedDocument{Kind: kind, Title: title, Content: content}

		s.AppendMessage(session.Message{
			Role:         session.RoleModel,
			Text:         confirmation,
			GeneratedDoc: &doc,
		})
		d.export(ctx, s, doc)
		s.PutDocument(situationID, doc)
		return nil
	})
}

// export hands the artifact to the configured exporter. Export is a
// side-channel: its failure is logged but never fails the action that
// produced the document.
func (d *Dispatcher) export(ctx context.Context, s *session.Session, doc session.GeneratedDocument) {
	if d.Exporter == nil {
		return
	}
	if err := d.Exporter.ExportDocument(ctx, s.ID(), doc); err != nil {
		log.Printf("chat: export of %q failed: %v", doc.Title, err)
	}
}
