package chat

import (
	"context"
	"errors"
	"fmt"

	"taxinference/internal/llmclient"
	"taxinference/internal/session"
)

// MaxResearchAttempts bounds the generate/validate loop per topic.
const MaxResearchAttempts = 3

// ErrValidationExhausted reports that no attempt passed validation within
// the attempt budget. Distinct from a collaborator failure: the calls
// succeeded, the content never did.
var ErrValidationExhausted = errors.New("chat: failed to generate a valid research analysis after multiple attempts")

// ResearchTopic runs the bounded research validation loop for one
// situation. Nothing is committed unless a validation pass reports all
// three checks true; rejected feedback is threaded into the next attempt.
// On acceptance, if every known situation is now researched, the session
// transitions into the objectives phase.
func (d *Dispatcher) ResearchTopic(ctx context.Context, s *session.Session, situation session.TaxSituation) error {
	return d.withAction(s, ActionResearch+"-"+situation.ID, situation.Title,
		fmt.Sprintf("I ran into a little trouble researching %q. Want to try again?", situation.Title),
		func() error {
			// A deliberate re-research invalidates prior generated paperwork
			// even before the new attempt is known to succeed: stale exported
			// documents are worse than a momentary absence of cache. The
			// eviction waits for the action slot so a refused duplicate click
			// leaves the cache intact.
			if s.IsResearched(situation.ID) {
				s.EvictDocuments(situation.ID)
			}
			return d.researchLoop(ctx, s, situation)
		})
}

func (d *Dispatcher) researchLoop(ctx context.Context, s *session.Session, situation session.TaxSituation) error {
	history := s.Messages()
	prior := s.Analyses()

	var accepted *session.ResearchAnalysis
	var feedback string
	for attempt := 1; attempt <= MaxResearchAttempts; attempt++ {
		s.SetSubStep(fmt.Sprintf("Attempt %d/%d: Researching topic...", attempt, MaxResearchAttempts))
		analysis, err := d.conductResearch(ctx, history, situation, prior, feedback)
		if err != nil {
			return err
		}

		s.SetSubStep(fmt.Sprintf("Attempt %d/%d: Validating sources...", attempt, MaxResearchAttempts))
		validation, err := d.validateResearch(ctx, analysis)
		if err != nil {
			return err
		}
		if validation.Passed() {
			accepted = &analysis
			break
		}
		feedback = validation.Feedback
	}
	if accepted == nil {
		return ErrValidationExhausted
	}

	s.CommitAnalysis(situation.ID, *accepted)
	s.AppendMessage(session.Message{
		Role:             session.RoleModel,
		Text:             fmt.Sprintf("Roger that! I've done a deep dive on **%s**. Here's what I found:", situation.Title),
		ResearchAnalysis: accepted,
	})

	// Coverage gate: once the researched set covers every known situation,
	// invite the user to state case objectives. One-way transition.
	if s.AllResearched() {
		s.AppendMessage(session.Message{
			Role: session.RoleModel,
			Text: "Great, all the initial research is complete! To make sure we're on the right track, what are your main objectives for this case?",
		})
		s.SetAwaitingObjectives(true)
	}
	return nil
}

func (d *Dispatcher) conductResearch(ctx context.Context, history []session.Message, situation session.TaxSituation, prior map[string]session.ResearchAnalysis, feedback string) (session.ResearchAnalysis, error) {
	cctx, cancel := d.callCtx(ctx)
	defer cancel()
	return d.LLM.ConductResearch(cctx, history, situation, prior, feedback)
}

func (d *Dispatcher) validateResearch(ctx context.Context, analysis session.ResearchAnalysis) (llmclient.ValidationResult, error) {
	cctx, cancel := d.callCtx(ctx)
	defer cancel()
	return d.LLM.ValidateResearch(cctx, analysis)
}
