package chat

import (
	"context"
	"fmt"

	"taxinference/internal/session"
)

// handleObjectivesSubmission treats the input as the user's stated goals.
// The refinement collaborator either asks clarifying questions, keeping the
// session in the awaiting-objectives phase, or returns the objectives tree,
// which is committed with stable ids and clears the awaiting flag.
func (d *Dispatcher) handleObjectivesSubmission(ctx context.Context, s *session.Session, userText string) error {
	return d.withAction(s, ActionRefineObjectives, "",
		"I had some trouble refining your objectives. Could you please state them again?",
		func() error {
			s.AppendMessage(session.Message{Role: session.RoleUser, Text: userText})

			cctx, cancel := d.callCtx(ctx)
			defer cancel()
			res, err := d.LLM.RefineObjectives(cctx, s.Messages(), s.Analyses(), userText)
			if err != nil {
				return err
			}

			if len(res.ClarifyingQuestions) > 0 {
				s.AppendMessage(session.Message{
					Role: session.RoleModel,
					Text: res.Summary + "\n\nTo make sure I understand correctly, could you clarify a few things?\n\n" + bulletList(res.ClarifyingQuestions),
				})
				return nil
			}

			objectives := session.AssignObjectiveIDs(res.Objectives)
			s.AppendMessage(session.Message{
				Role:       session.RoleModel,
				Text:       res.Summary,
				Objectives: objectives,
			})
			s.SetObjectives(objectives)
			return nil
		})
}

// EvaluateObjective produces a focused markdown recommendation for one
// committed objective.
func (d *Dispatcher) EvaluateObjective(ctx context.Context, s *session.Session, objective session.Objective) error {
	return d.withAction(s, ActionEvaluateObjective+"-"+objective.ID, objective.Title,
		fmt.Sprintf("I couldn't put together the evaluation for %q. Want to try again?", objective.Title),
		func() error {
			cctx, cancel := d.callCtx(ctx)
			defer cancel()
			content, err := d.LLM.EvaluateObjective(cctx, s.Messages(), s.Analyses(), objective)
			if err != nil {
				return err
			}
			s.AppendMessage(session.Message{Role: session.RoleModel, Text: content})
			return nil
		})
}
