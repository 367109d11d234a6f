// Package chat implements the conversation workflow: dispatching user
// input to the right collaborator call, the bounded research validation
// loop, document generation with caching, and objectives refinement.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"taxinference/internal/llmclient"
	"taxinference/internal/session"
)

// Action identifiers, used for the single-flight gate and UI busy state.
const (
	ActionPullFacts         = "pull-facts"
	ActionIdentify          = "identify-situations"
	ActionChat              = "chat"
	ActionResearch          = "research"
	ActionGenerateMemo      = "generate-memo"
	ActionGenerateLetter    = "generate-letter"
	ActionRefineObjectives  = "refine-objectives"
	ActionEvaluateObjective = "evaluate-objective"
)

// Exporter persists a generated markdown artifact outside the session; the
// download side-effect of the original flow. Implementations must be safe
// for concurrent use.
type Exporter interface {
	ExportDocument(ctx context.Context, sessionID string, doc session.GeneratedDocument) error
}

// Dispatcher routes user input and workflow commands to collaborator calls
// and applies their results to the session. All failures are recovered
// here: each produces one error record and, where conversationally
// appropriate, one model-voice apology message; partial results are never
// committed.
type Dispatcher struct {
	LLM      llmclient.Collaborator
	Exporter Exporter
	// Timeout bounds each collaborator call. Zero means no deadline.
	Timeout time.Duration
}

func (d *Dispatcher) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.Timeout)
}

// withAction claims the session's action slot, runs fn, and converts any
// failure into an error record plus an apology message in the transcript.
func (d *Dispatcher) withAction(s *session.Session, actionID, title, apology string, fn func() error) error {
	if err := s.BeginAction(actionID, title); err != nil {
		return err
	}
	defer s.EndAction()
	if err := fn(); err != nil {
		log.Printf("chat: action %s failed: %v", actionID, err)
		s.AddError(fmt.Sprintf("%s (Details: %v)", apology, err))
		s.AppendMessage(session.Message{Role: session.RoleModel, Text: apology})
		return err
	}
	return nil
}

// HandleUserInput is the single entry point for raw user input. A pending
// objectives question overrides all other interpretation; the first
// substantive turn is scenario intake; everything else is routed through
// the collaborator's tool-call decision.
func (d *Dispatcher) HandleUserInput(ctx context.Context, s *session.Session, text string, files []session.FileData) error {
	if s.AwaitingObjectives() {
		return d.handleObjectivesSubmission(ctx, s, text)
	}
	if strings.TrimSpace(text) == "" && len(files) == 0 {
		return nil
	}

	isFirst := s.UserMessageCount() == 0

	userText := text
	if isFirst {
		userText = "Here is the tax scenario I need help with:\n\n" + text
		if len(files) == 1 {
			userText += "\n\nI have also attached 1 document for context."
		} else if len(files) > 1 {
			userText += fmt.Sprintf("\n\nI have also attached %d documents for context.", len(files))
		}
	}

	// When a follow-up turn carries attachments, the collaborator sees a
	// hint steering it toward the update_key_facts tool; the displayed
	// message keeps the user's own words.
	textForAPI := text
	if !isFirst && len(files) > 0 {
		textForAPI = fmt.Sprintf("The user has provided new information and attached %d file(s). Please use the 'update_key_facts' tool to re-evaluate the scenario. User's message: %q", len(files), text)
	}

	// The transcript append happens only once the action slot is claimed: a
	// refused turn must leave no trace, or the retry of a first message
	// would no longer look like scenario intake.
	userMsg := session.Message{Role: session.RoleUser, Text: userText, FilesData: files}

	if isFirst {
		return d.withAction(s, ActionPullFacts, "",
			"Hmm, something went wrong while pulling out the key facts. Let's give it another shot.",
			func() error {
				s.AppendMessage(userMsg)
				return d.scenarioIntake(ctx, s, text, files)
			})
	}
	return d.withAction(s, ActionChat, "",
		"Looks like I'm having a little trouble connecting. Please check your connection and try again.",
		func() error {
			s.AppendMessage(userMsg)
			return d.chatTurn(ctx, s, textForAPI)
		})
}

func (d *Dispatcher) scenarioIntake(ctx context.Context, s *session.Session, scenario string, files []session.FileData) error {
	cctx, cancel := d.callCtx(ctx)
	defer cancel()
	res, err := d.LLM.ExtractFacts(cctx, scenario, files)
	if err != nil {
		return err
	}

	aiText := res.Summary
	if len(res.ClarifyingQuestions) > 0 {
		aiText += "\n\nTo give you the best analysis, I need a little more information. Could you tell me about the following?\n\n" + bulletList(res.ClarifyingQuestions)
	}
	s.AppendMessage(session.Message{Role: session.RoleModel, Text: aiText, KeyFacts: res.KeyFacts})
	return nil
}

func (d *Dispatcher) chatTurn(ctx context.Context, s *session.Session, textForAPI string) error {
	history := s.Messages()
	if len(history) > 0 && textForAPI != "" {
		history[len(history)-1].Text = textForAPI
	}

	cctx, cancel := d.callCtx(ctx)
	defer cancel()
	res, err := d.LLM.ChatTurn(cctx, history)
	if err != nil {
		return err
	}

	switch res.Intent {
	case llmclient.IntentListFacts:
		return d.regenerateFacts(ctx, s, false)
	case llmclient.IntentUpdateFacts:
		return d.regenerateFacts(ctx, s, true)
	case llmclient.IntentIdentifySituations:
		return d.identifySituations(ctx, s)
	case llmclient.IntentAddTopic:
		return d.addTopic(s, res)
	default:
		s.AppendMessage(session.Message{Role: session.RoleModel, Text: res.Text})
		return nil
	}
}

// regenerateFacts re-runs fact extraction over the entire history. On an
// update, stale derived results are stripped first so nothing computed
// against the old facts survives.
func (d *Dispatcher) regenerateFacts(ctx context.Context, s *session.Session, isUpdate bool) error {
	cctx, cancel := d.callCtx(ctx)
	defer cancel()
	res, err := d.LLM.ExtractFactsFromHistory(cctx, s.Messages())
	if err != nil {
		return err
	}

	if isUpdate {
		s.ResetDerived()
	}
	summary := "You got it! Here's a quick summary of the key facts we've gathered:"
	if isUpdate {
		summary = "Got it! I've updated the key facts with your new info. Here's the latest:"
	}
	s.AppendMessage(session.Message{
		Role:             session.RoleModel,
		Text:             summary,
		KeyFacts:         res.KeyFacts,
		IsKeyFactsUpdate: isUpdate,
	})
	return nil
}

func (d *Dispatcher) identifySituations(ctx context.Context, s *session.Session) error {
	cctx, cancel := d.callCtx(ctx)
	defer cancel()
	res, err := d.LLM.IdentifySituations(cctx, s.Messages())
	if err != nil {
		return err
	}

	situations := make([]session.TaxSituation, 0, len(res.Situations))
	seen := make(map[string]struct{})
	for _, raw := range res.Situations {
		sit := session.NewTaxSituation(raw.Title, raw.Description)
		// Titles that slugify to the same id are the same topic; keep the
		// first occurrence.
		if _, ok := seen[sit.ID]; ok {
			continue
		}
		seen[sit.ID] = struct{}{}
		situations = append(situations, sit)
	}

	s.AppendMessage(session.Message{Role: session.RoleModel, Text: res.Summary, TaxSituations: situations})
	return nil
}

// addTopic constructs a situation from the collaborator-supplied topic and
// merges it into the message that owns the situations list, keeping one
// consolidated list rather than scattering per-topic messages.
func (d *Dispatcher) addTopic(s *session.Session, res llmclient.ChatTurnResult) error {
	topic := strings.TrimSpace(res.Topic)
	if topic == "" {
		s.AppendMessage(session.Message{Role: session.RoleModel, Text: res.Text})
		return nil
	}
	sit := session.NewTaxSituation(topic, "A research topic added at your request.")

	text := res.Text
	if strings.TrimSpace(text) == "" {
		text = fmt.Sprintf("Sure thing! I've added **%s** to our list of research topics.", sit.Title)
	}
	s.AppendMessage(session.Message{Role: session.RoleModel, Text: text, NewTaxSituation: &sit})
	s.MergeSituationIntoOwner(sit)
	return nil
}

// IdentifySituations is the explicit workflow command ("analyze the tax
// situations" button) sharing the chat-turn identification path.
func (d *Dispatcher) IdentifySituations(ctx context.Context, s *session.Session) error {
	return d.withAction(s, ActionIdentify, "",
		"I hit a snag analyzing the tax situations. Mind trying that again?",
		func() error { return d.identifySituations(ctx, s) })
}

// ReanalyzeKeyFacts is the explicit facts-refresh command. Like the
// update-facts tool path it invalidates all derived state first.
func (d *Dispatcher) ReanalyzeKeyFacts(ctx context.Context, s *session.Session) error {
	return d.withAction(s, ActionPullFacts, "",
		"I had a little trouble re-analyzing the key facts. Would you like to try that again?",
		func() error {
			cctx, cancel := d.callCtx(ctx)
			defer cancel()
			res, err := d.LLM.ExtractFactsFromHistory(cctx, s.Messages())
			if err != nil {
				return err
			}
			s.ResetDerived()
			s.AppendMessage(session.Message{
				Role:             session.RoleModel,
				Text:             "Alright, I've taken another look and refreshed the key facts based on our conversation so far. Here's the updated list:",
				KeyFacts:         res.KeyFacts,
				IsKeyFactsUpdate: true,
			})
			return nil
		})
}

func bulletList(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(item)
	}
	return sb.String()
}
