package session

import (
	"errors"
	"sort"
	"sync"
)

// ErrActionInFlight is returned by BeginAction while another action holds
// the session. One logical action runs at a time per session; the gate is
// enforced here rather than left to caller convention.
var ErrActionInFlight = errors.New("session: another action is in flight")

// State is the complete derived session state, the unit of snapshot
// save/load. Transient UI state (current action, error records) is excluded.
type State struct {
	ChatHistory          []Message
	ResearchAnalyses     map[string]ResearchAnalysis
	CachedDocuments      map[string]CachedDocuments
	Objectives           []Objective
	CompletedObjectives  []string
	IsAwaitingObjectives bool
}

// Session owns all conversation and workflow state for one research case.
// Mutations go through its methods only; reads return deep copies so no
// caller ever holds a live collection.
type Session struct {
	id string

	mu                 sync.Mutex
	history            History
	analyses           map[string]ResearchAnalysis
	docs               *DocumentCache
	objectives         []Objective
	completed          map[string]struct{}
	awaitingObjectives bool

	errors             []ErrorRecord
	currentAction      string
	currentActionTitle string

	events *broadcaster
}

// New returns an empty session.
func New(id string) *Session {
	return &Session{
		id:        id,
		analyses:  make(map[string]ResearchAnalysis),
		docs:      NewDocumentCache(),
		completed: make(map[string]struct{}),
		events:    newBroadcaster(),
	}
}

func (s *Session) ID() string { return s.id }

// Subscribe registers an event listener. The returned cancel func must be
// called when the listener goes away.
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe()
}

// BeginAction claims the single-flight action slot. actionID doubles as the
// UI busy-state identity (e.g. "research-<situationId>").
func (s *Session) BeginAction(actionID, title string) error {
	s.mu.Lock()
	if s.currentAction != "" {
		s.mu.Unlock()
		return ErrActionInFlight
	}
	s.currentAction = actionID
	s.currentActionTitle = title
	s.mu.Unlock()
	s.events.publish(Event{Kind: EventActionStarted, ActionID: actionID, ActionTitle: title})
	return nil
}

// SetSubStep publishes progress text for the action in flight.
func (s *Session) SetSubStep(subStep string) {
	s.mu.Lock()
	actionID := s.currentAction
	s.mu.Unlock()
	if actionID == "" {
		return
	}
	s.events.publish(Event{Kind: EventActionSubStep, ActionID: actionID, SubStep: subStep})
}

// EndAction releases the action slot.
func (s *Session) EndAction() {
	s.mu.Lock()
	actionID := s.currentAction
	s.currentAction = ""
	s.currentActionTitle = ""
	s.mu.Unlock()
	if actionID != "" {
		s.events.publish(Event{Kind: EventActionFinished, ActionID: actionID})
	}
}

// CurrentAction returns the in-flight action identity, empty when idle.
func (s *Session) CurrentAction() (actionID, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentAction, s.currentActionTitle
}

// AppendMessage appends a turn to the history.
func (s *Session) AppendMessage(msg Message) {
	s.mu.Lock()
	s.history.Append(msg)
	s.mu.Unlock()
	cloned := msg.Clone()
	s.events.publish(Event{Kind: EventMessage, Message: &cloned})
}

// Messages returns a deep copy of the conversation log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Messages()
}

// HistoryLen returns the number of messages.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}

// UserMessageCount reports user-attributed turns.
func (s *Session) UserMessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.UserMessageCount()
}

// FactsGenerated reports whether some message delivered key facts.
func (s *Session) FactsGenerated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.FactsGenerated()
}

// SituationsIdentified reports whether some message delivered situations.
func (s *Session) SituationsIdentified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.SituationsIdentified()
}

// AllSituations flattens situations across the log in first-seen order.
func (s *Session) AllSituations() []TaxSituation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.AllSituations()
}

// LatestKeyFacts returns the most recent key facts payload, last-wins.
func (s *Session) LatestKeyFacts() []KeyFactCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.LatestKeyFacts()
}

// MergeSituationIntoOwner consolidates a new situation into the most recent
// message carrying a situations list. Reports whether it was added.
func (s *Session) MergeSituationIntoOwner(sit TaxSituation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.MergeSituationIntoOwner(sit)
}

// ResetDerived strips situations and analyses from the history and clears
// the analyses index, document cache, objectives, and completion marks.
// Invoked when the key facts change; the history itself is preserved.
func (s *Session) ResetDerived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.StripDerivedPayloads()
	s.analyses = make(map[string]ResearchAnalysis)
	s.docs.Clear()
	s.objectives = nil
	s.completed = make(map[string]struct{})
	s.awaitingObjectives = false
}

// CommitAnalysis admits a validated analysis into the index. Membership in
// the index is what "researched" means; no separate flag exists.
func (s *Session) CommitAnalysis(situationID string, analysis ResearchAnalysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[situationID] = analysis.Clone()
}

// Analysis returns the committed analysis for a situation, if any.
func (s *Session) Analysis(situationID string) (ResearchAnalysis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.analyses[situationID]
	if !ok {
		return ResearchAnalysis{}, false
	}
	return a.Clone(), true
}

// Analyses returns a deep copy of the whole index.
func (s *Session) Analyses() map[string]ResearchAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]ResearchAnalysis, len(s.analyses))
	for id, a := range s.analyses {
		out[id] = a.Clone()
	}
	return out
}

// IsResearched reports index membership for a situation id.
func (s *Session) IsResearched(situationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.analyses[situationID]
	return ok
}

// AllResearched reports whether every known situation has a committed
// analysis. False when no situations are known.
func (s *Session) AllResearched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sits := s.history.AllSituations()
	if len(sits) == 0 {
		return false
	}
	for _, sit := range sits {
		if _, ok := s.analyses[sit.ID]; !ok {
			return false
		}
	}
	return true
}

// CachedDocument looks up the memoized document for (situation, kind).
func (s *Session) CachedDocument(situationID string, kind DocumentKind) (GeneratedDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs.Get(situationID, kind)
}

// PutDocument memoizes a generated document.
func (s *Session) PutDocument(situationID string, doc GeneratedDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs.Put(situationID, doc)
}

// EvictDocuments drops cached documents for a situation. Re-research calls
// this before the new attempt: stale exported paperwork is worse than a
// momentary cache miss.
func (s *Session) EvictDocuments(situationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs.Evict(situationID)
}

// Objectives returns a deep copy of the objectives tree.
func (s *Session) Objectives() []Objective {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneObjectives(s.objectives)
}

// SetObjectives commits the refined objectives tree and leaves the
// awaiting-objectives phase.
func (s *Session) SetObjectives(objectives []Objective) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objectives = CloneObjectives(objectives)
	s.awaitingObjectives = false
}

// AwaitingObjectives reports whether the next user input is routed to the
// objectives refinement path unconditionally.
func (s *Session) AwaitingObjectives() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitingObjectives
}

// SetAwaitingObjectives flips the objectives gate.
func (s *Session) SetAwaitingObjectives(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaitingObjectives = v
}

// ToggleObjective flips the completion mark for an objective id and
// reports the new state.
func (s *Session) ToggleObjective(objectiveID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.completed[objectiveID]; ok {
		delete(s.completed, objectiveID)
		return false
	}
	s.completed[objectiveID] = struct{}{}
	return true
}

// CompletedObjectiveIDs returns the completion set, sorted for stable
// serialization.
func (s *Session) CompletedObjectiveIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.completed))
	for id := range s.completed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AddError records a dismissible error and publishes it.
func (s *Session) AddError(message string) ErrorRecord {
	rec := newErrorRecord(message)
	s.mu.Lock()
	s.errors = append(s.errors, rec)
	s.mu.Unlock()
	s.events.publish(Event{Kind: EventError, ErrorRecord: &rec})
	return rec
}

// DismissError removes an error record by id.
func (s *Session) DismissError(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.errors {
		if rec.ID == id {
			s.errors = append(s.errors[:i], s.errors[i+1:]...)
			return true
		}
	}
	return false
}

// Errors returns a copy of the pending error records.
func (s *Session) Errors() []ErrorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ErrorRecord(nil), s.errors...)
}

// ExportState captures the snapshot-able state as a deep copy.
func (s *Session) ExportState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	analyses := make(map[string]ResearchAnalysis, len(s.analyses))
	for id, a := range s.analyses {
		analyses[id] = a.Clone()
	}
	completed := make([]string, 0, len(s.completed))
	for id := range s.completed {
		completed = append(completed, id)
	}
	sort.Strings(completed)
	return State{
		ChatHistory:          s.history.Messages(),
		ResearchAnalyses:     analyses,
		CachedDocuments:      s.docs.Snapshot(),
		Objectives:           CloneObjectives(s.objectives),
		CompletedObjectives:  completed,
		IsAwaitingObjectives: s.awaitingObjectives,
	}
}

// ReplaceState swaps the entire session state atomically, used by snapshot
// load. Error records and any in-flight action identity are untouched.
func (s *Session) ReplaceState(state State) {
	s.mu.Lock()
	s.history.Replace(state.ChatHistory)
	s.analyses = make(map[string]ResearchAnalysis, len(state.ResearchAnalyses))
	for id, a := range state.ResearchAnalyses {
		s.analyses[id] = a.Clone()
	}
	s.docs.Replace(state.CachedDocuments)
	s.objectives = CloneObjectives(state.Objectives)
	s.completed = make(map[string]struct{}, len(state.CompletedObjectives))
	for _, id := range state.CompletedObjectives {
		s.completed[id] = struct{}{}
	}
	s.awaitingObjectives = state.IsAwaitingObjectives
	s.mu.Unlock()
	s.events.publish(Event{Kind: EventStateReplaced})
}
