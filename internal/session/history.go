package session

// History is the ordered, append-only log of conversation turns. Order is
// chronological and is the sole source of truth for workflow progress; no
// status booleans are stored alongside it. The only in-place mutation is
// the explicit stale-payload strip triggered by a key-facts update.
//
// History is not internally locked; the owning Session serializes access.
type History struct {
	messages []Message
}

// Append adds a message at the end of the log.
func (h *History) Append(msg Message) {
	h.messages = append(h.messages, msg)
}

// Len returns the number of messages.
func (h *History) Len() int {
	return len(h.messages)
}

// Messages returns a deep copy of the log.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	for i, m := range h.messages {
		out[i] = m.Clone()
	}
	return out
}

// Replace swaps the whole log, used by snapshot load only.
func (h *History) Replace(messages []Message) {
	h.messages = make([]Message, len(messages))
	for i, m := range messages {
		h.messages[i] = m.Clone()
	}
}

// StripDerivedPayloads removes taxSituations and researchAnalysis payloads
// from every message. Invoked when the key facts change: derived results
// computed against the old facts must not survive in the log. Messages are
// never removed, so history length stays monotonic.
func (h *History) StripDerivedPayloads() {
	for i := range h.messages {
		h.messages[i].TaxSituations = nil
		h.messages[i].ResearchAnalysis = nil
	}
}

// UserMessageCount reports how many turns are user-attributed. The
// dispatcher uses a zero count to detect scenario intake.
func (h *History) UserMessageCount() int {
	n := 0
	for _, m := range h.messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// FactsGenerated reports whether any message delivered a non-empty key
// facts payload.
func (h *History) FactsGenerated() bool {
	for _, m := range h.messages {
		if len(m.KeyFacts) > 0 {
			return true
		}
	}
	return false
}

// SituationsIdentified reports whether any message delivered a non-empty
// situations payload.
func (h *History) SituationsIdentified() bool {
	for _, m := range h.messages {
		if len(m.TaxSituations) > 0 {
			return true
		}
	}
	return false
}

// AllSituations flattens situations across all messages in first-seen
// order. Later messages may append new situations without duplicating
// existing ids.
func (h *History) AllSituations() []TaxSituation {
	var out []TaxSituation
	seen := make(map[string]struct{})
	for _, m := range h.messages {
		for _, s := range m.TaxSituations {
			if _, ok := seen[s.ID]; ok {
				continue
			}
			seen[s.ID] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// LatestKeyFacts returns the key facts of the most recent qualifying
// message (last-wins), or nil when none exists.
func (h *History) LatestKeyFacts() []KeyFactCategory {
	for i := len(h.messages) - 1; i >= 0; i-- {
		if len(h.messages[i].KeyFacts) > 0 {
			return cloneKeyFacts(h.messages[i].KeyFacts)
		}
	}
	return nil
}

// MergeSituationIntoOwner appends the situation to the most recent message
// that already carries a taxSituations list, keeping situation lists
// consolidated under one owning message. Reports whether the situation was
// added; an id collision with an existing entry is skipped silently.
func (h *History) MergeSituationIntoOwner(sit TaxSituation) bool {
	for i := len(h.messages) - 1; i >= 0; i-- {
		if len(h.messages[i].TaxSituations) == 0 {
			continue
		}
		for _, existing := range h.messages[i].TaxSituations {
			if existing.ID == sit.ID {
				return false
			}
		}
		h.messages[i].TaxSituations = append(h.messages[i].TaxSituations, sit)
		return true
	}
	return false
}
