package session

import "sync"

// EventKind discriminates session events pushed to subscribers.
type EventKind string

const (
	EventActionStarted  EventKind = "action_started"
	EventActionSubStep  EventKind = "action_substep"
	EventActionFinished EventKind = "action_finished"
	EventMessage        EventKind = "message"
	EventError          EventKind = "error"
	EventStateReplaced  EventKind = "state_replaced"
)

// Event is one session notification. Message and ErrorRecord are set only
// for the corresponding kinds.
type Event struct {
	Kind        EventKind    `json:"kind"`
	ActionID    string       `json:"actionId,omitempty"`
	ActionTitle string       `json:"actionTitle,omitempty"`
	SubStep     string       `json:"subStep,omitempty"`
	Message     *Message     `json:"message,omitempty"`
	ErrorRecord *ErrorRecord `json:"error,omitempty"`
}

// broadcaster fans events out to subscribers. Slow subscribers lose the
// oldest buffered event rather than blocking the publisher.
type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event)}
}

func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, 32)
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
