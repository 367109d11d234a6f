package session

import (
	"time"

	"github.com/google/uuid"
)

// ErrorRecord is one dismissible, user-visible failure notice. Records are
// transient UI state and are not part of the project snapshot.
type ErrorRecord struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func newErrorRecord(message string) ErrorRecord {
	return ErrorRecord{
		ID:        uuid.NewString(),
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}
