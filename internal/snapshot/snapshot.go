// Package snapshot serializes the entire derived session state into a
// versioned project file and loads it back through per-version migration.
// The loader recognizes exactly the versions it has migration code for and
// rejects all others; it never guesses.
package snapshot

import (
	"encoding/json"
	"fmt"

	"taxinference/internal/session"
)

// CurrentVersion is the version written by Encode.
const CurrentVersion = 1

// DefaultFilename is the suggested download name for a saved project.
const DefaultFilename = "tax-inference-project.taxproj"

// ParseError reports bytes that are not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("snapshot: invalid project file: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// VersionError reports a version the loader has no migration for.
type VersionError struct {
	Version int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("snapshot: unsupported project file version: %d", e.Version)
}

// StructureError reports structurally unusable JSON (wrong shape, missing
// version field).
type StructureError struct {
	Reason string
}

func (e *StructureError) Error() string {
	return "snapshot: malformed project file: " + e.Reason
}

// file is the on-disk shape. Field names match the original project file
// format so existing .taxproj files load unchanged.
type file struct {
	Version              *int                                `json:"version"`
	ChatHistory          []session.Message                   `json:"chatHistory"`
	ResearchAnalyses     map[string]session.ResearchAnalysis `json:"researchAnalyses"`
	CachedDocuments      map[string]session.CachedDocuments  `json:"cachedDocuments"`
	Objectives           []session.Objective                 `json:"objectives"`
	CompletedObjectives  []string                            `json:"completedObjectives"`
	IsAwaitingObjectives bool                                `json:"isAwaitingObjectives"`
}

// Encode serializes the state with the current version tag.
func Encode(state session.State) ([]byte, error) {
	v := CurrentVersion
	f := file{
		Version:              &v,
		ChatHistory:          state.ChatHistory,
		ResearchAnalyses:     state.ResearchAnalyses,
		CachedDocuments:      state.CachedDocuments,
		Objectives:           state.Objectives,
		CompletedObjectives:  state.CompletedObjectives,
		IsAwaitingObjectives: state.IsAwaitingObjectives,
	}
	if f.ChatHistory == nil {
		f.ChatHistory = []session.Message{}
	}
	if f.ResearchAnalyses == nil {
		f.ResearchAnalyses = map[string]session.ResearchAnalysis{}
	}
	if f.CachedDocuments == nil {
		f.CachedDocuments = map[string]session.CachedDocuments{}
	}
	if f.Objectives == nil {
		f.Objectives = []session.Objective{}
	}
	if f.CompletedObjectives == nil {
		f.CompletedObjectives = []string{}
	}
	return json.MarshalIndent(f, "", "  ")
}

// Decode parses and migrates a project file. Failure modes are typed:
// ParseError for invalid JSON, StructureError for a usable-JSON wrong
// shape, VersionError for versions without migration code.
func Decode(data []byte) (session.State, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		if _, ok := err.(*json.UnmarshalTypeError); ok {
			return session.State{}, &StructureError{Reason: err.Error()}
		}
		return session.State{}, &ParseError{Err: err}
	}
	if f.Version == nil {
		return session.State{}, &StructureError{Reason: "missing version field"}
	}

	switch *f.Version {
	case 1:
		return migrateV1(f), nil
	default:
		return session.State{}, &VersionError{Version: *f.Version}
	}
}

// migrateV1 maps missing fields to safe defaults: empty collections and a
// cleared awaiting flag.
func migrateV1(f file) session.State {
	state := session.State{
		ChatHistory:          f.ChatHistory,
		ResearchAnalyses:     f.ResearchAnalyses,
		CachedDocuments:      f.CachedDocuments,
		Objectives:           f.Objectives,
		CompletedObjectives:  f.CompletedObjectives,
		IsAwaitingObjectives: f.IsAwaitingObjectives,
	}
	if state.ChatHistory == nil {
		state.ChatHistory = []session.Message{}
	}
	if state.ResearchAnalyses == nil {
		state.ResearchAnalyses = map[string]session.ResearchAnalysis{}
	}
	if state.CachedDocuments == nil {
		state.CachedDocuments = map[string]session.CachedDocuments{}
	}
	if state.Objectives == nil {
		state.Objectives = []session.Objective{}
	}
	if state.CompletedObjectives == nil {
		state.CompletedObjectives = []string{}
	}
	return state
}
