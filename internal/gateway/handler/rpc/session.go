package rpc

import (
	"io"
	"net/http"

	"taxinference/internal/session"
	"taxinference/internal/snapshot"
)

// maxSnapshotBytes bounds uploaded project files.
const maxSnapshotBytes = 64 << 20

// SessionHandler serves session lifecycle, state views, objective
// completion, error dismissal, and project snapshot save/load.
type SessionHandler struct {
	sessions *session.Manager
}

func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type sessionView struct {
	ID                    string                              `json:"id"`
	Messages              []session.Message                   `json:"messages"`
	CurrentActionID       string                              `json:"currentActionId,omitempty"`
	CurrentActionTitle    string                              `json:"currentActionTitle,omitempty"`
	FactsGenerated        bool                                `json:"factsGenerated"`
	SituationsIdentified  bool                                `json:"situationsIdentified"`
	AllResearched         bool                                `json:"allResearched"`
	ResearchAnalyses      map[string]session.ResearchAnalysis `json:"researchAnalyses"`
	Objectives            []session.Objective                 `json:"objectives"`
	CompletedObjectiveIDs []string                            `json:"completedObjectiveIds"`
	IsAwaitingObjectives  bool                                `json:"isAwaitingObjectives"`
	Errors                []session.ErrorRecord               `json:"errors"`
}

func viewOf(s *session.Session) sessionView {
	actionID, actionTitle := s.CurrentAction()
	return sessionView{
		ID:                    s.ID(),
		Messages:              s.Messages(),
		CurrentActionID:       actionID,
		CurrentActionTitle:    actionTitle,
		FactsGenerated:        s.FactsGenerated(),
		SituationsIdentified:  s.SituationsIdentified(),
		AllResearched:         s.AllResearched(),
		ResearchAnalyses:      s.Analyses(),
		Objectives:            s.Objectives(),
		CompletedObjectiveIDs: s.CompletedObjectiveIDs(),
		IsAwaitingObjectives:  s.AwaitingObjectives(),
		Errors:                s.Errors(),
	}
}

func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": s.ID()})
}

func (h *SessionHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	h.sessions.Remove(s.ID())
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

type toggleObjectiveRequest struct {
	ObjectiveID string `json:"objectiveId"`
}

func (h *SessionHandler) HandleToggleObjective(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req toggleObjectiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ObjectiveID == "" {
		writeError(w, http.StatusBadRequest, "objectiveId is required")
		return
	}
	completed := s.ToggleObjective(req.ObjectiveID)
	writeJSON(w, http.StatusOK, map[string]bool{"completed": completed})
}

type dismissErrorRequest struct {
	ErrorID string `json:"errorId"`
}

func (h *SessionHandler) HandleDismissError(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req dismissErrorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !s.DismissError(req.ErrorID) {
		writeError(w, http.StatusNotFound, "error not found: "+req.ErrorID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"dismissed": true})
}

// HandleSaveSnapshot streams the session state as a downloadable project
// file.
func (h *SessionHandler) HandleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	data, err := snapshot.Encode(s.ExportState())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode project: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+snapshot.DefaultFilename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleLoadSnapshot replaces the session state with an uploaded project
// file. The replace is atomic: a file that fails to decode leaves the
// session untouched.
func (h *SessionHandler) HandleLoadSnapshot(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSnapshotBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read project file: "+err.Error())
		return
	}
	state, err := snapshot.Decode(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.ReplaceState(state)
	writeJSON(w, http.StatusOK, viewOf(s))
}
