package rpc

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"taxinference/internal/gateway/usecase/chat"
	"taxinference/internal/session"
)

// maxUploadBytes bounds one message's attachments in aggregate.
const maxUploadBytes = 32 << 20

// ChatHandler routes user input and workflow commands to the dispatcher.
type ChatHandler struct {
	sessions *session.Manager
	chat     *chat.Dispatcher
}

func NewChatHandler(sessions *session.Manager, dispatcher *chat.Dispatcher) *ChatHandler {
	return &ChatHandler{sessions: sessions, chat: dispatcher}
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// HandleSendMessage accepts either a JSON body {"text": ...} or a
// multipart form with a "text" field and any number of "files" parts.
func (h *ChatHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}

	var (
		text  string
		files []session.FileData
	)
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "parse multipart form: "+err.Error())
			return
		}
		text = r.FormValue("text")
		var err error
		files, err = readUploads(r.MultipartForm.File["files"])
		if err != nil {
			writeError(w, http.StatusBadRequest, "read attachment: "+err.Error())
			return
		}
	} else {
		var req sendMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		text = req.Text
	}

	if err := h.chat.HandleUserInput(r.Context(), s, text, files); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

// readUploads reads every attachment concurrently and fails on the first
// unreadable part.
func readUploads(headers []*multipart.FileHeader) ([]session.FileData, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	files := make([]session.FileData, len(headers))
	var g errgroup.Group
	for i, hdr := range headers {
		g.Go(func() error {
			f, err := hdr.Open()
			if err != nil {
				return err
			}
			defer f.Close()
			data, err := io.ReadAll(f)
			if err != nil {
				return err
			}
			mimeType := hdr.Header.Get("Content-Type")
			if mimeType == "" {
				mimeType = "application/octet-stream"
			}
			files[i] = session.FileData{MimeType: mimeType, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (h *ChatHandler) HandleIdentifySituations(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	if err := h.chat.IdentifySituations(r.Context(), s); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

func (h *ChatHandler) HandleReanalyzeFacts(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	if err := h.chat.ReanalyzeKeyFacts(r.Context(), s); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

type researchRequest struct {
	SituationID string `json:"situationId"`
}

func (h *ChatHandler) HandleResearch(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req researchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	situation, found := findSituation(s, req.SituationID)
	if !found {
		writeError(w, http.StatusNotFound, "tax situation not found: "+req.SituationID)
		return
	}
	if err := h.chat.ResearchTopic(r.Context(), s, situation); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

type generateDocumentRequest struct {
	SituationID string `json:"situationId"`
	Type        string `json:"type"`
}

func (h *ChatHandler) HandleGenerateDocument(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req generateDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	var kind session.DocumentKind
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case string(session.DocumentMemo):
		kind = session.DocumentMemo
	case string(session.DocumentLetter):
		kind = session.DocumentLetter
	default:
		writeError(w, http.StatusBadRequest, "type must be memo or letter")
		return
	}
	analysis, researched := s.Analysis(req.SituationID)
	if !researched {
		writeError(w, http.StatusConflict, "situation has not been researched: "+req.SituationID)
		return
	}
	if err := h.chat.GenerateDocument(r.Context(), s, req.SituationID, kind, analysis); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

type evaluateObjectiveRequest struct {
	ObjectiveID string `json:"objectiveId"`
}

func (h *ChatHandler) HandleEvaluateObjective(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req evaluateObjectiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	objective, found := findObjective(s.Objectives(), req.ObjectiveID)
	if !found {
		writeError(w, http.StatusNotFound, "objective not found: "+req.ObjectiveID)
		return
	}
	if err := h.chat.EvaluateObjective(r.Context(), s, objective); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

func findSituation(s *session.Session, id string) (session.TaxSituation, bool) {
	for _, sit := range s.AllSituations() {
		if sit.ID == id {
			return sit, true
		}
	}
	return session.TaxSituation{}, false
}

func findObjective(objectives []session.Objective, id string) (session.Objective, bool) {
	for _, obj := range objectives {
		if obj.ID == id {
			return obj, true
		}
		if found, ok := findObjective(obj.SubObjectives, id); ok {
			return found, true
		}
	}
	return session.Objective{}, false
}
