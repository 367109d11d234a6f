package rpc

import (
	"errors"
	"net/http"

	"taxinference/internal/export"
	"taxinference/internal/session"
)

// ExportHandler writes markdown artifacts for the current session state.
type ExportHandler struct {
	sessions *session.Manager
	svc      *export.Service
	store    export.ArtifactStore
}

func NewExportHandler(sessions *session.Manager, svc *export.Service, store export.ArtifactStore) *ExportHandler {
	return &ExportHandler{sessions: sessions, svc: svc, store: store}
}

func (h *ExportHandler) HandleExportKeyFacts(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	facts := s.LatestKeyFacts()
	if len(facts) == 0 {
		writeError(w, http.StatusConflict, "no key facts to export")
		return
	}
	if err := h.svc.ExportKeyFacts(r.Context(), s.ID(), facts); err != nil {
		writeError(w, http.StatusBadGateway, "export key facts: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": export.KeyFactsFilename})
}

func (h *ExportHandler) HandleExportSituations(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	situations := s.AllSituations()
	if len(situations) == 0 {
		writeError(w, http.StatusConflict, "no tax situations to export")
		return
	}
	if err := h.svc.ExportSituations(r.Context(), s.ID(), situations); err != nil {
		writeError(w, http.StatusBadGateway, "export situations: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": export.SituationsFilename})
}

type exportAnalysisRequest struct {
	SituationID string `json:"situationId"`
}

func (h *ExportHandler) HandleExportAnalysis(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req exportAnalysisRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	analysis, researched := s.Analysis(req.SituationID)
	if !researched {
		writeError(w, http.StatusNotFound, "no analysis for situation: "+req.SituationID)
		return
	}
	if err := h.svc.ExportAnalysis(r.Context(), s.ID(), analysis); err != nil {
		writeError(w, http.StatusBadGateway, "export analysis: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": export.AnalysisFilename(analysis.SituationTitle)})
}

func (h *ExportHandler) HandleListExports(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	paths, err := h.store.List(r.Context(), s.ID())
	if err != nil {
		writeError(w, http.StatusBadGateway, "list exports: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"paths": paths})
}

func (h *ExportHandler) HandleGetExport(w http.ResponseWriter, r *http.Request) {
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}
	path := r.PathValue("path")
	data, err := h.store.Get(r.Context(), s.ID(), path)
	if errors.Is(err, export.ErrNotFound) {
		writeError(w, http.StatusNotFound, "export not found: "+path)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, "get export: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
