package server

import (
	"net/http"

	"taxinference/internal/gateway/handler/rpc"
	"taxinference/internal/gateway/middleware"
)

func NewMux(
	sessionHandler *rpc.SessionHandler,
	chatHandler *rpc.ChatHandler,
	exportHandler *rpc.ExportHandler,
	eventsHandler *rpc.EventsHandler,
) http.Handler {
	mux := http.NewServeMux()

	// Session lifecycle and state
	mux.HandleFunc("POST /api/sessions", sessionHandler.HandleCreate)
	mux.HandleFunc("GET /api/sessions/{id}", sessionHandler.HandleView)
	mux.HandleFunc("DELETE /api/sessions/{id}", sessionHandler.HandleDelete)
	mux.HandleFunc("POST /api/sessions/{id}/objectives/toggle", sessionHandler.HandleToggleObjective)
	mux.HandleFunc("POST /api/sessions/{id}/errors/dismiss", sessionHandler.HandleDismissError)
	mux.HandleFunc("GET /api/sessions/{id}/project", sessionHandler.HandleSaveSnapshot)
	mux.HandleFunc("POST /api/sessions/{id}/project", sessionHandler.HandleLoadSnapshot)

	// Workflow commands
	mux.HandleFunc("POST /api/sessions/{id}/messages", chatHandler.HandleSendMessage)
	mux.HandleFunc("POST /api/sessions/{id}/identify-situations", chatHandler.HandleIdentifySituations)
	mux.HandleFunc("POST /api/sessions/{id}/reanalyze-facts", chatHandler.HandleReanalyzeFacts)
	mux.HandleFunc("POST /api/sessions/{id}/research", chatHandler.HandleResearch)
	mux.HandleFunc("POST /api/sessions/{id}/documents", chatHandler.HandleGenerateDocument)
	mux.HandleFunc("POST /api/sessions/{id}/objectives/evaluate", chatHandler.HandleEvaluateObjective)

	// Markdown exports
	mux.HandleFunc("POST /api/sessions/{id}/exports/key-facts", exportHandler.HandleExportKeyFacts)
	mux.HandleFunc("POST /api/sessions/{id}/exports/situations", exportHandler.HandleExportSituations)
	mux.HandleFunc("POST /api/sessions/{id}/exports/analysis", exportHandler.HandleExportAnalysis)
	mux.HandleFunc("GET /api/sessions/{id}/exports", exportHandler.HandleListExports)
	mux.HandleFunc("GET /api/sessions/{id}/exports/{path...}", exportHandler.HandleGetExport)

	// Event stream
	mux.HandleFunc("GET /ws/events", eventsHandler.HandleEventsWS)

	// Middleware
	return middleware.CORS(mux)
}
