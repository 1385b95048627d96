package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/b2bhub/quoteflow/internal/bot"
	"github.com/b2bhub/quoteflow/internal/extract"
	"github.com/b2bhub/quoteflow/internal/models"
)

// ChatRequest is the body of POST /chat and POST /chat/debug.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// ChatReply is the user-facing answer. Pipeline internals stay off this
// shape; the debug endpoint exposes them.
type ChatReply struct {
	SessionID string      `json:"sessionId"`
	Message   string      `json:"message"`
	Action    string      `json:"action,omitempty"`
	Emotion   bot.Emotion `json:"emotion"`
}

// DebugChatReply includes the per-stage pipeline trace for the
// developer console.
type DebugChatReply struct {
	SessionID string `json:"sessionId"`
	*bot.Response
}

// CatalogRequest is the body of POST /catalog/products.
type CatalogRequest struct {
	Products []extract.CatalogProduct `json:"products"`
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	resp, sessionID, ok := s.runChat(w, r, "chatHandler")
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(ChatReply{
		SessionID: sessionID,
		Message:   resp.Message,
		Action:    resp.Action,
		Emotion:   resp.Emotion,
	}))
}

func (s *Server) chatDebugHandler(w http.ResponseWriter, r *http.Request) {
	resp, sessionID, ok := s.runChat(w, r, "chatDebugHandler")
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(DebugChatReply{
		SessionID: sessionID,
		Response:  resp,
	}))
}

// runChat validates the request and executes one bot turn. The bool
// reports whether a response was produced; on false the error has
// already been written.
func (s *Server) runChat(w http.ResponseWriter, r *http.Request, handler string) (*bot.Response, string, bool) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server."+handler+": method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil, "", false
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server."+handler+": failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return nil, "", false
	}
	if req.Message == "" {
		slog.Warn("Server."+handler+": missing message field")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: message"))
		return nil, "", false
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
		slog.Debug("Server."+handler+": minted session id", "sessionID", req.SessionID)
	}

	resp, err := s.bot.HandleMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		slog.Error("Server."+handler+": turn failed", "error", err, "sessionID", req.SessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return nil, "", false
	}
	return resp, req.SessionID, true
}

func (s *Server) catalogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.catalogHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req CatalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.catalogHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if len(req.Products) == 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: products"))
		return
	}

	s.extractor.AddProductsFromList(req.Products)
	slog.Info("Server.catalogHandler: catalog extended", "count", len(req.Products))
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Products added to catalog", len(req.Products)))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("QuoteFlow is healthy", nil))
}
