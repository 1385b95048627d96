package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/b2bhub/quoteflow/internal/bot"
	"github.com/b2bhub/quoteflow/internal/dialog"
	"github.com/b2bhub/quoteflow/internal/extract"
	"github.com/b2bhub/quoteflow/internal/models"
	"github.com/b2bhub/quoteflow/internal/nlu"
	"github.com/b2bhub/quoteflow/internal/session"
)

type cannedFallback struct{}

func (cannedFallback) Ready() bool { return false }

func (cannedFallback) GenerateResponse(ctx context.Context, userMessage, convContext, emotion string, history []models.Turn) string {
	return "canned"
}

func (cannedFallback) EnhanceResponse(ctx context.Context, baseResponse, userMessage, emotion string) string {
	return baseResponse
}

func (cannedFallback) GenerateClarification(userMessage string, possibleIntents []string) string {
	return "canned"
}

func newTestServer() *Server {
	extractor := extract.New()
	engine := dialog.NewEngine()
	arbitrator := nlu.NewArbitrator(nil, nlu.NewFuzzyMatcher(nlu.IntentMap), engine)
	b := bot.New(session.NewStore(), extractor, arbitrator, engine, bot.WithFallback(cannedFallback{}))
	return NewServer(b, extractor)
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, rr.Body.String())
	}
	return env
}

func TestChatRejectsInvalidJSON(t *testing.T) {
	s := newTestServer()
	rr := postJSON(t, s.Handler(), "/chat", "{not json")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if env["status"] != "error" {
		t.Errorf("envelope = %v", env)
	}
}

func TestChatRequiresMessage(t *testing.T) {
	s := newTestServer()
	rr := postJSON(t, s.Handler(), "/chat", `{"sessionId":"abc"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if msg, _ := env["message"].(string); !strings.Contains(msg, "message") {
		t.Errorf("error message = %q", msg)
	}
}

func TestChatMintsSessionID(t *testing.T) {
	s := newTestServer()
	rr := postJSON(t, s.Handler(), "/chat", `{"message":"hello"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	result, _ := env["result"].(map[string]any)
	if result == nil {
		t.Fatalf("missing result: %v", env)
	}
	if sid, _ := result["sessionId"].(string); sid == "" {
		t.Error("sessionId should be minted when absent")
	}
	if msg, _ := result["message"].(string); !strings.Contains(msg, "Welcome to B2B Hub") {
		t.Errorf("message = %q", msg)
	}
}

func TestChatKeepsProvidedSessionID(t *testing.T) {
	s := newTestServer()
	rr := postJSON(t, s.Handler(), "/chat", `{"sessionId":"fixed-id","message":"hello"}`)
	env := decodeEnvelope(t, rr)
	result, _ := env["result"].(map[string]any)
	if result == nil || result["sessionId"] != "fixed-id" {
		t.Errorf("result = %v, want sessionId fixed-id", result)
	}
}

func TestChatOmitsDebugFields(t *testing.T) {
	s := newTestServer()
	rr := postJSON(t, s.Handler(), "/chat", `{"message":"hello"}`)
	if strings.Contains(rr.Body.String(), "debug_intent") {
		t.Errorf("debug fields leaked into /chat: %s", rr.Body.String())
	}
}

func TestChatDebugExposesPipelineTrace(t *testing.T) {
	s := newTestServer()
	rr := postJSON(t, s.Handler(), "/chat/debug", `{"sessionId":"dbg","message":"hello"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	result, _ := env["result"].(map[string]any)
	if result == nil {
		t.Fatalf("missing result: %v", env)
	}
	if result["debug_intent"] != "GREETING" {
		t.Errorf("debug_intent = %v, want GREETING", result["debug_intent"])
	}
	if result["debug_method"] != "fuzzy" {
		t.Errorf("debug_method = %v, want fuzzy", result["debug_method"])
	}
}

func TestChatMethodNotAllowed(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
	if allow := rr.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow = %q, want POST", allow)
	}
}

func TestCatalogExtensionTakesEffect(t *testing.T) {
	s := newTestServer()
	rr := postJSON(t, s.Handler(), "/catalog/products",
		`{"products":[{"name":"flux capacitor","aliases":["flux capacitors"]}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rr.Code, rr.Body.String())
	}

	if _, ok := s.extractor.ExtractAll("quote for flux capacitors").Best(models.EntityProduct); !ok {
		t.Error("extractor should recognize the newly added product")
	}
}

func TestCatalogRequiresProducts(t *testing.T) {
	s := newTestServer()
	rr := postJSON(t, s.Handler(), "/catalog/products", `{"products":[]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if env["status"] != "ok" {
		t.Errorf("envelope = %v", env)
	}
}
