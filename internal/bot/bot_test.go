package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/b2bhub/quoteflow/internal/dialog"
	"github.com/b2bhub/quoteflow/internal/extract"
	"github.com/b2bhub/quoteflow/internal/models"
	"github.com/b2bhub/quoteflow/internal/nlu"
	"github.com/b2bhub/quoteflow/internal/session"
	"github.com/b2bhub/quoteflow/internal/store"
)

type stubFallback struct {
	lastMessage string
	lastContext string
	answer      string
}

func (s *stubFallback) Ready() bool { return false }

func (s *stubFallback) GenerateResponse(ctx context.Context, userMessage, convContext, emotion string, history []models.Turn) string {
	s.lastMessage = userMessage
	s.lastContext = convContext
	return s.answer
}

func (s *stubFallback) EnhanceResponse(ctx context.Context, baseResponse, userMessage, emotion string) string {
	return baseResponse
}

func (s *stubFallback) GenerateClarification(userMessage string, possibleIntents []string) string {
	return "clarify"
}

func newTestBot(opts ...Option) (*Bot, *stubFallback) {
	fallback := &stubFallback{answer: "stub answer"}
	engine := dialog.NewEngine()
	arbitrator := nlu.NewArbitrator(nil, nlu.NewFuzzyMatcher(nlu.IntentMap), engine)
	opts = append([]Option{WithFallback(fallback)}, opts...)
	b := New(session.NewStore(), extract.New(), arbitrator, engine, opts...)
	return b, fallback
}

func handle(t *testing.T, b *Bot, sessionID, message string) *Response {
	t.Helper()
	resp, err := b.HandleMessage(context.Background(), sessionID, message)
	if err != nil {
		t.Fatalf("HandleMessage(%q) failed: %v", message, err)
	}
	return resp
}

func TestGreetingUsesTemplate(t *testing.T) {
	b, _ := newTestBot()
	resp := handle(t, b, "s1", "hello")

	if !strings.Contains(resp.Message, "Welcome to B2B Hub") {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.DebugIntent != "GREETING" {
		t.Errorf("intent = %q, want GREETING", resp.DebugIntent)
	}
	if resp.DebugMethod != "fuzzy" {
		t.Errorf("method = %q, want fuzzy", resp.DebugMethod)
	}
	if resp.DebugConfidence == nil || *resp.DebugConfidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", resp.DebugConfidence)
	}
}

func TestSystemRFQSubmittedSignal(t *testing.T) {
	b, _ := newTestBot()
	resp := handle(t, b, "s-sys", "SYSTEM_RFQ_SUBMITTED")

	if !strings.Contains(resp.Message, "#REQ-") {
		t.Errorf("message = %q, want RFQ reference", resp.Message)
	}
	if strings.Contains(resp.Message, "{random_id}") {
		t.Errorf("placeholder not filled: %q", resp.Message)
	}
	if resp.Action != "marketplace" {
		t.Errorf("action = %q, want marketplace", resp.Action)
	}
	if resp.Emotion.Detected != "happy" || resp.Emotion.Intensity != "high" {
		t.Errorf("emotion = %+v, want happy/high after RFQ submission", resp.Emotion)
	}
}

func TestRFQFlowEndToEnd(t *testing.T) {
	b, _ := newTestBot()
	sid := "s-rfq"

	resp := handle(t, b, sid, "estimate")
	if resp.Message != "Which product are you interested in getting a quote for?" {
		t.Fatalf("flow start = %q", resp.Message)
	}

	resp = handle(t, b, sid, "servo motors")
	if resp.Message != "How many units do you need?" {
		t.Fatalf("after product = %q", resp.Message)
	}

	resp = handle(t, b, sid, "500 units")
	if resp.Message != "What's your company name?" {
		t.Fatalf("after quantity = %q", resp.Message)
	}

	resp = handle(t, b, sid, "Acme Industrial")
	if resp.Message != "What email should I send the quote to?" {
		t.Fatalf("after company = %q", resp.Message)
	}

	resp = handle(t, b, sid, "orders@acme.com")
	if !strings.Contains(resp.Message, "optional") {
		t.Fatalf("after email = %q, want timeline prompt", resp.Message)
	}

	resp = handle(t, b, sid, "skip")
	if !strings.Contains(resp.Message, "Is this correct?") {
		t.Fatalf("after skip = %q, want confirmation", resp.Message)
	}

	resp = handle(t, b, sid, "yes")
	if !strings.Contains(resp.Message, "I've submitted your RFQ") {
		t.Fatalf("completion = %q", resp.Message)
	}
	if resp.DebugEntities["quantity"] != "500" {
		t.Errorf("debug entities = %v", resp.DebugEntities)
	}
	if b.dialogs.HasActiveFlow(sid) {
		t.Error("flow should be inactive after completion")
	}
}

func TestPricingFlowWithReferenceResolution(t *testing.T) {
	b, _ := newTestBot()
	sid := "s-price"

	resp := handle(t, b, sid, "do you sell servo motors?")
	if !strings.Contains(resp.Message, "servo motor") {
		t.Fatalf("inquiry response = %q", resp.Message)
	}

	resp = handle(t, b, sid, "what's the price of it?")
	if !strings.Contains(resp.DebugResolvedText, "servo motor") {
		t.Fatalf("resolved text = %q, want pronoun resolved", resp.DebugResolvedText)
	}
	if !strings.Contains(resp.Message, "$450.00") {
		t.Fatalf("pricing prompt = %q", resp.Message)
	}
	if resp.DebugIntent != "INFO_PRICE" {
		t.Errorf("intent = %q, want INFO_PRICE", resp.DebugIntent)
	}

	resp = handle(t, b, sid, "yes")
	if resp.Action != "rfq" {
		t.Errorf("action = %q, want rfq", resp.Action)
	}
	if !strings.Contains(resp.Message, "Opening the bulk RFQ form now.") {
		t.Errorf("completion = %q", resp.Message)
	}
}

func TestOutOfScopeGuard(t *testing.T) {
	b, _ := newTestBot()
	resp := handle(t, b, "s-oos", "tell me a joke")

	if resp.DebugIntent != "OUT_OF_SCOPE" {
		t.Errorf("intent = %q, want OUT_OF_SCOPE", resp.DebugIntent)
	}
	if !strings.Contains(resp.Message, "industrial parts") {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestCancelInsideAndOutsideFlow(t *testing.T) {
	b, _ := newTestBot()
	sid := "s-cancel"

	handle(t, b, sid, "estimate")
	resp := handle(t, b, sid, "cancel")
	if resp.Message != "No problem, I've cancelled that. How else can I help you?" {
		t.Fatalf("in-flow cancel = %q", resp.Message)
	}
	if b.dialogs.HasActiveFlow(sid) {
		t.Fatal("flow should be cleared")
	}

	resp = handle(t, b, sid, "cancel")
	if resp.DebugIntent != "CONTROL_CANCEL" {
		t.Errorf("intent = %q, want CONTROL_CANCEL", resp.DebugIntent)
	}
	if resp.Action != "reset" {
		t.Errorf("action = %q, want reset", resp.Action)
	}
}

func TestEmotionalExpressionShortCircuits(t *testing.T) {
	b, _ := newTestBot()
	resp := handle(t, b, "s-thanks", "thanks so much!")

	if resp.DebugIntent != "EMOTION_THANKS" {
		t.Fatalf("intent = %q, want EMOTION_THANKS", resp.DebugIntent)
	}
	found := false
	for _, option := range emotionalResponses["EMOTION_THANKS"] {
		if resp.Message == option {
			found = true
		}
	}
	if !found {
		t.Errorf("message = %q, want one of the thanks responses", resp.Message)
	}
}

func TestFarewellBeatsEmotionalExpression(t *testing.T) {
	b, _ := newTestBot()
	resp := handle(t, b, "s-bye", "thanks, goodbye!")

	if resp.DebugIntent == "EMOTION_THANKS" {
		t.Errorf("farewell message should not route to the thanks handler")
	}
}

func TestTopicShiftMidFlow(t *testing.T) {
	b, _ := newTestBot()
	sid := "s-shift"

	handle(t, b, sid, "estimate")
	handle(t, b, sid, "servo motors")
	if !b.dialogs.HasActiveFlow(sid) {
		t.Fatal("flow should be active")
	}

	resp := handle(t, b, sid, "actually what about sensors?")
	if b.dialogs.HasActiveFlow(sid) {
		t.Error("topic shift should abort the active flow")
	}
	if resp.DebugMethod != "topic_shift_correction" {
		t.Errorf("method = %q, want topic_shift_correction", resp.DebugMethod)
	}
	if !strings.Contains(resp.Message, "sensor") {
		t.Errorf("message = %q, want the new product acknowledged", resp.Message)
	}
}

func TestRFQStatusAngryCustomer(t *testing.T) {
	b, _ := newTestBot()
	resp := handle(t, b, "s-status", "My RFQ REQ-12345 is taking too long, I'm angry!")

	if resp.DebugIntent != "INFO_RFQ_STATUS" {
		t.Fatalf("intent = %q, want INFO_RFQ_STATUS", resp.DebugIntent)
	}
	if resp.Message != rfqStatusRepCall {
		t.Errorf("message = %q, want the sales rep escalation", resp.Message)
	}
}

func TestRFQStatusTimeQuestion(t *testing.T) {
	b, _ := newTestBot()
	resp := handle(t, b, "s-status-2", "When will I hear back on rfq status?")

	if resp.Message != rfqStatusSLAResponse {
		t.Errorf("message = %q, want the SLA response", resp.Message)
	}
}

func TestLowConfidenceFallsBackToLLM(t *testing.T) {
	b, fallback := newTestBot()
	resp := handle(t, b, "s-llm", "florb the wibble")

	if resp.DebugMethod != "llm_fallback" {
		t.Fatalf("method = %q, want llm_fallback", resp.DebugMethod)
	}
	if !strings.Contains(resp.Message, "stub answer") {
		t.Errorf("message = %q", resp.Message)
	}
	if fallback.lastMessage != "florb the wibble" {
		t.Errorf("fallback received %q", fallback.lastMessage)
	}
}

func TestDurableStoreSurvivesRestart(t *testing.T) {
	sqlStore, err := store.NewSQLiteStore(store.WithSQLiteDSN(":memory:"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { sqlStore.Close() })

	b1, _ := newTestBot(WithDurableStore(sqlStore))
	handle(t, b1, "s-durable", "do you sell servo motors?")

	// A second bot with a cold in-memory store simulates a restart.
	b2, _ := newTestBot(WithDurableStore(sqlStore))
	resp := handle(t, b2, "s-durable", "what's the MOQ for it?")
	if !strings.Contains(resp.DebugResolvedText, "servo motor") {
		t.Errorf("resolved text = %q, want context restored from the database", resp.DebugResolvedText)
	}
}

func TestTemplateSpecializations(t *testing.T) {
	msg, _ := generateTemplateResponse("INFO_BULK", "neutral", "low",
		map[models.EntityType]string{models.EntityQuantity: "2000"}, nil)
	if !strings.Contains(msg, "15% bulk discount plus free shipping") {
		t.Errorf("bulk 2000 = %q", msg)
	}

	msg, _ = generateTemplateResponse("INFO_BULK", "neutral", "low",
		map[models.EntityType]string{models.EntityQuantity: "600"}, nil)
	if !strings.Contains(msg, "10% volume discount") {
		t.Errorf("bulk 600 = %q", msg)
	}

	msg, _ = generateTemplateResponse("INFO_MOQ", "neutral", "low",
		map[models.EntityType]string{models.EntityProduct: "actuator"}, nil)
	if !strings.Contains(msg, "For actuator, standard MOQ is 50 units") {
		t.Errorf("moq = %q", msg)
	}

	msg, _ = generateTemplateResponse("PRODUCT_INQUIRY", "neutral", "low",
		map[models.EntityType]string{models.EntityProduct: "optics"}, nil)
	if !strings.Contains(msg, "do not stock optics") {
		t.Errorf("availability = %q", msg)
	}

	msg, _ = generateTemplateResponse("INFO_CONTEXT", "neutral", "low", nil, nil)
	if !strings.Contains(msg, "haven't started discussing") {
		t.Errorf("context without product = %q", msg)
	}

	msg, _ = generateTemplateResponse("INFO_CONTEXT", "neutral", "low", nil,
		map[models.EntityType]string{models.EntityProduct: "valve"})
	if !strings.Contains(msg, "We were discussing valve") {
		t.Errorf("context with product = %q", msg)
	}
}
