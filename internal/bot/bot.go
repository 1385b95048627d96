// Package bot orchestrates a conversation turn: reference resolution,
// tone detection, entity extraction, intent arbitration, dialog flow
// execution, and response generation.
package bot

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/b2bhub/quoteflow/internal/dialog"
	"github.com/b2bhub/quoteflow/internal/extract"
	"github.com/b2bhub/quoteflow/internal/genai"
	"github.com/b2bhub/quoteflow/internal/models"
	"github.com/b2bhub/quoteflow/internal/nlu"
	"github.com/b2bhub/quoteflow/internal/session"
	"github.com/b2bhub/quoteflow/internal/store"
	"github.com/b2bhub/quoteflow/internal/tone"
	"github.com/b2bhub/quoteflow/internal/util"
)

// Confidence bands for response selection.
const (
	// HighConfidence uses the template or flow directly.
	HighConfidence = 0.75
	// MediumConfidence uses the template but may hedge.
	MediumConfidence = 0.55
)

// systemPrefixes mark frontend-originated messages that skip reference
// resolution.
var systemPrefixes = []string{"SYSTEM_", "TRACER:"}

var rfqStatusTimeKeywords = []string{"when", "date", "time", "how long", "deadline", "by"}

var rfqStatusAngerKeywords = []string{"angry", "upset", "frustrated", "taking too long", "weeks", "late", "slow", "holding up"}

const (
	rfqStatusSLAResponse = "Our SLA is 1 week, however, we have always beaten our SLAs, so you will hear from us soon."
	rfqStatusRepCall     = "Sorry for the inconvenience, there must be something that is holding up our team's response. Our Sales Rep will call you today to provide you with the details."
)

// pricingYesTokens accept the large-order custom quote offer.
var pricingYesTokens = map[string]bool{
	"yes": true, "y": true, "sure": true, "ok": true, "yeah": true,
	"yes please": true, "yes, please": true,
}

// Emotion is the tone block attached to every response.
type Emotion struct {
	Detected   string  `json:"detected"`
	Confidence float64 `json:"confidence"`
	Intensity  string  `json:"intensity"`
	Emoji      string  `json:"emoji"`
}

// Response is the bot's answer to one message.
type Response struct {
	Message string  `json:"message"`
	Action  string  `json:"action,omitempty"`
	Emotion Emotion `json:"emotion"`

	DebugIntent       string            `json:"debug_intent,omitempty"`
	DebugConfidence   *float64          `json:"debug_confidence,omitempty"`
	DebugMethod       string            `json:"debug_method,omitempty"`
	DebugEntities     map[string]string `json:"debug_entities,omitempty"`
	DebugResolvedText string            `json:"debug_resolved_text,omitempty"`
}

// Bot wires the pipeline stages together. Turns within one session are
// serialized; different sessions proceed concurrently.
type Bot struct {
	sessions   *session.Store
	durable    store.SessionStore
	extractor  *extract.Extractor
	arbitrator *nlu.Arbitrator
	dialogs    *dialog.Engine
	fallback   genai.ClientInterface

	lockMu       sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

// Option configures a Bot.
type Option func(*Bot)

// WithDurableStore persists contexts to a database in addition to the
// in-memory store.
func WithDurableStore(s store.SessionStore) Option {
	return func(b *Bot) { b.durable = s }
}

// WithFallback overrides the generative fallback client.
func WithFallback(c genai.ClientInterface) Option {
	return func(b *Bot) { b.fallback = c }
}

// New assembles a bot around the given collaborators. The dialog engine
// doubles as the arbitrator's flow clearer, so pass the same instance
// to both.
func New(sessions *session.Store, extractor *extract.Extractor, arbitrator *nlu.Arbitrator, dialogs *dialog.Engine, opts ...Option) *Bot {
	b := &Bot{
		sessions:     sessions,
		extractor:    extractor,
		arbitrator:   arbitrator,
		dialogs:      dialogs,
		fallback:     genai.NewClient(),
		sessionLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// turnState carries the per-turn signals between pipeline stages.
type turnState struct {
	conv     *session.ConversationContext
	original string
	resolved string
	signal   tone.Signal
}

// HandleMessage runs the full pipeline for one user message.
func (b *Bot) HandleMessage(ctx context.Context, sessionID, message string) (*Response, error) {
	if sessionID == "" {
		sessionID = "default"
	}
	lock := b.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := b.loadContext(sessionID)
	if err != nil {
		return nil, err
	}

	st := &turnState{conv: conv, original: message, resolved: message}
	if !hasSystemPrefix(message) {
		st.resolved = conv.ResolveReference(message)
		if st.resolved != message {
			slog.Info("Bot.HandleMessage: resolved reference",
				"sessionID", sessionID, "from", message, "to", st.resolved)
		}
	}

	st.signal = tone.Detect(st.resolved)
	entities := b.extractor.ExtractAll(st.original)

	res := b.arbitrator.Resolve(ctx, nlu.Input{
		SessionID:      sessionID,
		OriginalText:   st.original,
		ResolvedText:   st.resolved,
		Entities:       entities,
		CurrentProduct: conv.Entity(models.EntityProduct),
	})
	if res.TopicShift {
		if p := firstProductValue(entities); p != "" {
			conv.Entities[models.EntityProduct] = p
		}
	}

	// An active flow owns the turn before any intent handler runs.
	if b.dialogs.HasActiveFlow(sessionID) {
		if result := b.dialogs.ProcessTurn("", entities, st.resolved, sessionID); result != nil && result.Response != "" {
			return b.finishFlowTurn(ctx, st, result, result.FlowName, nil, ""), nil
		}
	}

	var intentEntities map[models.EntityType]models.Entity
	if res.Intent != "" {
		intentEntities = b.extractor.ExtractForIntent(st.resolved, res.Intent)
	}

	if emotional := checkEmotionalExpression(strings.ToLower(st.resolved)); emotional != "" {
		if options, ok := emotionalResponses[emotional]; ok {
			return b.buildResponse(ctx, st, pickResponse(options), "", emotional, nil, nil, ""), nil
		}
	}

	switch res.Intent {
	case nlu.IntentInfoRFQStatus:
		return b.handleRFQStatus(ctx, st, entities), nil
	case nlu.IntentControlCancel:
		b.dialogs.ClearFlow(sessionID)
		conv.ClearDialogState()
		return b.buildResponse(ctx, st, responseMap["CONTROL_CANCEL"].msg, "reset", res.Intent, nil, nil, res.Method), nil
	case nlu.IntentOutOfScope:
		return b.buildResponse(ctx, st, responseMap["OUT_OF_SCOPE"].msg, "", res.Intent, nil, nil, ""), nil
	}

	confidence := round3(res.Confidence)

	switch {
	case res.Intent != "" && res.Confidence >= HighConfidence:
		if _, triggers := b.dialogs.FlowNameForIntent(res.Intent); triggers {
			// Carry the discussed product into the flow when this turn
			// didn't name one.
			if _, ok := entities[models.EntityProduct]; !ok {
				if p := conv.Entity(models.EntityProduct); p != "" {
					entities[models.EntityProduct] = []models.Entity{{
						Type: models.EntityProduct, Value: p, OriginalText: p, Confidence: 1.0,
					}}
				}
			}
			if result := b.dialogs.ProcessTurn(res.Intent, entities, st.resolved, sessionID); result != nil && result.Response != "" {
				return b.finishFlowTurn(ctx, st, result, res.Intent, &confidence, res.Method), nil
			}
		}
		message, action := generateTemplateResponse(res.Intent, st.signal.Emotion, st.signal.Intensity, entityValues(intentEntities), conv.Entities)
		return b.buildResponse(ctx, st, message, action, res.Intent, entityValues(intentEntities), &confidence, res.Method), nil

	case res.Intent != "" && res.Confidence >= MediumConfidence:
		message, action := generateTemplateResponse(res.Intent, st.signal.Emotion, st.signal.Intensity, entityValues(intentEntities), conv.Entities)
		if needsHedge(res.Intent) {
			message = pickResponse(mediumConfidencePrefixes) + message
		}
		return b.buildResponse(ctx, st, message, action, res.Intent, entityValues(intentEntities), &confidence, res.Method), nil

	default:
		current := bestValues(entities)
		if len(current) == 0 {
			current = copyEntityMap(conv.Entities)
		}
		answer := b.fallback.GenerateResponse(ctx, st.original, conv.ContextString(), st.signal.Emotion, nil)
		answer = tone.Enhance(answer, st.signal.Emotion, st.signal.Intensity)
		return b.buildResponse(ctx, st, answer, "", "", current, &confidence, "llm_fallback"), nil
	}
}

// finishFlowTurn post-processes a dialog engine result: reference id
// substitution, completion enhancement, and the pricing flow's custom
// quote handoff.
func (b *Bot) finishFlowTurn(ctx context.Context, st *turnState, result *models.DialogResult, intent string, confidence *float64, method string) *Response {
	message := result.Response
	if strings.Contains(message, "{random_id}") {
		message = util.FillQuoteReference(message)
	} else if result.FlowStatus == models.DialogCompleted {
		message = tone.Enhance(message, st.signal.Emotion, st.signal.Intensity)
	}

	action := result.Action
	if result.FlowName == dialog.FlowPricing && result.FlowStatus == models.DialogCompleted {
		check := strings.ToLower(result.FilledSlots[dialog.SlotLargeOrderCheck])
		if pricingYesTokens[check] {
			action = "rfq"
			message += " Opening the bulk RFQ form now."
		} else {
			message += " Let me know if you need anything else!"
		}
	}

	return b.buildResponse(ctx, st, message, action, intent, result.FilledSlots, confidence, method)
}

// handleRFQStatus tailors the status response to urgency and mood.
func (b *Bot) handleRFQStatus(ctx context.Context, st *turnState, entities models.EntityMap) *Response {
	lower := strings.ToLower(st.resolved)
	message := responseMap["INFO_RFQ_STATUS"].msg

	if containsAny(lower, rfqStatusTimeKeywords) {
		message = rfqStatusSLAResponse
	}
	angry := st.signal.Emotion == tone.EmotionAngry || st.signal.Emotion == tone.EmotionFrustrated
	if angry || st.signal.Intensity == tone.IntensityHigh || containsAny(lower, rfqStatusAngerKeywords) {
		message = rfqStatusRepCall
	}

	return b.buildResponse(ctx, st, message, "", nlu.IntentInfoRFQStatus, bestValues(entities), nil, "")
}

// buildResponse records the turn, persists the context, and assembles
// the response payload. entities may be map[models.EntityType]string or
// map[string]string shaped input via the helpers below.
func (b *Bot) buildResponse(ctx context.Context, st *turnState, message, action, intent string, entities any, confidence *float64, method string) *Response {
	message = util.FillQuoteReference(message)

	turnEntities := normalizeEntities(entities)
	st.conv.AddTurn(st.original, message, intent, turnEntities, st.signal.Emotion)
	b.persist(st.conv)

	signal := st.signal
	if intent == nlu.IntentSystemRFQSubmitted || strings.Contains(message, "#REQ-") {
		signal.Emotion = tone.EmotionHappy
		signal.Intensity = tone.IntensityHigh
	}

	resp := &Response{
		Message: message,
		Action:  action,
		Emotion: Emotion{
			Detected:   signal.Emotion,
			Confidence: signal.Confidence,
			Intensity:  signal.Intensity,
			Emoji:      tone.Emoji(signal.Emotion),
		},
		DebugIntent:       intent,
		DebugConfidence:   confidence,
		DebugMethod:       method,
		DebugResolvedText: st.resolved,
	}
	if len(turnEntities) > 0 {
		resp.DebugEntities = make(map[string]string, len(turnEntities))
		for t, v := range turnEntities {
			resp.DebugEntities[string(t)] = v
		}
	}
	return resp
}

func (b *Bot) loadContext(sessionID string) (*session.ConversationContext, error) {
	conv, err := b.sessions.GetOrCreate(sessionID)
	if err != nil {
		return nil, err
	}
	if b.durable != nil && len(conv.History) == 0 && len(conv.Entities) == 0 {
		stored, err := b.durable.LoadContext(sessionID)
		if err != nil {
			slog.Warn("Bot.loadContext: durable load failed, continuing with fresh context",
				"sessionID", sessionID, "error", err)
		} else if stored != nil {
			conv = stored
			if err := b.sessions.Save(sessionID, conv); err != nil {
				return nil, err
			}
		}
	}
	return conv, nil
}

func (b *Bot) persist(conv *session.ConversationContext) {
	if b.durable == nil {
		return
	}
	if err := b.durable.SaveContext(conv); err != nil {
		slog.Warn("Bot.persist: failed to persist context",
			"sessionID", conv.SessionID, "error", err)
	}
}

func (b *Bot) sessionLock(sessionID string) *sync.Mutex {
	b.lockMu.Lock()
	defer b.lockMu.Unlock()
	lock, ok := b.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		b.sessionLocks[sessionID] = lock
	}
	return lock
}

func needsHedge(intent string) bool {
	switch intent {
	case nlu.IntentProductInquiry, nlu.IntentGreeting, nlu.IntentFarewell:
		return false
	}
	return !strings.HasPrefix(intent, "INFO_") && !strings.HasPrefix(intent, "NAV_")
}

func hasSystemPrefix(message string) bool {
	for _, p := range systemPrefixes {
		if strings.HasPrefix(message, p) {
			return true
		}
	}
	return false
}

func firstProductValue(entities models.EntityMap) string {
	if list, ok := entities[models.EntityProduct]; ok && len(list) > 0 {
		return list[0].Value
	}
	return ""
}

// bestValues flattens an entity map to one value per type, keeping the
// first-produced entity of each.
func bestValues(entities models.EntityMap) map[models.EntityType]string {
	if len(entities) == 0 {
		return nil
	}
	out := make(map[models.EntityType]string, len(entities))
	for t, list := range entities {
		if len(list) > 0 {
			out[t] = list[0].Value
		}
	}
	return out
}

func entityValues(entities map[models.EntityType]models.Entity) map[models.EntityType]string {
	if len(entities) == 0 {
		return nil
	}
	out := make(map[models.EntityType]string, len(entities))
	for t, e := range entities {
		out[t] = e.Value
	}
	return out
}

func copyEntityMap(m map[models.EntityType]string) map[models.EntityType]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[models.EntityType]string, len(m))
	for t, v := range m {
		out[t] = v
	}
	return out
}

// normalizeEntities accepts the two entity shapes the pipeline produces
// and returns the canonical typed map.
func normalizeEntities(entities any) map[models.EntityType]string {
	switch v := entities.(type) {
	case map[models.EntityType]string:
		return v
	case map[string]string:
		if len(v) == 0 {
			return nil
		}
		out := make(map[models.EntityType]string, len(v))
		for k, val := range v {
			out[models.EntityType(k)] = val
		}
		return out
	default:
		return nil
	}
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
