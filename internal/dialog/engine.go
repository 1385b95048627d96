package dialog

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/b2bhub/quoteflow/internal/models"
)

var cancelPhrases = []string{"cancel", "stop", "never mind", "nevermind", "forget it", "quit", "exit"}

var skipTokens = map[string]bool{"skip": true, "no": true, "none": true, "n/a": true}

var confirmYesTokens = map[string]bool{
	"yes": true, "y": true, "correct": true, "confirm": true,
	"that's right": true, "yep": true, "yeah": true,
}

var confirmNoTokens = map[string]bool{
	"no": true, "n": true, "wrong": true, "incorrect": true,
	"change": true, "edit": true,
}

const (
	cancelledMessage       = "No problem, I've cancelled that. How else can I help you?"
	retryExhaustedMessage  = "Too many invalid attempts. Let's start over when you're ready."
	changeRequestMessage   = "What would you like to change? You can say things like 'change quantity to 1000' or 'different email'."
	confirmRepromptMessage = "Please confirm with 'yes' or 'no'. "
)

// Engine manages flow definitions and per-session flow instances. It is
// safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	flows  map[string]*Flow
	order  []string
	active map[string]*Flow
}

// NewEngine returns an engine with the built-in B2B flows registered.
func NewEngine() *Engine {
	e := &Engine{
		flows:  make(map[string]*Flow),
		active: make(map[string]*Flow),
	}
	for _, f := range defaultFlows() {
		e.RegisterFlow(f)
	}
	return e
}

// RegisterFlow adds or replaces a flow definition.
func (e *Engine) RegisterFlow(f *Flow) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.flows[f.Name]; !exists {
		e.order = append(e.order, f.Name)
	}
	e.flows[f.Name] = f
}

// FlowNameForIntent returns the flow a given intent triggers.
func (e *Engine) FlowNameForIntent(intent string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f := e.flowForIntent(intent)
	if f == nil {
		return "", false
	}
	return f.Name, true
}

func (e *Engine) flowForIntent(intent string) *Flow {
	for _, name := range e.order {
		for _, trigger := range e.flows[name].TriggerIntents {
			if trigger == intent {
				return e.flows[name]
			}
		}
	}
	return nil
}

// HasActiveFlow reports whether the session is mid-flow.
func (e *Engine) HasActiveFlow(sessionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[sessionID]
	return ok
}

// ActiveFlowName returns the session's active flow, if any.
func (e *Engine) ActiveFlowName(sessionID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.active[sessionID]
	if !ok {
		return "", false
	}
	return f.Name, true
}

// ClearFlow aborts the session's active flow.
func (e *Engine) ClearFlow(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.active[sessionID]; ok {
		slog.Info("Engine.ClearFlow: aborting active flow", "sessionID", sessionID, "flow", f.Name)
		delete(e.active, sessionID)
	}
}

// ProcessTurn advances dialog state for one turn. It returns nil when
// no flow is active and the intent triggers none, leaving the turn to
// the intent handlers.
func (e *Engine) ProcessTurn(intent string, entities models.EntityMap, userText, sessionID string) *models.DialogResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result *models.DialogResult
	if f, ok := e.active[sessionID]; ok {
		result = e.continueFlow(f, entities, userText, sessionID)
	} else if intent != "" {
		if proto := e.flowForIntent(intent); proto != nil {
			result = e.startFlow(proto, entities, sessionID)
		}
	}
	if result != nil && result.FlowStatus.Terminal() {
		delete(e.active, sessionID)
	}
	return result
}

func (e *Engine) startFlow(proto *Flow, entities models.EntityMap, sessionID string) *models.DialogResult {
	f := proto.clone()
	f.reset()
	f.Status = models.DialogInProgress
	f.StartedAt = time.Now()
	e.active[sessionID] = f
	slog.Info("Engine.startFlow: flow started", "sessionID", sessionID, "flow", f.Name)

	// Pre-fill from entities already extracted this turn.
	for _, s := range f.Slots {
		if s.EntityType == "" {
			continue
		}
		if value, ok := entityValue(entities, s.EntityType); ok {
			s.prefill(value)
		}
	}

	return e.nextPrompt(f, sessionID)
}

func (e *Engine) continueFlow(f *Flow, entities models.EntityMap, userText, sessionID string) *models.DialogResult {
	lower := strings.ToLower(userText)
	for _, phrase := range cancelPhrases {
		if strings.Contains(lower, phrase) {
			return e.cancelFlow(f, sessionID, cancelledMessage)
		}
	}

	current := f.nextEmptySlot()
	if current != nil && !current.Required && skipTokens[strings.TrimSpace(lower)] {
		current.value = "N/A"
		current.filled = true
		return e.nextPrompt(f, sessionID)
	}

	if f.Status == models.DialogAwaitingConfirmation {
		return e.handleConfirmation(f, userText, sessionID)
	}

	if current != nil {
		value := ""
		if current.EntityType != "" {
			value, _ = entityValue(entities, current.EntityType)
		}
		if value == "" {
			value = strings.TrimSpace(userText)
		}
		if !f.fillSlot(current.Name, value) {
			return e.errorResponse(f, current, sessionID)
		}
	}
	return e.nextPrompt(f, sessionID)
}

func (e *Engine) nextPrompt(f *Flow, sessionID string) *models.DialogResult {
	if next := f.nextRequiredEmptySlot(); next != nil {
		prompt := next.Prompt
		switch {
		case f.Name == FlowPricing && next.Name == SlotLargeOrderCheck:
			prompt = pricingPrompt(f.filledSlots()["product"])
		case next.attempts > 0 && next.RepromptMessage != "":
			prompt = next.RepromptMessage
		}
		return &models.DialogResult{
			Response:    prompt,
			FlowStatus:  models.DialogInProgress,
			FilledSlots: f.filledSlots(),
			FlowName:    f.Name,
			CurrentSlot: next.Name,
		}
	}

	if optional := f.nextEmptySlot(); optional != nil {
		return &models.DialogResult{
			Response:    optional.Prompt,
			FlowStatus:  models.DialogInProgress,
			FilledSlots: f.filledSlots(),
			FlowName:    f.Name,
			CurrentSlot: optional.Name,
		}
	}

	if f.ConfirmationPrompt != "" && f.Status != models.DialogAwaitingConfirmation {
		f.Status = models.DialogAwaitingConfirmation
		filled := f.filledSlots()
		return &models.DialogResult{
			Response:    formatMessage(f.ConfirmationPrompt, filled),
			FlowStatus:  models.DialogAwaitingConfirmation,
			FilledSlots: filled,
			FlowName:    f.Name,
		}
	}

	return e.completeFlow(f, sessionID)
}

func (e *Engine) handleConfirmation(f *Flow, userText, sessionID string) *models.DialogResult {
	lower := strings.TrimSpace(strings.ToLower(userText))
	switch {
	case confirmYesTokens[lower]:
		return e.completeFlow(f, sessionID)
	case confirmNoTokens[lower]:
		f.Status = models.DialogInProgress
		return &models.DialogResult{
			Response:    changeRequestMessage,
			FlowStatus:  models.DialogInProgress,
			FilledSlots: f.filledSlots(),
			FlowName:    f.Name,
		}
	default:
		return &models.DialogResult{
			Response:    confirmRepromptMessage + formatMessage(f.ConfirmationPrompt, f.filledSlots()),
			FlowStatus:  models.DialogAwaitingConfirmation,
			FilledSlots: f.filledSlots(),
			FlowName:    f.Name,
		}
	}
}

func (e *Engine) errorResponse(f *Flow, s *Slot, sessionID string) *models.DialogResult {
	if s.attempts >= s.maxAttempts() {
		slog.Info("Engine.errorResponse: retries exhausted",
			"sessionID", sessionID, "flow", f.Name, "slot", s.Name)
		return e.cancelFlow(f, sessionID, retryExhaustedMessage)
	}
	return &models.DialogResult{
		Response:    s.errorMessage(),
		FlowStatus:  models.DialogInProgress,
		FilledSlots: f.filledSlots(),
		FlowName:    f.Name,
		CurrentSlot: s.Name,
		Error:       true,
	}
}

func (e *Engine) completeFlow(f *Flow, sessionID string) *models.DialogResult {
	filled := f.filledSlots()
	response := ""
	if f.CompletionMessage != "" {
		response = formatMessage(f.CompletionMessage, filled)
	}
	if f.OnComplete != nil {
		if err := f.OnComplete(filled); err != nil {
			slog.Warn("Engine.completeFlow: completion callback failed",
				"sessionID", sessionID, "flow", f.Name, "error", err)
		}
	}
	f.Status = models.DialogCompleted
	slog.Info("Engine.completeFlow: flow completed", "sessionID", sessionID, "flow", f.Name)

	return &models.DialogResult{
		Response:    response,
		FlowStatus:  models.DialogCompleted,
		FilledSlots: filled,
		FlowName:    f.Name,
	}
}

func (e *Engine) cancelFlow(f *Flow, sessionID, message string) *models.DialogResult {
	f.Status = models.DialogCancelled
	slog.Info("Engine.cancelFlow: flow cancelled", "sessionID", sessionID, "flow", f.Name)

	return &models.DialogResult{
		Response:    message,
		FlowStatus:  models.DialogCancelled,
		FilledSlots: map[string]string{},
		FlowName:    f.Name,
	}
}

func pricingPrompt(product string) string {
	price := lookupUnitPrice(product)
	return fmt.Sprintf("The standard price for **%s** is **%s** (per unit).\n"+
		"However, we offer custom quotes for large orders. \n\n"+
		"Would you like to proceed with a custom quote request?",
		titleCase(strings.ToLower(product)), price)
}

func entityValue(entities models.EntityMap, t models.EntityType) (string, bool) {
	list, ok := entities[t]
	if !ok || len(list) == 0 {
		return "", false
	}
	return list[0].Value, true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
