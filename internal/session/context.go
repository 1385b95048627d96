// Package session maintains per-conversation state: bounded turn history,
// accumulated entities with topic-shift pruning, pronoun reference
// resolution, and a capacity-bounded in-memory store.
package session

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/b2bhub/quoteflow/internal/models"
)

// Defaults for a conversation context.
const (
	DefaultMaxTurns      = 10
	DefaultContextWindow = 5
	DefaultExpiry        = 30 * time.Minute
)

// topicShiftClears lists the entity types invalidated when the product
// under discussion changes. Email and company describe the user, not the
// product, and survive the shift.
var topicShiftClears = []models.EntityType{
	models.EntityQuantity,
	models.EntityPrice,
	"specs",
	models.EntityDate,
	models.EntityOrderNumber,
}

// referenceRule maps a referring phrase to the entity types that can
// stand in for it, in lookup order.
type referenceRule struct {
	phrase  string
	re      *regexp.Regexp
	targets []models.EntityType
}

func newReferenceRule(phrase string, targets ...models.EntityType) referenceRule {
	return referenceRule{
		phrase:  phrase,
		re:      regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`),
		targets: targets,
	}
}

// referenceRules is evaluated in order; each phrase resolves at most once
// per message.
var referenceRules = []referenceRule{
	newReferenceRule("it", models.EntityProduct, "item"),
	newReferenceRule("that", models.EntityProduct, "item"),
	newReferenceRule("this", models.EntityProduct, "item"),
	newReferenceRule("the product", models.EntityProduct),
	newReferenceRule("the item", models.EntityProduct, "item"),
	newReferenceRule("them", models.EntityProduct),
	newReferenceRule("those", models.EntityProduct),
	newReferenceRule("the order", models.EntityOrderNumber),
	newReferenceRule("my order", models.EntityOrderNumber),
}

// ConversationContext is the per-session conversational state. It is not
// safe for concurrent use; the Store serializes access per session.
type ConversationContext struct {
	SessionID     string                       `json:"session_id"`
	History       []models.Turn                `json:"history"`
	UserProfile   map[string]string            `json:"user_profile"`
	Entities      map[models.EntityType]string `json:"entities"`
	DialogState   map[string]any               `json:"dialog_state"`
	CreatedAt     time.Time                    `json:"created_at"`
	LastActivity  time.Time                    `json:"last_activity"`
	MaxTurns      int                          `json:"-"`
	ContextWindow int                          `json:"-"`
	Expiry        time.Duration                `json:"-"`
}

// NewContext returns an empty context with default limits.
func NewContext(sessionID string) *ConversationContext {
	now := time.Now()
	return &ConversationContext{
		SessionID:     sessionID,
		UserProfile:   make(map[string]string),
		Entities:      make(map[models.EntityType]string),
		DialogState:   make(map[string]any),
		CreatedAt:     now,
		LastActivity:  now,
		MaxTurns:      DefaultMaxTurns,
		ContextWindow: DefaultContextWindow,
		Expiry:        DefaultExpiry,
	}
}

// checkExpiry clears volatile state after the inactivity window. The
// session id and user profile survive a reset.
func (c *ConversationContext) checkExpiry() {
	if c.Expiry <= 0 {
		return
	}
	elapsed := time.Since(c.LastActivity)
	if elapsed <= c.Expiry {
		return
	}
	c.History = nil
	c.Entities = make(map[models.EntityType]string)
	c.DialogState = make(map[string]any)
	slog.Info("ConversationContext.checkExpiry: context expired",
		"sessionID", c.SessionID, "inactive", elapsed.Round(time.Second))
}

// AddTurn appends an exchange to the history, detects topic shifts, and
// folds the turn's entities into the accumulated set.
func (c *ConversationContext) AddTurn(userMessage, botResponse, intent string, entities map[models.EntityType]string, emotion string) {
	c.checkExpiry()

	if newProduct, ok := entities[models.EntityProduct]; ok {
		oldProduct := c.Entities[models.EntityProduct]
		if oldProduct != "" && !strings.EqualFold(newProduct, oldProduct) {
			for _, t := range topicShiftClears {
				delete(c.Entities, t)
			}
			slog.Debug("ConversationContext.AddTurn: topic shift",
				"sessionID", c.SessionID, "from", oldProduct, "to", newProduct)
		}
	}

	c.History = append(c.History, models.Turn{
		Timestamp: time.Now(),
		User:      userMessage,
		Bot:       botResponse,
		Intent:    intent,
		Entities:  entities,
		Emotion:   emotion,
	})
	if c.MaxTurns > 0 && len(c.History) > c.MaxTurns {
		c.History = c.History[len(c.History)-c.MaxTurns:]
	}
	c.LastActivity = time.Now()

	for t, v := range entities {
		c.Entities[t] = v
	}
}

// ContextWindowTurns returns the most recent turns up to the window size.
func (c *ConversationContext) ContextWindowTurns() []models.Turn {
	c.checkExpiry()
	if c.ContextWindow <= 0 || len(c.History) <= c.ContextWindow {
		return c.History
	}
	return c.History[len(c.History)-c.ContextWindow:]
}

// ContextString renders the recent window as plain text for LLM prompts.
func (c *ConversationContext) ContextString() string {
	turns := c.ContextWindowTurns()
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Recent conversation:")
	for _, turn := range turns {
		b.WriteString("\nUser: ")
		b.WriteString(turn.User)
		b.WriteString("\nBot: ")
		b.WriteString(turn.Bot)
	}
	return b.String()
}

// LastIntent returns the intent recorded on the most recent turn.
func (c *ConversationContext) LastIntent() string {
	c.checkExpiry()
	if len(c.History) == 0 {
		return ""
	}
	return c.History[len(c.History)-1].Intent
}

// LastEntities returns the entities recorded on the most recent turn.
func (c *ConversationContext) LastEntities() map[models.EntityType]string {
	c.checkExpiry()
	if len(c.History) == 0 {
		return nil
	}
	return c.History[len(c.History)-1].Entities
}

// Entity returns an accumulated entity value, or "" when absent.
func (c *ConversationContext) Entity(t models.EntityType) string {
	c.checkExpiry()
	return c.Entities[t]
}

// ResolveReference rewrites pronouns and referring phrases using the
// accumulated entities, so "what's the MOQ for it" becomes "what's the
// MOQ for servo motor". A phrase is left alone when its entity value
// already appears in the text.
func (c *ConversationContext) ResolveReference(text string) string {
	c.checkExpiry()

	resolved := text
	lower := strings.ToLower(text)

	for _, rule := range referenceRules {
		if !rule.re.MatchString(lower) {
			continue
		}
		for _, t := range rule.targets {
			value, ok := c.Entities[t]
			if !ok || value == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(value)) {
				break
			}
			resolved = rule.re.ReplaceAllLiteralString(resolved, value)
			lower = strings.ToLower(resolved)
			break
		}
	}
	return resolved
}

// SetDialogState stores a scratch value for the active dialog.
func (c *ConversationContext) SetDialogState(key string, value any) {
	c.DialogState[key] = value
}

// GetDialogState reads a scratch value, or nil when unset.
func (c *ConversationContext) GetDialogState(key string) any {
	return c.DialogState[key]
}

// ClearDialogState drops all dialog scratch, typically after a flow ends.
func (c *ConversationContext) ClearDialogState() {
	c.DialogState = make(map[string]any)
}
