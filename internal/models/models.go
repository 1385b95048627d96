// Package models defines the shared data structures for QuoteFlow:
// extracted entities, conversation turns, intent resolutions, and the
// result objects produced by the dialog engine.
package models

import "time"

// EntityType identifies the kind of value an extracted entity carries.
type EntityType string

// Entity types recognized by the extraction engine.
const (
	EntityQuantity    EntityType = "quantity"
	EntityOrderNumber EntityType = "order_number"
	EntityRFQID       EntityType = "rfq_id"
	EntityPrice       EntityType = "price"
	EntityDate        EntityType = "date"
	EntityEmail       EntityType = "email"
	EntityPhone       EntityType = "phone"
	EntityCompany     EntityType = "company"
	EntityPercentage  EntityType = "percentage"
	EntityProduct     EntityType = "product"
)

// Entity is a single typed value recognized in user text. Entities are
// immutable once produced by the extractor.
type Entity struct {
	Type         EntityType `json:"type"`
	Value        string     `json:"value"`         // normalized value
	OriginalText string     `json:"original_text"` // exact matched substring
	Start        int        `json:"start"`
	End          int        `json:"end"`
	Confidence   float64    `json:"confidence"`
}

// SpanLen is the length in characters of the original match.
func (e Entity) SpanLen() int { return e.End - e.Start }

// EntityMap groups extracted entities by type.
type EntityMap map[EntityType][]Entity

// Best returns the highest-confidence entity of the given type, if any.
func (m EntityMap) Best(t EntityType) (Entity, bool) {
	list, ok := m[t]
	if !ok || len(list) == 0 {
		return Entity{}, false
	}
	best := list[0]
	for _, e := range list[1:] {
		if e.Confidence > best.Confidence {
			best = e
		}
	}
	return best, true
}

// Values flattens an EntityMap to one normalized value per type, taking
// the highest-confidence entity of each type.
func (m EntityMap) Values() map[EntityType]string {
	out := make(map[EntityType]string, len(m))
	for t := range m {
		if e, ok := m.Best(t); ok {
			out[t] = e.Value
		}
	}
	return out
}

// Turn records one exchange in a conversation.
type Turn struct {
	Timestamp time.Time             `json:"timestamp"`
	User      string                `json:"user"`
	Bot       string                `json:"bot"`
	Intent    string                `json:"intent,omitempty"`
	Entities  map[EntityType]string `json:"entities,omitempty"`
	Emotion   string                `json:"emotion,omitempty"`
}

// Resolution is the arbitrator's verdict for a turn: which intent the
// user expressed, how confident the pipeline is, and which stage decided.
type Resolution struct {
	Intent     string    `json:"intent,omitempty"`
	Confidence float64   `json:"confidence"`
	Method     string    `json:"method"`
	Entities   EntityMap `json:"entities,omitempty"`
	TopicShift bool      `json:"topic_shift,omitempty"`
}

// IntentMatch is a candidate intent produced by a matching collaborator
// (semantic or fuzzy).
type IntentMatch struct {
	Intent     string
	Confidence float64
}

// DialogStatus enumerates the states of a dialog flow.
type DialogStatus string

const (
	DialogNotStarted           DialogStatus = "not_started"
	DialogInProgress           DialogStatus = "in_progress"
	DialogAwaitingConfirmation DialogStatus = "awaiting_confirmation"
	DialogCompleted            DialogStatus = "completed"
	DialogCancelled            DialogStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible without
// an explicit reset.
func (s DialogStatus) Terminal() bool {
	return s == DialogCompleted || s == DialogCancelled
}

// APIStatus is the status field of an API response envelope.
type APIStatus string

const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse is the envelope for every HTTP response.
type APIResponse struct {
	Status  APIStatus `json:"status"`
	Message string    `json:"message,omitempty"`
	Result  any       `json:"result,omitempty"`
}

// Success wraps result data in a successful response envelope.
func Success(result any) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// SuccessWithMessage wraps result data and a human-readable message in a
// successful response envelope.
func SuccessWithMessage(message string, result any) APIResponse {
	return APIResponse{Status: APIStatusOK, Message: message, Result: result}
}

// Error creates an error response envelope with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message}
}

// DialogResult is the structured outcome of one dialog-engine turn.
// Every path through the engine yields one of these; errors never
// propagate out of the engine uncaught.
type DialogResult struct {
	Response    string            `json:"response,omitempty"`
	FlowStatus  DialogStatus      `json:"flow_status"`
	FilledSlots map[string]string `json:"filled_slots"`
	FlowName    string            `json:"flow_name,omitempty"`
	Action      string            `json:"action,omitempty"`
	CurrentSlot string            `json:"current_slot,omitempty"`
	Error       bool              `json:"error,omitempty"`
}
