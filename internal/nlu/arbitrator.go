package nlu

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/b2bhub/quoteflow/internal/models"
)

// Matching thresholds.
const (
	// SemanticThreshold is the minimum cosine score for a semantic match
	// to be considered at all.
	SemanticThreshold = 0.45
	// SemanticImmediate short-circuits arbitration: above it the semantic
	// verdict wins without consulting the fuzzy layer's score.
	SemanticImmediate = 0.85
	// SemanticPreferred is the score above which semantic beats fuzzy
	// even when fuzzy scored higher.
	SemanticPreferred = 0.60
	// TopicShiftConfidenceFloor: a topic shift with a weaker verdict than
	// this falls back to a plain product inquiry.
	TopicShiftConfidenceFloor = 0.6
)

// cancelTokens short-circuit everything except system signals.
var cancelTokens = map[string]bool{
	"cancel": true, "stop": true, "abort": true,
	"terminate": true, "exit": true, "quit": true,
}

// businessTerms whitelist queries that mention no product but clearly
// belong to the sales domain, keeping them out of the out-of-scope guard.
var businessTerms = []string{
	"account manager", "sales rep", "representative", "support", "human", "agent",
}

var oosPhrases = []*regexp.Regexp{
	regexp.MustCompile(`\bjoke\b`),
	regexp.MustCompile(`\bweather\b`),
	regexp.MustCompile(`\bpresident\b`),
	regexp.MustCompile(`\bpolitics\b`),
	regexp.MustCompile(`\brecipe\b`),
	regexp.MustCompile(`\bcapital of\b`),
	regexp.MustCompile(`\bwho is\b`),
	regexp.MustCompile(`\bgame\b`),
	regexp.MustCompile(`\bmovie\b`),
}

// continuityWords are bare yes/no style answers that belong to an active
// dialog, not to intent matching.
var continuityWords = map[string]bool{
	"yes": true, "no": true, "yep": true, "yeah": true, "nope": true,
	"ok": true, "okay": true, "sure": true, "alright": true, "correct": true,
}

// categoryPatterns mark catalog-browsing questions that similarity
// matching routinely misfires on; they go to the generative fallback.
var categoryPatterns = []string{
	"what types", "what kinds", "which types", "what options",
	"what products", "list of", "show me all", "what do you have",
	"what are the", "categories", "variety", "types of", "kinds of",
	"type of", "kind of", "sort of", "sorts of",
}

var statusKeywords = []string{"status", "track", "tracking", "where is", "update on", "check on"}

// SemanticMatcher is the embedding-similarity collaborator. A matcher
// that is not ready is silently skipped.
type SemanticMatcher interface {
	Ready() bool
	MatchIntent(ctx context.Context, text string, threshold float64) (*models.IntentMatch, error)
}

// FlowClearer aborts a session's active dialog flow on topic shift.
type FlowClearer interface {
	ClearFlow(sessionID string)
}

// Input carries one turn's signals into arbitration.
type Input struct {
	SessionID      string
	OriginalText   string
	ResolvedText   string
	Entities       models.EntityMap
	CurrentProduct string // product accumulated in conversation context
}

// Arbitrator decides the intent for a turn. Guards run first, then the
// semantic/fuzzy hybrid, then deterministic corrections. Collaborator
// failures degrade to the remaining layers.
type Arbitrator struct {
	semantic SemanticMatcher
	fuzzy    *FuzzyMatcher
	flows    FlowClearer
}

// NewArbitrator wires the arbitration chain. semantic and flows may be
// nil; the corresponding stages are skipped.
func NewArbitrator(semantic SemanticMatcher, fuzzy *FuzzyMatcher, flows FlowClearer) *Arbitrator {
	return &Arbitrator{semantic: semantic, fuzzy: fuzzy, flows: flows}
}

// Resolve runs the guard chain and returns the verdict. It never fails:
// an undecidable turn yields an empty intent with method "none".
func (a *Arbitrator) Resolve(ctx context.Context, in Input) models.Resolution {
	lower := strings.ToLower(in.ResolvedText)
	detectedProduct := firstProduct(in.Entities)

	res, guarded := a.runGuards(ctx, in, lower, detectedProduct)
	if !guarded {
		a.applyCorrections(&res, in, lower, detectedProduct)
	}

	// Mid-flow topic shift: discussing one product, the user names
	// another. The active dialog no longer applies. This override runs
	// last and wins over every earlier stage.
	if in.CurrentProduct != "" && detectedProduct != "" &&
		!strings.EqualFold(detectedProduct, in.CurrentProduct) {
		slog.Info("Arbitrator.Resolve: topic shift detected",
			"sessionID", in.SessionID, "from", in.CurrentProduct, "to", detectedProduct)
		if a.flows != nil {
			a.flows.ClearFlow(in.SessionID)
		}
		res.TopicShift = true
		res.Method = "topic_shift_correction"

		if res.Confidence < TopicShiftConfidenceFloor {
			res.Intent = IntentProductInquiry
			res.Confidence = 1.0
		}
		if strings.Contains(lower, "price") || strings.Contains(lower, "pricing") {
			res.Intent = IntentInfoPrice
			res.Confidence = 1.0
		}
		if strings.Contains(lower, "bulk") || strings.Contains(lower, "volume") {
			res.Intent = IntentInfoBulk
			res.Confidence = 1.0
		}
	}

	res.Entities = in.Entities
	return res
}

// runGuards covers the short-circuiting stages: system signal, cancel
// tokens, out-of-scope guard, then the semantic/fuzzy hybrid. The bool
// reports whether a guard fired, in which case corrections are skipped.
func (a *Arbitrator) runGuards(ctx context.Context, in Input, lower, detectedProduct string) (models.Resolution, bool) {
	if strings.TrimSpace(in.OriginalText) == IntentSystemRFQSubmitted {
		return models.Resolution{Intent: IntentSystemRFQSubmitted, Confidence: 1.0, Method: "system_signal"}, true
	}

	for _, word := range strings.Fields(lower) {
		if cancelTokens[word] {
			return models.Resolution{Intent: IntentControlCancel, Confidence: 1.0, Method: "keyword_short_circuit"}, true
		}
	}

	if detectedProduct == "" && !containsAny(lower, businessTerms) {
		for _, re := range oosPhrases {
			if re.MatchString(lower) {
				return models.Resolution{Intent: IntentOutOfScope, Confidence: 1.0, Method: "keyword_short_circuit"}, true
			}
		}
	}

	return a.detectHybrid(ctx, in.ResolvedText), false
}

// detectHybrid consults the semantic matcher and the fuzzy matcher and
// arbitrates between their verdicts.
func (a *Arbitrator) detectHybrid(ctx context.Context, text string) models.Resolution {
	lower := strings.TrimSpace(strings.ToLower(text))

	if continuityWords[lower] {
		return models.Resolution{Method: "continuity_word"}
	}
	if containsAny(lower, categoryPatterns) {
		return models.Resolution{Method: "category_question"}
	}

	var semantic *models.IntentMatch
	if a.semantic != nil && a.semantic.Ready() {
		match, err := a.semantic.MatchIntent(ctx, text, SemanticThreshold)
		if err != nil {
			slog.Warn("Arbitrator.detectHybrid: semantic matcher failed, degrading to fuzzy", "error", err)
		} else if match != nil {
			semantic = match
			if match.Confidence > SemanticImmediate {
				return models.Resolution{Intent: match.Intent, Confidence: match.Confidence, Method: "semantic"}
			}
		}
	}

	fuzzyMatch, rawFuzzy := a.fuzzy.Match(text)

	switch {
	case semantic != nil && fuzzyMatch != nil:
		if semantic.Confidence >= SemanticPreferred || semantic.Confidence >= fuzzyMatch.Confidence {
			return models.Resolution{Intent: semantic.Intent, Confidence: semantic.Confidence, Method: "semantic"}
		}
		return models.Resolution{Intent: fuzzyMatch.Intent, Confidence: fuzzyMatch.Confidence, Method: "fuzzy"}
	case semantic != nil:
		return models.Resolution{Intent: semantic.Intent, Confidence: semantic.Confidence, Method: "semantic"}
	case fuzzyMatch != nil:
		return models.Resolution{Intent: fuzzyMatch.Intent, Confidence: fuzzyMatch.Confidence, Method: "fuzzy"}
	default:
		return models.Resolution{Confidence: rawFuzzy, Method: "none"}
	}
}

// applyCorrections overrides similarity verdicts with deterministic
// rules, applied in a fixed order so later rules win conflicts.
func (a *Arbitrator) applyCorrections(res *models.Resolution, in Input, lower, detectedProduct string) {
	// "how long to deliver" reads as shipping to the fuzzy layer.
	if strings.Contains(lower, "how long") && strings.Contains(lower, "deliver") {
		res.Intent = IntentInfoLeadtime
		res.Confidence = 1.0
		res.Method = "keyword_correction"
	}

	// "what about fiber optic?" is a product inquiry, not a context ask.
	if res.Intent == IntentInfoContext && detectedProduct != "" {
		res.Intent = IntentProductInquiry
		res.Confidence = 1.0
		res.Method = "entity_correction"
	}

	if (res.Intent == IntentNavQuote || res.Intent == IntentNavRFQ) &&
		(strings.Contains(lower, "price") || strings.Contains(lower, "pricing")) {
		res.Intent = IntentInfoPrice
		res.Confidence = 1.0
		res.Method = "keyword_correction"
	}

	if _, ok := in.Entities[models.EntityRFQID]; ok {
		res.Intent = IntentInfoRFQStatus
		res.Confidence = 1.0
		res.Method = "entity_correction"
	}

	if strings.Contains(lower, "rfq") && strings.Contains(lower, "status") {
		res.Intent = IntentInfoRFQStatus
		res.Confidence = 1.0
		res.Method = "keyword_correction"
	}

	if (res.Intent == IntentNavQuote || res.Intent == IntentNavRFQ) && containsAny(lower, statusKeywords) {
		res.Intent = IntentInfoTrack
		res.Confidence = 1.0
		res.Method = "keyword_correction"
	}

	if strings.Contains(lower, "price of") {
		res.Intent = IntentInfoPrice
		res.Confidence = 1.0
		res.Method = "keyword_correction"
	}
}

func firstProduct(entities models.EntityMap) string {
	if list, ok := entities[models.EntityProduct]; ok && len(list) > 0 {
		return list[0].Value
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
