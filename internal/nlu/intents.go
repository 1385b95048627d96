// Package nlu resolves user intents through a layered arbitration chain:
// system signals and keyword guards first, then a hybrid of semantic
// similarity and fuzzy keyword matching, then deterministic corrections
// and topic-shift overrides.
package nlu

// Intent names used across the service.
const (
	IntentSystemRFQSubmitted = "SYSTEM_RFQ_SUBMITTED"
	IntentControlCancel      = "CONTROL_CANCEL"
	IntentControlRestart     = "CONTROL_RESTART"
	IntentOutOfScope         = "OUT_OF_SCOPE"
	IntentProductInquiry     = "PRODUCT_INQUIRY"
	IntentGreeting           = "GREETING"
	IntentHelp               = "HELP"
	IntentFarewell           = "FAREWELL"
	IntentNavRFQ             = "NAV_RFQ"
	IntentNavQuote           = "NAV_QUOTE"
	IntentInfoPrice          = "INFO_PRICE"
	IntentInfoBulk           = "INFO_BULK"
	IntentInfoMOQ            = "INFO_MOQ"
	IntentInfoTrack          = "INFO_TRACK"
	IntentInfoLeadtime       = "INFO_LEADTIME"
	IntentInfoSample         = "INFO_SAMPLE"
	IntentInfoContext        = "INFO_CONTEXT"
	IntentInfoRFQStatus      = "INFO_RFQ_STATUS"
)

// IntentMap is the keyword corpus behind both the fuzzy matcher and the
// semantic matcher's embedding index.
var IntentMap = map[string][]string{
	// Navigation
	"NAV_MARKETPLACE": {"marketplace", "market", "browse", "products", "items", "catalog"},
	"NAV_SUPPLIER":    {"supplier", "suppliers", "vendor", "manufacturer", "factory"},
	"NAV_RFQ":         {"request for quote", "bulk quote", "estimate", "get quote", "request quote", "custom pricing"},
	"NAV_QUOTE":       {"quote", "pricing", "cost estimation"},
	"NAV_LOGIN":       {"login", "sign in", "log in", "credentials"},
	"NAV_REGISTER":    {"register", "signup", "sign up", "join", "create account"},

	// Business logic
	"INFO_MOQ":        {"moq", "minimum order", "min qty", "smallest order", "minimum quantity"},
	"INFO_PRICE":      {"price of product", "item cost", "rates", "pricing", "how much is this", "unit price", "cost per unit"},
	"INFO_BULK":       {"bulk", "volume discount", "large order", "wholesale", "bulk discount", "buy units", "purchase units", "buy 500", "need 1000", "need 500 units"},
	"INFO_SHIPPING":   {"shipping", "freight", "transport", "logistics", "ship to", "ship to India", "shipping to usa", "deliver to", "shipping method", "shipping cost", "cost of shipping", "freight cost", "delivery price"},
	"INFO_TRACK":      {"track", "tracking", "status", "shipment", "where is my order", "status of rfq", "rfq status", "order status"},
	"INFO_INVOICE":    {"invoice", "bill", "receipt", "commercial invoice"},
	"INFO_PAYMENT":    {"payment", "pay", "bank details", "wire transfer"},
	"INFO_CREDIT":     {"credit", "payment terms", "net 30", "credit line"},
	"INFO_CATALOG":    {"catalog", "brochure", "pdf", "product list"},
	"INFO_RETURN":     {"return", "refund", "rma", "exchange", "damaged"},
	"INFO_LEADTIME":   {"lead time", "how long", "turnaround", "wait time", "delivery time", "when will it arrive", "estimated delivery", "how long to deliver", "delivery date", "when can i get it"},
	"INFO_SAMPLE":     {"sample", "prototype", "test unit"},
	"INFO_STOCK":      {"stock", "inventory", "available", "quantity on hand"},
	"INFO_WARRANTY":   {"warranty", "guarantee", "repair"},
	"INFO_CUSTOMS":    {"customs", "customs duty", "import duty", "import tax", "tariffs"},
	"INFO_CONTEXT":    {"which product", "what was i asking", "what are we talking about", "current product"},
	"INFO_RFQ_STATUS": {"rfq status", "quote status", "status of rfq", "where is my quote"},

	// Greetings and help
	"GREETING": {"hello", "hi", "hey", "greetings", "good morning", "good afternoon"},
	"HELP":     {"help", "support", "assist", "stuck", "what can you do"},

	// Emotional expressions, kept for direct matching
	"EMOTION_THANKS":     {"thank you", "thanks", "appreciate", "grateful"},
	"EMOTION_HAPPY":      {"happy", "love it", "amazing", "wonderful", "fantastic"},
	"EMOTION_FRUSTRATED": {"frustrated", "annoyed", "irritated", "fed up"},
	"EMOTION_ANGRY":      {"angry", "furious", "outraged", "unacceptable", "terrible"},

	// Farewell and control
	"FAREWELL":        {"bye", "goodbye", "see you", "later", "take care"},
	"CONTROL_RESTART": {"restart", "start over", "reset", "clear session", "new session"},

	// Product inquiry ("do you have X", "looking for X")
	"PRODUCT_INQUIRY": {"do you have", "do you sell", "looking for", "need", "want to buy", "interested in", "available", "in stock", "tell me about", "details on", "info on", "heavy duty"},
}

// StructuralIntents never enter similarity matching; they are decided by
// guards or signals only.
var StructuralIntents = map[string]bool{
	IntentControlCancel:      true,
	IntentOutOfScope:         true,
	IntentSystemRFQSubmitted: true,
}
