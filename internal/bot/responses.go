package bot

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/b2bhub/quoteflow/internal/models"
	"github.com/b2bhub/quoteflow/internal/nlu"
	"github.com/b2bhub/quoteflow/internal/tone"
	"github.com/b2bhub/quoteflow/internal/util"
)

// responseTemplate pairs a canned message with the frontend action it
// triggers.
type responseTemplate struct {
	msg    string
	action string
}

var responseMap = map[string]responseTemplate{
	// Navigation
	"NAV_MARKETPLACE": {"Opening the Wholesale Marketplace...", "marketplace"},
	"NAV_SUPPLIER":    {"Here is our list of verified manufacturers.", "suppliers"},
	"NAV_RFQ":         {"I'll help you submit a Request for Quote.", ""},
	"NAV_QUOTE":       {"Please fill out the RFQ form for custom pricing.", "rfq"},
	"NAV_LOGIN":       {"Redirecting to Partner Login...", "login"},
	"NAV_REGISTER":    {"New partners can register via the Login page.", "login"},

	// Business logic
	"INFO_MOQ":      {"Standard MOQ is 50 units. Custom runs require 500 units.", ""},
	"INFO_PRICE":    {"Login to see Tier-1 wholesale pricing.", "login"},
	"INFO_BULK":     {"Orders >1000 units get a 15% volume discount.", ""},
	"INFO_SHIPPING": {"We ship FOB and EXW via Maersk or DHL.", ""},
	"INFO_TRACK":    {"Enter your PO Number to track your order.", ""},
	"INFO_INVOICE":  {"Invoices are emailed automatically upon dispatch.", ""},
	"INFO_PAYMENT":  {"We accept Net-30, LC, and TT.", ""},
	"INFO_CREDIT":   {"Apply for a credit line in your dashboard.", ""},
	"INFO_CATALOG":  {"The Q4 Catalog is available in the 'Resources' tab.", ""},
	"INFO_RETURN":   {"RMA requests are valid for 14 days post-delivery.", ""},
	"INFO_LEADTIME": {"Current manufacturing lead time is 14 days.", ""},
	"INFO_SAMPLE":   {"Paid samples are available. Contact sales.", ""},
	"INFO_STOCK":    {"Live inventory is updated every 4 hours.", ""},
	"INFO_WARRANTY": {"Industrial parts carry a 1-year manufacturer warranty.", ""},
	"INFO_CUSTOMS":  {"Buyer is responsible for import duties.", ""},
	"INFO_CONTEXT":  {"We were discussing {product}.", ""},

	// Frontend system signal
	"SYSTEM_RFQ_SUBMITTED": {"Thank you! We've received your RFQ. Reference #REQ-{random_id}. I'm opening the Marketplace for you to browse more products.", "marketplace"},

	// Greetings and help
	"GREETING": {"Welcome to B2B Hub! How can I assist you today?", ""},
	"HELP":     {"I can help with product info, pricing, shipping, orders, and more. What do you need?", ""},

	"FAREWELL": {"Goodbye! It was great helping you today. Come back anytime!", ""},

	"PRODUCT_INQUIRY": {"Yes, we carry that product! Would you like to know about pricing, MOQ, or availability? You can also browse our Marketplace.", ""},

	// Process control
	"CONTROL_CANCEL":  {"I've cancelled the current request. How else can I help you?", "reset"},
	"CONTROL_RESTART": {"I've reset the conversation. How can I help you?", "reset"},
	"OUT_OF_SCOPE":    {"I apologize, but I can only assist with industrial parts, orders, and shipping. I cannot help with general topics.", ""},

	"INFO_RFQ_STATUS": {"Our Sales team is urgently working on the RFQ, you will hear from them shortly.", ""},
}

var emotionalResponses = map[string][]string{
	"EMOTION_THANKS": {
		"You're very welcome! 😊 Is there anything else I can help with?",
		"Happy to help! Let me know if you need anything else.",
		"My pleasure! What else can I do for you today?",
	},
	"EMOTION_HAPPY": {
		"That's wonderful to hear! 🎉 How else can I assist you?",
		"I'm thrilled you're having a great experience! What's next?",
		"Fantastic! Let me know what else you need.",
	},
	"EMOTION_FRUSTRATED": {
		"I completely understand your frustration, and I'm sorry you're experiencing this. 😔 Let me help make things right. What's the main issue?",
		"I hear you, and your frustration is valid. Let's work through this together. Can you tell me more?",
	},
	"EMOTION_ANGRY": {
		"I sincerely apologize for this experience. 😞 Let me help resolve this immediately. What happened?",
		"I'm truly sorry. This isn't the experience we want for you. How can I make this right?",
	},
}

// expressionRule maps explicit emotional phrasing to a direct response
// intent. Evaluated in order.
type expressionRule struct {
	intent   string
	keywords []string
}

var expressionRules = []expressionRule{
	{"EMOTION_THANKS", []string{"thank you", "thanks", "appreciate it", "grateful"}},
	{"EMOTION_HAPPY", []string{"love it", "amazing", "wonderful", "fantastic", "excellent"}},
	{"EMOTION_FRUSTRATED", []string{"so frustrated", "fed up", "sick of", "tired of this"}},
	{"EMOTION_ANGRY", []string{"furious", "outraged", "unacceptable", "this is terrible"}},
}

var farewellKeywords = []string{"bye", "goodbye", "see you", "later"}

// checkEmotionalExpression returns a direct-response emotion intent for
// explicit emotional phrasing. Farewells never count; "see you later,
// thanks" should close the conversation, not thank back.
func checkEmotionalExpression(lower string) string {
	if containsAny(lower, farewellKeywords) {
		return ""
	}
	for _, rule := range expressionRules {
		if containsAny(lower, rule.keywords) {
			return rule.intent
		}
	}
	return ""
}

// outOfStockTerms are product families the marketplace does not carry.
var outOfStockTerms = []string{
	"optics", "lens", "lenses", "mirror", "mirrors", "prism", "prisms",
	"optical components", "agricultural", "farming", "food",
}

// checkProductAvailability reports whether a product is carried, with a
// customer-facing message when it is not.
func checkProductAvailability(product string) (bool, string) {
	lower := strings.ToLower(product)
	for _, term := range outOfStockTerms {
		if strings.Contains(lower, term) {
			return false, "We currently do not stock " + product + " in our inventory."
		}
	}
	return true, "Available"
}

var mediumConfidencePrefixes = []string{
	"I think you're asking about this: ",
	"If I understand correctly: ",
	"It sounds like you want to know: ",
}

const unknownIntentMessage = "I'm not sure how to help with that. Try asking about products, pricing, or shipping."

// generateTemplateResponse renders the canned response for an intent,
// specialized with the turn's entities and the conversation context,
// and wrapped for the user's emotional state.
func generateTemplateResponse(intent, emotion, intensity string, entities, contextEntities map[models.EntityType]string) (string, string) {
	data, ok := responseMap[intent]
	if !ok {
		return unknownIntentMessage, ""
	}
	message := data.msg

	product, hasProduct := entities[models.EntityProduct]
	useContext := intent != nlu.IntentProductInquiry
	if useContext && !hasProduct {
		if v, ok := contextEntities[models.EntityProduct]; ok && v != "" {
			product, hasProduct = v, true
		}
	}

	switch {
	case hasProduct && product != "":
		switch intent {
		case nlu.IntentInfoMOQ:
			message = "For " + product + ", standard MOQ is 50 units. Custom runs require 500 units."
		case nlu.IntentInfoLeadtime:
			message = "Lead time for " + product + " is typically 14-21 days."
		case "INFO_STOCK":
			if available, availMsg := checkProductAvailability(product); available {
				message = "Yes, " + product + " is currently in stock and ready to ship!"
			} else {
				message = availMsg
			}
		case nlu.IntentProductInquiry:
			if available, availMsg := checkProductAvailability(product); available {
				message = "Yes, we have " + product + "! Would you like to know about pricing, MOQ, or availability? You can also browse our Marketplace to see all options."
			} else {
				message = availMsg
			}
		case nlu.IntentInfoContext:
			message = "We were discussing " + product + ". Would you like to know about its pricing, MOQ, or availability?"
		case nlu.IntentInfoPrice:
			if available, availMsg := checkProductAvailability(product); available {
				message = "Login to see Tier-1 wholesale pricing for " + product + "."
			} else {
				message = availMsg
			}
		}
	case intent == nlu.IntentProductInquiry:
		message = "I'm not sure if we carry that specific product, but you can browse our Marketplace to see all available industrial products. Would you like me to help you search, or would you prefer to submit an RFQ for a custom inquiry?"
	case intent == nlu.IntentInfoContext:
		message = "We haven't started discussing a specific product yet. You can browse our Marketplace to see what we offer!"
	case intent == nlu.IntentSystemRFQSubmitted:
		message = util.FillQuoteReference(message)
	}

	if qty, ok := entities[models.EntityQuantity]; ok && intent == nlu.IntentInfoBulk {
		if n, err := strconv.Atoi(qty); err == nil {
			switch {
			case n >= 1000:
				message = "Great news! For " + qty + " units, you qualify for our 15% bulk discount plus free shipping!"
			case n >= 500:
				message = "For " + qty + " units, you qualify for a 10% volume discount."
			case n >= 100:
				message = "For " + qty + " units, you qualify for a 5% volume discount."
			}
		}
	}

	if intent != nlu.IntentSystemRFQSubmitted {
		message = tone.Enhance(message, emotion, intensity)
	}
	return message, data.action
}

func pickResponse(options []string) string {
	return options[rand.IntN(len(options))]
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
