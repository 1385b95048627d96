package dialog

import (
	"github.com/b2bhub/quoteflow/internal/models"
	"github.com/b2bhub/quoteflow/internal/nlu"
)

// Built-in flow names.
const (
	FlowRFQ            = "rfq_flow"
	FlowTracking       = "tracking_flow"
	FlowBulkDiscount   = "bulk_discount_flow"
	FlowSample         = "sample_flow"
	FlowPricing        = "pricing_flow"
	FlowProductInquiry = "product_inquiry_flow"
)

// SlotLargeOrderCheck is the yes/no slot at the end of the pricing
// flow; the orchestrator reads it to decide whether to open an RFQ.
const SlotLargeOrderCheck = "large_order_check"

func defaultFlows() []*Flow {
	return []*Flow{
		{
			Name:           FlowRFQ,
			TriggerIntents: []string{nlu.IntentNavRFQ, "request_quote"},
			Slots: []*Slot{
				{
					Name:         "product",
					Prompt:       "Which product are you interested in getting a quote for?",
					Required:     true,
					EntityType:   models.EntityProduct,
					ErrorMessage: "I couldn't identify that product. Could you specify the product name? (e.g., servo motors, actuators)",
				},
				{
					Name:         "quantity",
					Prompt:       "How many units do you need?",
					Required:     true,
					EntityType:   models.EntityQuantity,
					Validator:    PositiveInteger,
					Normalizer:   DigitsOnly,
					ErrorMessage: "Please enter a valid number of units (e.g., 500).",
				},
				{
					Name:         "company",
					Prompt:       "What's your company name?",
					Required:     true,
					EntityType:   models.EntityCompany,
					Validator:    MinLength(2),
					ErrorMessage: "Please provide your company name (at least 2 characters).",
				},
				{
					Name:         "email",
					Prompt:       "What email should I send the quote to?",
					Required:     true,
					EntityType:   models.EntityEmail,
					Validator:    EmailFormat,
					Normalizer:   LowerTrim,
					ErrorMessage: "Please enter a valid email address (e.g., orders@company.com).",
				},
				{
					Name:       "timeline",
					Prompt:     "When do you need this delivered by? (optional - type 'skip' to skip)",
					Required:   false,
					EntityType: models.EntityDate,
				},
			},
			CompletionMessage: "✅ Perfect! I've submitted your RFQ:\n\n" +
				"  • Product: {product}\n" +
				"  • Quantity: {quantity} units\n" +
				"  • Company: {company}\n" +
				"  • Email: {email}\n\n" +
				"Our sales team will send a detailed quote to {email} within 24 hours. " +
				"Is there anything else I can help with?",
			ConfirmationPrompt: "Just to confirm, you'd like a quote for:\n" +
				"  • {quantity} x {product}\n" +
				"  • For: {company}\n" +
				"  • Send to: {email}\n\n" +
				"Is this correct? (yes/no)",
		},
		{
			Name:           FlowTracking,
			TriggerIntents: []string{nlu.IntentInfoTrack, "track_order", "order_status"},
			Slots: []*Slot{
				{
					Name:         "order_number",
					Prompt:       "What's your order or PO number?",
					Required:     true,
					EntityType:   models.EntityOrderNumber,
					Validator:    OrderNumberFormat,
					Normalizer:   UpperNoSpace,
					ErrorMessage: "Order numbers are usually 4+ characters with some digits. Please check and try again (e.g., PO-12345).",
				},
			},
			CompletionMessage: "📦 Looking up order **{order_number}**...\n\n" +
				"Your order is currently **In Transit** and expected to arrive in 3-5 business days.\n" +
				"For real-time tracking, I can send updates to your email. Would you like that?",
		},
		{
			Name:           FlowBulkDiscount,
			TriggerIntents: []string{nlu.IntentInfoBulk, "volume_discount", "bulk_pricing"},
			Slots: []*Slot{
				{
					Name:       "product",
					Prompt:     "Which product are you considering for bulk order?",
					Required:   true,
					EntityType: models.EntityProduct,
				},
				{
					Name:         "quantity",
					Prompt:       "Approximately how many units are you thinking?",
					Required:     true,
					EntityType:   models.EntityQuantity,
					Validator:    MinInteger(100),
					ErrorMessage: "For bulk discounts, minimum quantity is 100 units. How many do you need?",
				},
			},
			CompletionMessage: "💰 Great news! For **{quantity} {product}**, here are your discount tiers:\n\n" +
				"  • 100-499 units: 5% off\n" +
				"  • 500-999 units: 10% off\n" +
				"  • 1000+ units: 15% off + free shipping\n\n" +
				"Would you like me to prepare a formal quote with exact pricing?",
		},
		{
			Name:           FlowSample,
			TriggerIntents: []string{nlu.IntentInfoSample, "request_sample"},
			Slots: []*Slot{
				{
					Name:       "product",
					Prompt:     "Which product would you like to sample?",
					Required:   true,
					EntityType: models.EntityProduct,
				},
				{
					Name:       "company",
					Prompt:     "What company are you with?",
					Required:   true,
					EntityType: models.EntityCompany,
				},
				{
					Name:       "email",
					Prompt:     "Where should we send the sample confirmation?",
					Required:   true,
					EntityType: models.EntityEmail,
					Validator:  EmailFormat,
				},
			},
			CompletionMessage: "📬 Sample request submitted!\n\n" +
				"  • Product: {product}\n" +
				"  • Company: {company}\n\n" +
				"We'll send sample details and pricing to {email}. " +
				"Note: Sample cost is credited toward bulk orders over 500 units.",
		},
		{
			Name:           FlowPricing,
			TriggerIntents: []string{nlu.IntentInfoPrice, "price_check"},
			Slots: []*Slot{
				{
					Name:         "product",
					Prompt:       "Which product would you like pricing for?",
					Required:     true,
					EntityType:   models.EntityProduct,
					ErrorMessage: "I didn't catch the product name. We have servo motors, specialized cables, and actuators.",
				},
				{
					// Prompt is generated from the price list at ask time.
					Name:       SlotLargeOrderCheck,
					Prompt:     "Would you like to proceed with a custom quote request?",
					Required:   true,
					EntityType: "confirmation",
				},
			},
			CompletionMessage: "Checking custom pricing options...",
		},
		{
			Name:           FlowProductInquiry,
			TriggerIntents: []string{nlu.IntentInfoMOQ},
			Slots: []*Slot{
				{
					Name:       "product",
					Prompt:     "Which product would you like information about?",
					Required:   true,
					EntityType: models.EntityProduct,
				},
			},
			// Completion response is produced by the orchestrator.
		},
	}
}

// pricePoint is one unit-price entry; matched by substring against the
// collected product, in order, so "fiber" wins over "cable".
type pricePoint struct {
	keyword string
	price   string
}

var unitPrices = []pricePoint{
	{"servo", "$450.00"},
	{"motor", "$450.00"},
	{"fiber", "$120.00"},
	{"cable", "$12.00/m"},
	{"actuator", "$85.00"},
	{"sensor", "$45.00"},
	{"valve", "$60.00"},
}

func lookupUnitPrice(product string) string {
	for _, p := range unitPrices {
		if product != "" && containsFold(product, p.keyword) {
			return p.price
		}
	}
	return "$TBD"
}
