// Package genai provides the generative fallback used when the
// rule-based pipeline cannot resolve a turn with enough confidence. A
// client without an API key degrades to canned keyword responses.
package genai

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/b2bhub/quoteflow/internal/models"
)

// ClientInterface is the surface the orchestrator depends on.
type ClientInterface interface {
	Ready() bool
	GenerateResponse(ctx context.Context, userMessage, convContext, emotion string, history []models.Turn) string
	EnhanceResponse(ctx context.Context, baseResponse, userMessage, emotion string) string
	GenerateClarification(userMessage string, possibleIntents []string) string
}

const (
	defaultModel        = openai.ChatModelGPT4oMini
	responseMaxTokens   = 250
	enhanceMaxTokens    = 150
	responseTemperature = 0.7
	historyWindow       = 6
)

// businessContext is the domain knowledge injected into every prompt.
const businessContext = `You are a helpful B2B support assistant for an industrial parts marketplace.

Key Business Information:
- MOQ (Minimum Order Quantity): Typically 50-500 units depending on product
- Lead time: 14-21 days for most standard items
- Shipping: FOB and EXW options via Maersk, DHL, FedEx
- Bulk discounts: 5% (100-499 units), 10% (500-999), 15% (1000+)
- Payment: Net-30, Wire Transfer, Letter of Credit
- Warranty: 1 year manufacturer warranty on industrial parts
- Returns: RMA within 14 days of delivery

Product Categories:
- Motors & Drives (servo motors, stepper motors)
- Cables & Connectors (fiber optic, industrial ethernet)
- Actuators & Automation
- Sensors & Controllers
- Power Supplies & Relays

Navigation Options:
- Marketplace: Browse all products
- Suppliers: View verified manufacturers
- RFQ: Submit request for quote
- Login: Access partner account`

var emotionGuidance = map[string]string{
	"happy":      "The user seems positive and engaged. Match their enthusiasm while being helpful.",
	"positive":   "The user has a positive tone. Be friendly and efficient.",
	"frustrated": "The user seems frustrated. Be extra patient, empathetic, and solution-focused. Acknowledge their frustration.",
	"angry":      "The user seems upset. Apologize sincerely, stay calm, and focus on resolving their issue quickly.",
	"sad":        "The user seems disappointed. Be supportive, understanding, and offer constructive help.",
	"anxious":    "The user seems worried or rushed. Provide clear, reassuring guidance. Be concise and action-oriented.",
	"neutral":    "Respond in a friendly, professional manner.",
	"negative":   "The user may be having a difficult experience. Be empathetic and helpful.",
}

// Client wraps the OpenAI chat API. The zero key case is not an error;
// the client stays usable through its canned fallbacks.
type Client struct {
	client openai.Client
	model  string
	apiKey string
	ready  bool
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithAPIKey overrides the OPENAI_API_KEY environment variable.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// NewClient initializes the generative client from the OPENAI_API_KEY
// environment variable. A missing key yields a degraded client.
func NewClient(opts ...Option) *Client {
	c := &Client{model: defaultModel}
	for _, opt := range opts {
		opt(c)
	}

	apiKey := c.apiKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		slog.Warn("Client.NewClient: OPENAI_API_KEY not set, generative fallback degraded to canned responses")
		return c
	}
	c.client = openai.NewClient(option.WithAPIKey(apiKey))
	c.ready = true
	slog.Info("Client.NewClient: generative fallback ready", "model", c.model)
	return c
}

// Ready reports whether the API client is configured.
func (c *Client) Ready() bool { return c.ready }

// GenerateResponse produces a free-form answer grounded in the business
// context, conversation history, and the user's emotional state.
func (c *Client) GenerateResponse(ctx context.Context, userMessage, convContext, emotion string, history []models.Turn) string {
	if !c.ready {
		return simpleFallback(userMessage, emotion)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(c.systemPrompt(emotion)),
	}
	if len(history) > 0 {
		start := len(history) - historyWindow/2
		if start < 0 {
			start = 0
		}
		for _, turn := range history[start:] {
			messages = append(messages, openai.UserMessage(turn.User))
			if turn.Bot != "" {
				messages = append(messages, openai.AssistantMessage(turn.Bot))
			}
		}
		messages = append(messages, openai.UserMessage(userMessage))
	} else if convContext != "" {
		messages = append(messages, openai.UserMessage(
			"Previous context:\n"+convContext+"\n\nCurrent message: "+userMessage))
	} else {
		messages = append(messages, openai.UserMessage(userMessage))
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   openai.Int(responseMaxTokens),
		Temperature: openai.Float(responseTemperature),
	})
	if err != nil {
		slog.Warn("Client.GenerateResponse: chat completion failed, using canned fallback", "error", err)
		return simpleFallback(userMessage, emotion)
	}
	if len(resp.Choices) == 0 {
		return simpleFallback(userMessage, emotion)
	}
	return resp.Choices[0].Message.Content
}

// EnhanceResponse rephrases a template answer to fit the user's tone.
// Failures fall back to the original text.
func (c *Client) EnhanceResponse(ctx context.Context, baseResponse, userMessage, emotion string) string {
	if !c.ready {
		return baseResponse
	}

	prompt := `The user said: "` + userMessage + `"
The user's emotional state appears to be: ` + emotion + `

Here's the factual response to give: "` + baseResponse + `"

Please rephrase this response to be more natural, conversational, and appropriate
for the user's emotional state. Keep the same factual information but make it
sound more human. Keep it concise (1-2 sentences).

Respond with just the rephrased message, nothing else.`

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a helpful assistant that rephrases responses to be more natural."),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(enhanceMaxTokens),
		Temperature: openai.Float(responseTemperature),
	})
	if err != nil || len(resp.Choices) == 0 {
		return baseResponse
	}
	return resp.Choices[0].Message.Content
}

var clarificationTopics = map[string]string{
	"INFO_MOQ":        "minimum order quantities",
	"INFO_PRICE":      "pricing and costs",
	"INFO_SHIPPING":   "shipping and delivery",
	"INFO_LEADTIME":   "production and delivery times",
	"INFO_BULK":       "bulk order discounts",
	"INFO_TRACK":      "order tracking",
	"NAV_MARKETPLACE": "browsing products",
	"NAV_SUPPLIER":    "viewing suppliers",
	"NAV_RFQ":         "requesting a quote",
	"HELP":            "general assistance",
}

// GenerateClarification asks the user to disambiguate between candidate
// intents.
func (c *Client) GenerateClarification(userMessage string, possibleIntents []string) string {
	var options []string
	for _, intent := range possibleIntents {
		if len(options) == 3 {
			break
		}
		if topic, ok := clarificationTopics[intent]; ok {
			options = append(options, topic)
		}
	}

	switch len(options) {
	case 0:
		return "Could you tell me more about what you need? I want to make sure I help you correctly."
	case 1:
		return "Are you asking about " + options[0] + "?"
	default:
		joined := strings.Join(options[:len(options)-1], ", ") + ", or " + options[len(options)-1]
		return "I want to make sure I understand. Are you asking about " + joined + "?"
	}
}

func (c *Client) systemPrompt(emotion string) string {
	tone, ok := emotionGuidance[emotion]
	if !ok {
		tone = emotionGuidance["neutral"]
	}
	return businessContext + `

Response Guidelines:
- Be concise: 2-3 sentences max unless more detail is needed
- Be helpful: Guide users to solutions or next steps
- Be honest: If you don't know specific details, offer to connect them with sales
- ` + tone + `

Important:
- Never make up specific prices, inventory numbers, or delivery dates
- Suggest relevant actions: "You can browse the Marketplace" or "Would you like to submit an RFQ?"
- If the request is unclear, ask a clarifying question
- If you can't help, offer alternatives (contact sales, browse FAQ, etc.)`
}

// simpleFallback covers the no-API path with keyword and emotion aware
// canned answers.
func simpleFallback(userMessage, emotion string) string {
	lower := strings.ToLower(userMessage)

	switch {
	case containsAny(lower, []string{"track", "ship", "delivery", "arrive", "where"}):
		return "I can help with shipping or tracking. " +
			"Please provide your PO number (e.g., PO-12345) to check status."
	case containsAny(lower, []string{"price", "cost", "quote", "how much", "expensive"}):
		return "For pricing, you can ask about specific products or request a formal quote. " +
			"For example: 'price of servo motors' or 'start RFQ'."
	case containsAny(lower, []string{"return", "refund", "exchang", "broken", "damage"}):
		return "I can assist with returns. Please provide your Order Number and a brief reason " +
			"so I can start the RMA process."
	case containsAny(lower, []string{"stock", "inventory", "available", "carry"}):
		return "To check stock, please name the specific product you're looking for, " +
			"like 'stepper motors' or 'sensors'."
	}

	var responses []string
	switch emotion {
	case "frustrated", "angry":
		responses = []string{
			"I apologize that I couldn't fully understand your request. " +
				"For immediate assistance, please contact our sales team at sales@b2bhub.com " +
				"or call 1-800-B2B-HELP. I want to make sure you get the help you need.",
			"I'm sorry for any confusion. Let me help you better. " +
				"You can try asking about specific topics like MOQ, pricing, shipping, " +
				"or I can connect you with our support team.",
		}
	case "anxious":
		responses = []string{
			"I understand you need quick assistance. Here's how I can help right away:\n" +
				"• For order status: provide your PO number\n" +
				"• For urgent quotes: say 'RFQ' to start\n" +
				"• For immediate support: contact sales@b2bhub.com",
		}
	case "sad", "negative":
		responses = []string{
			"I'm sorry things aren't going as expected. " +
				"I'd like to help make this right. Could you tell me more about what you need? " +
				"I can assist with orders, shipping, returns, or connect you with our team.",
		}
	default:
		responses = []string{
			"I'd be happy to help you! I can assist with:\n" +
				"• Product information and MOQ\n" +
				"• Pricing and bulk discounts\n" +
				"• Shipping and delivery\n" +
				"• Order tracking\n" +
				"What would you like to know more about?",
			"I'm not quite sure what you're looking for. " +
				"Try asking about products, pricing, shipping, or say 'Marketplace' to browse. " +
				"I'm here to help!",
			"Could you tell me a bit more about what you need? " +
				"I can help with product inquiries, quotes, shipping info, and more.",
		}
	}
	return responses[rand.IntN(len(responses))]
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
