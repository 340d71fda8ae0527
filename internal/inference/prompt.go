package inference

import (
	"github.com/tmc/langchaingo/llms"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
)

// RefusalMessage is what the assistant answers to anything outside aviation.
const RefusalMessage = "I'm designed specifically for aviation topics. Please ask me about aircraft, airlines, airports, aviation regulations, or other aviation-related subjects."

// SystemInstruction is sent ahead of every conversation. It is never stored.
const SystemInstruction = `You are AeroCatalog Assistant, an aviation knowledge expert.

Answer only questions about aviation: aircraft types and specifications, manufacturers
(Boeing, Airbus, Bombardier, Embraer and others), engines, avionics and aircraft systems,
aerodynamics and aerospace engineering, airlines, airports, routes and bookings, air traffic
control and navigation, regulations, certification, maintenance and safety, flight
operations and crew training, and aviation history including accidents studied for safety.

Decline everything else, including politics, religion, medical, legal or financial advice,
entertainment, sports, cooking, relationships and science unrelated to flight. When you
decline, reply with exactly:
"` + RefusalMessage + `"

Always reply in the language the user wrote in.
If you are not sure a question is about aviation, treat it as off-topic and decline.
Keep answers factual, accurate and concise.`

// BuildPrompt assembles the message list for one completion: the system
// instruction, then prior in stored order (role and content only), then the
// new user text.
func BuildPrompt(prior []model.ChatMessage, text string) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, len(prior)+2)
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, SystemInstruction))
	for _, m := range prior {
		msgs = append(msgs, llms.TextParts(messageType(m.Role), m.Content))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, text))
	return msgs
}

func messageType(r model.Role) llms.ChatMessageType {
	if r == model.RoleAssistant {
		return llms.ChatMessageTypeAI
	}
	return llms.ChatMessageTypeHuman
}
