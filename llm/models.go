// Package llm provides shared data models for generative-model providers.
package llm

// Role values for conversation messages.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of conversation history.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// UserMessage creates a user message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// ModelMessage creates a model message.
func ModelMessage(text string) Message {
	return Message{Role: RoleModel, Text: text}
}

// Phase classifies a streamed chunk as intermediate reasoning or
// final-answer content.
type Phase int

const (
	// PhaseResponse is literal answer text. It is the zero value so that
	// providers without a thought flag degrade to response chunks.
	PhaseResponse Phase = iota
	// PhaseThinking is intermediate reasoning the user should only see a
	// rolling summary of.
	PhaseThinking
)

// String returns the phase name for logging.
func (p Phase) String() string {
	switch p {
	case PhaseThinking:
		return "thinking"
	case PhaseResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Chunk is one increment of streamed model output.
type Chunk struct {
	Text  string
	Phase Phase
}
