// Package llm abstracts the external text-generation and embedding services.
package llm

import (
	"context"
)

// Provider is the core abstraction for text generation. Consumers call
// Generate with a Request and receive the tutor's natural-language reply.
type Provider interface {
	// Generate sends a prompt to the model and returns its text response.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Embedder produces a vector representation of a text, used by the
// similarity judge for cosine scoring.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Request describes what to send to the model.
type Request struct {
	// System is the system prompt. Sets the tutor persona and constraints.
	System string

	// Messages is the conversation sent to the model. For a tutoring turn
	// this is the attempt-specific instruction plus the learner explanation.
	Messages []Message

	// MaxTokens caps the response length.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response holds the model's output.
type Response struct {
	// Content is the generated text.
	Content string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
