package llm

import "context"

// CompletionRequest is a single prompt sent to a provider.
type CompletionRequest struct {
	// SystemPrompt sets the model's role and output rules.
	SystemPrompt string
	// UserPrompt carries the ticket text.
	UserPrompt string
	// MaxTokens caps the response length.
	MaxTokens int
	// JSONMode asks providers that support it to constrain output to a JSON object.
	JSONMode bool
}

// CompletionResponse is the raw text a provider returned.
type CompletionResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider performs one completion call against an LLM API.
// Implementations make a single attempt; retries are the Classifier's job.
type Provider interface {
	// Complete sends req and returns the raw response text.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the provider name (e.g., "openai").
	Name() string
	// Model returns the model identifier being used.
	Model() string
}
