package llm

import (
	"context"
	"fmt"
)

// systemPrompt frames every lab-analysis conversation.
const systemPrompt = "You review routine blood panels for a personal health dashboard. " +
	"You are not a doctor and never give a diagnosis. Reply with a single JSON object."

// LLM is a chat-completion provider.
type LLM interface {
	Chat(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// APIError is a provider-reported failure, either a non-200 status or an
// error object in a 200 body.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
}
