// Package llm adapts hosted language-model providers into an optional
// external entity source. Model output is normalized into the same
// entity shape the regex detector produces and merged through the entity
// store's Add path, with no priority over regex-detected entities.
package llm

import (
	"context"
	"errors"
	"time"

	veilotel "github.com/veil-labs/veil/internal/otel"
)

var tracer = veilotel.Tracer("github.com/veil-labs/veil/internal/llm")

// TimeoutLLMCall bounds a single external detection request. One
// outstanding request per detection cycle, no retry.
const TimeoutLLMCall = 60 * time.Second

// Domain errors for the llm package.
var (
	// ErrUnconfigured is returned when no provider or API key is set.
	// Reported only when the external source is explicitly invoked.
	ErrUnconfigured = errors.New("external entity source not configured")

	// ErrUnknownProvider is returned for provider names other than
	// "openai" and "anthropic".
	ErrUnknownProvider = errors.New("unknown external source provider")
)

// Provider is a chat-completion backend usable as an external entity
// source. Implementations send one fixed-endpoint HTTPS POST and return
// the assistant-authored text.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic").
	Name() string
	// Complete sends the prompt and returns the assistant text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// entityPrompt instructs the model to emit a JSON array of entity
// objects. The response is scanned for the first top-level [...]
// substring, so surrounding prose is tolerated.
const entityPrompt = `Find all personally identifiable information in the transcript below: names, addresses, organizations, phone numbers, emails, dates, document numbers.
Reply with a JSON array only. Each element: {"text": "<literal substring>", "type": "<PERSON|ADDRESS|ORGANIZATION|PHONE_NUMBER|EMAIL|DATE|PASSPORT_NUMBER|NATIONAL_ID_NUMBER|INSURANCE_NUMBER|CREDIT_CARD_NUMBER|IP_ADDRESS|URL>", "start": <offset>, "end": <offset>}.
If there is none, reply with [].

Transcript:
`

// NewProvider constructs the provider for the given name. An empty name
// or key yields ErrUnconfigured.
func NewProvider(name, apiKey, model string) (Provider, error) {
	if name == "" || apiKey == "" {
		return nil, ErrUnconfigured
	}
	switch name {
	case "openai":
		return NewOpenAIProvider(apiKey, model), nil
	case "anthropic":
		return NewAnthropicProvider(apiKey, model), nil
	default:
		return nil, ErrUnknownProvider
	}
}
