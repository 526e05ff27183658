// Package llm implements the structured completion protocol: request a
// JSON-shaped reply from a chat model, repair malformed output within a
// bounded number of retries, and fall back to a caller-supplied value when
// the backend is unavailable or keeps misbehaving. Calls made through this
// package never return an error to their caller.
package llm

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/checkai/checkai/internal/model"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry in a completion request. The first
// message is conventionally the system instruction.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the low-level structured completion backend: an ordered
// message list in, a single text blob out. Implementations must not stream.
type Completer interface {
	Name() string

	// Configured reports whether the backend has credentials. An
	// unconfigured backend is not an error; callers fall back silently.
	Configured() bool

	Complete(ctx context.Context, messages []Message, modelName string) (string, error)
}

// OpenAICompatible talks to any OpenAI-compatible chat completion endpoint
// in JSON-object mode
type OpenAICompatible struct {
	client *openai.Client
	config model.LLMConfig
}

// NewOpenAICompatible creates a backend from the given configuration. It is
// valid to construct one without an API key; Configured will report false.
func NewOpenAICompatible(config model.LLMConfig) *OpenAICompatible {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAICompatible{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Name returns the backend name
func (p *OpenAICompatible) Name() string {
	return "openai-compatible"
}

// Configured reports whether an API key is present
func (p *OpenAICompatible) Configured() bool {
	return p.config.APIKey != ""
}

// Complete issues one chat completion request and returns the raw reply text
func (p *OpenAICompatible) Complete(ctx context.Context, messages []Message, modelName string) (string, error) {
	if modelName == "" {
		modelName = p.config.Model
	}

	timeout := p.config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model:    modelName,
		Messages: chatMessages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyReply
	}

	return resp.Choices[0].Message.Content, nil
}
