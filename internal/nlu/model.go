package nlu

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"
)

// Model is the hosted language model the analyzer talks to.
// This interface enables mocking of the external endpoint in tests.
type Model interface {
	// Complete sends the system instructions and the user message and returns the raw text reply.
	Complete(ctx context.Context, system, user string) (string, error)

	// Name identifies the provider and model for status output.
	Name() string
}

// ModelError wraps any failure reaching the model endpoint.
type ModelError struct {
	Provider string
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

const (
	// DefaultGeminiModel is used when LLM_MODEL is not set and the provider is gemini.
	DefaultGeminiModel = "gemini-2.5-flash"

	// DefaultOpenAIModel is used when LLM_MODEL is not set and the provider is openai.
	DefaultOpenAIModel = "gpt-4.1-mini"

	maxOutputTokens = 512
)

// GeminiModel calls Gemini through the GenAI SDK.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a Gemini client for the Gemini API backend.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiModel: create genai client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// Complete implements Model.
func (g *GeminiModel) Complete(ctx context.Context, system, user string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		MaxOutputTokens:   maxOutputTokens,
		ResponseMIMEType:  "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), cfg)
	if err != nil {
		return "", &ModelError{Provider: g.Name(), Err: fmt.Errorf("generate content: %w", err)}
	}

	text := resp.Text()
	if text == "" {
		return "", &ModelError{Provider: g.Name(), Err: fmt.Errorf("empty response from model")}
	}
	return text, nil
}

// Name implements Model.
func (g *GeminiModel) Name() string {
	return "gemini/" + g.model
}

// OpenAIModel calls OpenAI chat completions through langchaingo.
type OpenAIModel struct {
	llm   llms.Model
	model string
}

// NewOpenAIModel creates an OpenAI-backed model.
func NewOpenAIModel(apiKey, model string) (*OpenAIModel, error) {
	if model == "" {
		model = DefaultOpenAIModel
	}
	llm, err := openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("NewOpenAIModel: create openai client: %w", err)
	}
	return &OpenAIModel{llm: llm, model: model}, nil
}

// Complete implements Model.
func (o *OpenAIModel) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	resp, err := o.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0),
		llms.WithMaxTokens(maxOutputTokens),
	)
	if err != nil {
		return "", &ModelError{Provider: o.Name(), Err: fmt.Errorf("generate content: %w", err)}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", &ModelError{Provider: o.Name(), Err: fmt.Errorf("empty response from model")}
	}
	return resp.Choices[0].Content, nil
}

// Name implements Model.
func (o *OpenAIModel) Name() string {
	return "openai/" + o.model
}

// NewModel builds the model for the configured provider.
func NewModel(ctx context.Context, provider, apiKey, model string) (Model, error) {
	switch provider {
	case "", "gemini":
		return NewGeminiModel(ctx, apiKey, model)
	case "openai":
		return NewOpenAIModel(apiKey, model)
	default:
		return nil, fmt.Errorf("NewModel: unknown LLM provider %q", provider)
	}
}
