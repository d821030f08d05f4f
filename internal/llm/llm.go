// Package llm wraps the remote text models used by the pipeline:
// classification, markdown cleaning and summarization. Models are treated as
// remote functions with defined I/O; every operation takes a primary and a
// fallback model.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/pkms/content-pipeline/internal/apperrors"
)

// Model is a chat model invoked with a system prompt and a user message.
type Model interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

type chatModel struct {
	llm  llms.Model
	name string
	opts []llms.CallOption
}

func (m *chatModel) Generate(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	resp, err := m.llm.GenerateContent(ctx, messages, m.opts...)
	if err != nil {
		return "", apperrors.NewDependency(fmt.Sprintf("%s generation failed", m.name), err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewDependency(fmt.Sprintf("%s returned no choices", m.name), nil)
	}
	return resp.Choices[0].Content, nil
}

// NewOpenAI builds a chat model backed by the OpenAI API.
func NewOpenAI(apiKey, modelName string, opts ...llms.CallOption) (Model, error) {
	client, err := openai.New(openai.WithToken(apiKey), openai.WithModel(modelName))
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return &chatModel{llm: client, name: "openai/" + modelName, opts: opts}, nil
}

// NewGemini builds a chat model backed by the Google AI API.
func NewGemini(ctx context.Context, apiKey, modelName string, opts ...llms.CallOption) (Model, error) {
	client, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(modelName))
	if err != nil {
		return nil, fmt.Errorf("failed to create googleai client: %w", err)
	}
	return &chatModel{llm: client, name: "googleai/" + modelName, opts: opts}, nil
}

// generateWithFallback tries the primary model, then the fallback. The last
// error is returned when both fail.
func generateWithFallback(ctx context.Context, primary, fallback Model, system, user string) (string, error) {
	out, err := primary.Generate(ctx, system, user)
	if err == nil {
		return out, nil
	}
	if fallback == nil {
		return "", err
	}
	out, fbErr := fallback.Generate(ctx, system, user)
	if fbErr != nil {
		return "", fmt.Errorf("both models failed: %w", fbErr)
	}
	return out, nil
}
