package services

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"
)

const askSystemPrompt = "Reply briefly in one or two sentences."

// LLMAsker answers free-form questions through a chat completion, kept short
// enough to speak aloud.
type LLMAsker struct {
	client openai.Client
	model  string
}

func NewLLMAsker(client openai.Client, model string) *LLMAsker {
	return &LLMAsker{client: client, model: model}
}

func (s *LLMAsker) Ask(ctx context.Context, message string) (string, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(askSystemPrompt),
			openai.UserMessage(message),
		},
		Model:               openai.ChatModel(s.model),
		MaxCompletionTokens: openai.Int(200),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	answer := resp.Choices[0].Message.Content
	if answer == "" {
		return "", fmt.Errorf("empty message content")
	}
	return answer, nil
}
