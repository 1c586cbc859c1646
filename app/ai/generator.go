package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You write short, natural-sounding social media comments. " +
	"Reply with the comment text only: no quotes, no hashtags unless asked, at most two sentences."

// Generator produces comment text through an OpenAI-compatible API.
type Generator struct {
	client *openai.Client
	model  string
}

// NewGenerator builds a generator. baseURL overrides the default endpoint for
// OpenAI-compatible providers.
func NewGenerator(apiKey, model, baseURL string) *Generator {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Generator{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// CommentText generates one comment reacting to the given post text. The
// ordinal varies the angle so a batch does not produce near-duplicates.
func (g *Generator) CommentText(ctx context.Context, postText string, ordinal int) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	prompt := fmt.Sprintf("Write comment #%d reacting to this post:\n\n%s", ordinal, postText)

	resp, err := g.client.CreateChatCompletion(timeoutCtx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.9,
		MaxTokens:   120,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	text = strings.Trim(text, `"`)
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}

	return text, nil
}
