package extracting

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements the Extractor interface using the OpenAI chat API
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI Extractor instance
func NewOpenAI(apiKey string, modelName string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  modelName,
	}, nil
}

// ExtractItems sends the transcript to the chat completion API and parses
// the response into line items.
func (o *OpenAI) ExtractItems(ctx context.Context, transcript string) ([]LineItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	items, err := ParseLineItems(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Close closes the OpenAI client (no-op for HTTP client)
func (o *OpenAI) Close() error {
	return nil
}
