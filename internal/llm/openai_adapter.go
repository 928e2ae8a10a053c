package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"drawflow-backend/internal/config"
	"drawflow-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
)

// openaiChatModel adapts go-openai to the eino ChatModel interface,
// including image parts for vision requests.
type openaiChatModel struct {
	client *openai.Client
	model  string
}

func newOpenAIChatModel(ctx context.Context, cfg config.OpenAIConfig) (*openaiChatModel, error) {
	logger.Infof("Using OpenAI model %s", cfg.Model)

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &openaiChatModel{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}, nil
}

func (m *openaiChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: convertMessages(messages),
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return &schema.Message{
		Role:    schema.Assistant,
		Content: resp.Choices[0].Message.Content,
	}, nil
}

func (m *openaiChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	stream, err := m.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: convertMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}

	reader, writer := schema.Pipe[*schema.Message](100)

	go func() {
		defer writer.Close()
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				writer.Send(nil, err)
				return
			}

			if len(response.Choices) > 0 && response.Choices[0].Delta.Content != "" {
				writer.Send(&schema.Message{
					Role:    schema.Assistant,
					Content: response.Choices[0].Delta.Content,
				}, nil)
			}
		}
	}()

	return reader, nil
}

// BindTools is a no-op; validation never calls tools.
func (m *openaiChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

func convertMessages(messages []*schema.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case schema.Assistant:
			role = openai.ChatMessageRoleAssistant
		case schema.System:
			role = openai.ChatMessageRoleSystem
		}

		if len(msg.MultiContent) > 0 {
			result = append(result, openai.ChatCompletionMessage{
				Role:         role,
				MultiContent: convertParts(msg.MultiContent),
			})
			continue
		}

		// empty assistant turns are rejected by the API
		if msg.Content == "" && role == openai.ChatMessageRoleAssistant {
			continue
		}

		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return result
}

func convertParts(parts []schema.ChatMessagePart) []openai.ChatMessagePart {
	out := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case schema.ChatMessagePartTypeText:
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		case schema.ChatMessagePartTypeImageURL:
			if p.ImageURL == nil {
				continue
			}
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    p.ImageURL.URL,
					Detail: openai.ImageURLDetailAuto,
				},
			})
		}
	}
	return out
}
