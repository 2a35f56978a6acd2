package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures an OpenAI-backed engine. BaseURL may point at any
// compatible endpoint.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

// OpenAIEngine phrases replies with the chat completions API.
type OpenAIEngine struct {
	client openaigo.Client
	model  string
	prompt string
}

func NewOpenAI(cfg OpenAIConfig) *OpenAIEngine {
	// Retries are handled by the caller, where the attempt budget lives.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIEngine{client: openaigo.NewClient(opts...), model: model, prompt: cfg.SystemPrompt}
}

func (e *OpenAIEngine) GenerateReply(ctx context.Context, history []booking.Turn) (Reply, error) {
	msgs := make([]openaigo.ChatCompletionMessageParamUnion, 0, len(history)+1)
	msgs = append(msgs, openaigo.SystemMessage(e.prompt))
	for _, turn := range history {
		if turn.Speaker == booking.SpeakerAssistant {
			msgs = append(msgs, openaigo.AssistantMessage(turn.Text))
		} else {
			msgs = append(msgs, openaigo.UserMessage(turn.Text))
		}
	}

	resp, err := e.client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model:       openaigo.ChatModel(e.model),
		Messages:    msgs,
		Temperature: param.NewOpt(0.7),
	})
	if err != nil {
		return Reply{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Reply{}, ErrEmptyReply
	}
	return ParseReply(resp.Choices[0].Message.Content), nil
}
