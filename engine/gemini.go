package engine

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/functions"
)

const defaultGeminiModel = "models/gemini-2.5-flash"

// GeminiConfig configures a Gemini-backed engine.
type GeminiConfig struct {
	APIKey       string
	Model        string
	SystemPrompt string
	// HotelDocs supplies the hotel information sheet the model can request
	// as a tool. Nil disables the tool.
	HotelDocs func() string
}

// GeminiEngine phrases replies with the Gemini API.
type GeminiEngine struct {
	client *genai.Client
	model  string
	prompt string
	docs   func() string
}

// NewGemini creates and connects a Gemini engine.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiEngine, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiEngine{client: client, model: model, prompt: cfg.SystemPrompt, docs: cfg.HotelDocs}, nil
}

func (e *GeminiEngine) GenerateReply(ctx context.Context, history []booking.Turn) (Reply, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		role := "user"
		if turn.Speaker == booking.SpeakerAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: e.prompt}}},
	}
	if e.docs != nil {
		config.Tools = []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				functions.GetHotelInformationDocsFunctionDeclaration(),
			},
		}}
	}

	// The model may ask for the hotel docs before it answers; feed the tool
	// result back and let it finish. One tool means two rounds suffice, the
	// third is headroom.
	for round := 0; round < 3; round++ {
		resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, config)
		if err != nil {
			return Reply{}, fmt.Errorf("generate content: %w", err)
		}
		text, calls, turn := flattenCandidate(resp)
		if len(calls) == 0 || e.docs == nil {
			if strings.TrimSpace(text) == "" {
				return Reply{}, ErrEmptyReply
			}
			return ParseReply(text), nil
		}

		contents = append(contents, turn)
		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       call.ID,
				Name:     call.Name,
				Response: map[string]any{"output": e.docs()},
			}})
		}
		contents = append(contents, &genai.Content{Role: "user", Parts: parts})
	}
	return Reply{}, ErrEmptyReply
}

// flattenCandidate joins the text parts of the first non-empty candidate and
// collects its function calls.
func flattenCandidate(resp *genai.GenerateContentResponse) (string, []*genai.FunctionCall, *genai.Content) {
	var b strings.Builder
	var calls []*genai.FunctionCall
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				calls = append(calls, part.FunctionCall)
			}
		}
		return b.String(), calls, cand.Content
	}
	return "", nil, nil
}
