// Package translate detects the language of transcript lines and renders
// them into English, so reception staff can review conversations held in
// languages they do not speak.
package translate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

const (
	defaultModel = "gpt-4o-mini"
	// snippet length used for detection; enough to identify a language
	// without shipping whole paragraphs.
	detectionSnippet = 200
)

// Result describes one translation.
type Result struct {
	Original         string `json:"original"`
	Translated       string `json:"translated"`
	SourceLanguage   string `json:"source_language"`
	NeedsTranslation bool   `json:"needs_translation"`
}

// Config configures the translation service. BaseURL may point at any
// compatible endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Service translates text to English with the chat completions API. Language
// detection results are cached per snippet, and any API failure falls back
// to the original text: a transcript must never be lost to a flaky
// translation call.
type Service struct {
	client openaigo.Client
	model  string

	mu    sync.Mutex
	cache map[string]string
}

func New(cfg Config) *Service {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Service{
		client: openaigo.NewClient(opts...),
		model:  model,
		cache:  make(map[string]string),
	}
}

// DetectLanguage identifies the language of text, returning "Unknown" when
// the text is too short to judge or the API errors out.
func (s *Service) DetectLanguage(ctx context.Context, text string) string {
	if len(strings.TrimSpace(text)) < 3 {
		return "Unknown"
	}
	snippet := text
	if len(snippet) > detectionSnippet {
		snippet = snippet[:detectionSnippet]
	}

	s.mu.Lock()
	if lang, ok := s.cache[snippet]; ok {
		s.mu.Unlock()
		return lang
	}
	s.mu.Unlock()

	resp, err := s.client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(s.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage("You are a language detection expert. Respond with ONLY the language name (e.g., 'English', 'Spanish', 'French', 'German', 'Italian', 'Chinese', 'Japanese', etc.). If you cannot determine the language, respond with 'Unknown'."),
			openaigo.UserMessage(fmt.Sprintf("What language is this text in? Text: %s", snippet)),
		},
		Temperature:         param.NewOpt(0.0),
		MaxCompletionTokens: param.NewOpt(int64(10)),
	})
	if err != nil || len(resp.Choices) == 0 {
		return "Unknown"
	}
	lang := strings.TrimSpace(resp.Choices[0].Message.Content)
	if lang == "" {
		return "Unknown"
	}

	s.mu.Lock()
	s.cache[snippet] = lang
	s.mu.Unlock()
	return lang
}

// TranslateToEnglish translates text, auto-detecting the source language
// when none is given. English and undetectable text come back unchanged.
func (s *Service) TranslateToEnglish(ctx context.Context, text, sourceLanguage string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Original: text, Translated: text, SourceLanguage: "Unknown"}
	}
	if sourceLanguage == "" {
		sourceLanguage = s.DetectLanguage(ctx, text)
	}
	if !shouldTranslate(sourceLanguage) {
		return Result{Original: text, Translated: text, SourceLanguage: sourceLanguage}
	}

	resp, err := s.client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(s.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage("You are a professional translator. Translate the following text to English. Provide ONLY the translation, no explanations or additional text."),
			openaigo.UserMessage(fmt.Sprintf("Translate this %s text to English: %s", sourceLanguage, text)),
		},
		Temperature:         param.NewOpt(0.3),
		MaxCompletionTokens: param.NewOpt(int64(500)),
	})
	if err != nil || len(resp.Choices) == 0 {
		return Result{Original: text, Translated: text, SourceLanguage: sourceLanguage}
	}
	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return Result{Original: text, Translated: text, SourceLanguage: sourceLanguage}
	}
	return Result{Original: text, Translated: translated, SourceLanguage: sourceLanguage, NeedsTranslation: true}
}

// BatchTranslate translates each text individually, in order.
func (s *Service) BatchTranslate(ctx context.Context, texts []string) []Result {
	results := make([]Result, 0, len(texts))
	for _, text := range texts {
		results = append(results, s.TranslateToEnglish(ctx, text, ""))
	}
	return results
}

func shouldTranslate(language string) bool {
	switch strings.ToLower(language) {
	case "english", "unknown", "":
		return false
	}
	return true
}
