package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/config"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/engine"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/functions"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/server"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/session"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/store"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/transcript"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/translate"
)

const translateTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create dialogue engine: %v", err)
	}

	sink, err := buildSink(cfg)
	if err != nil {
		log.Fatalf("Failed to create persistence sink: %v", err)
	}
	defer sink.Close()

	// Create session manager
	sessionManager, err := session.NewManager(cfg, eng, sink, buildTranslate(cfg))
	if err != nil {
		log.Fatalf("Failed to create session manager: %v", err)
	}

	// Start cleanup routine
	go sessionManager.StartCleanupRoutine(ctx)

	srv := server.NewServer(cfg, sessionManager)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\nReceived shutdown signal...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped")
}

// buildEngine creates the configured dialogue engine. Both providers share
// the receptionist system prompt; only Gemini carries the hotel docs tool.
func buildEngine(ctx context.Context, cfg *config.Config) (engine.Engine, error) {
	prompt := session.DefaultSystemPrompt(cfg.HotelName)
	switch cfg.EngineProvider {
	case "openai":
		return engine.NewOpenAI(engine.OpenAIConfig{
			APIKey:       cfg.OpenAIAPIKey,
			BaseURL:      cfg.OpenAIBaseURL,
			Model:        cfg.EngineModel,
			SystemPrompt: prompt,
		}), nil
	default:
		return engine.NewGemini(ctx, engine.GeminiConfig{
			APIKey:       cfg.GeminiAPIKey,
			Model:        cfg.EngineModel,
			SystemPrompt: prompt,
			HotelDocs:    functions.GetHotelInformationDocs,
		})
	}
}

// buildSink creates the configured persistence backend.
func buildSink(cfg *config.Config) (store.Sink, error) {
	switch cfg.StoreBackend {
	case "redis":
		return store.NewRedis(cfg.RedisURL, cfg.RedisPassword)
	case "sqlite":
		return store.NewSQLite(cfg.SQLitePath)
	default:
		return store.NewMemory(), nil
	}
}

// buildTranslate wires the bilingual-transcript translation, when enabled.
// It needs the OpenAI key even when Gemini phrases the dialogue.
func buildTranslate(cfg *config.Config) transcript.TranslateFunc {
	if !cfg.TranslateEnabled {
		return nil
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("⚠️ TRANSLATE_ENABLED set but OPENAI_API_KEY missing, translation disabled")
		return nil
	}
	svc := translate.New(translate.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
	})
	return func(text string) (string, string, bool) {
		ctx, cancel := context.WithTimeout(context.Background(), translateTimeout)
		defer cancel()
		res := svc.TranslateToEnglish(ctx, text, "")
		return res.Translated, res.SourceLanguage, res.NeedsTranslation
	}
}
