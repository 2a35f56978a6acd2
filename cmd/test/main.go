package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/engine"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/functions"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/session"
)

// Smoke test for the dialogue engines, bypassing the server: sends one guest
// utterance through the configured provider and prints the parsed reply and
// its annotation trailer.
func main() {
	provider := flag.String("provider", "gemini", "Engine provider (gemini or openai)")
	text := flag.String("text", "Hi, I'd like a room for two from June 1st to June 3rd.", "Guest utterance to send")
	flag.Parse()

	prompt := session.DefaultSystemPrompt("Hotel Bellevue")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var eng engine.Engine
	switch *provider {
	case "gemini":
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			log.Fatal("GEMINI_API_KEY not set")
		}
		var err error
		eng, err = engine.NewGemini(ctx, engine.GeminiConfig{
			APIKey:       apiKey,
			SystemPrompt: prompt,
			HotelDocs:    functions.GetHotelInformationDocs,
		})
		if err != nil {
			log.Fatalf("Failed to create engine: %v", err)
		}
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			log.Fatal("OPENAI_API_KEY not set")
		}
		eng = engine.NewOpenAI(engine.OpenAIConfig{
			APIKey:       apiKey,
			BaseURL:      os.Getenv("OPENAI_BASE_URL"),
			SystemPrompt: prompt,
		})
	default:
		log.Fatalf("Unknown provider: %s", *provider)
	}

	history := []booking.Turn{{
		Speaker:   booking.SpeakerGuest,
		Text:      *text,
		Timestamp: time.Now(),
	}}

	log.Printf("📤 Guest: %s", *text)
	reply, err := eng.GenerateReply(ctx, history)
	if err != nil {
		log.Fatalf("Engine error: %v", err)
	}

	log.Printf("💬 Reply: %s", reply.Text)
	log.Printf("🏷️ Language: %s", reply.Language)
	log.Printf("🏷️ Annotation: urgency=%.2f human_request=%v", reply.Annotation.Urgency, reply.Annotation.HumanRequest)
	log.Println("✅ Done")
}
