package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/messages"
)

// Console client for the reception WebSocket protocol: type a line, it goes
// out as a guest turn; assistant turns and status updates print as they come.
func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "WebSocket server URL")
	flag.Parse()

	log.Printf("🔌 Connecting to %s...", *serverURL)

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go readLoop(conn, done)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		select {
		case <-interrupt:
			sendControl(conn, "end")
			conn.Close()
		case <-done:
		}
	}()

	fmt.Println("Type your message and press Enter. Ctrl+C or 'quit' to hang up.")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			sendControl(conn, "end")
			break
		}
		if err := sendTurn(conn, text); err != nil {
			log.Printf("❌ Send failed: %v", err)
			break
		}
	}

	<-done
	log.Println("Done")
}

func readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var msg struct {
			Type      string          `json:"type"`
			SessionID string          `json:"sessionId,omitempty"`
			Payload   json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case messages.TypeTurn:
			var payload messages.TurnResponsePayload
			if err := json.Unmarshal(msg.Payload, &payload); err == nil {
				fmt.Printf("💬 Receptionist: %s\n", payload.Text)
			}
		case messages.TypeStatus:
			var payload messages.StatusPayload
			if err := json.Unmarshal(msg.Payload, &payload); err == nil {
				log.Printf("ℹ️ Status: %s %s", payload.Status, payload.Message)
				if payload.Status == messages.StatusClosed {
					return
				}
			}
		case messages.TypeError:
			var payload messages.ErrorPayload
			if err := json.Unmarshal(msg.Payload, &payload); err == nil {
				log.Printf("❌ Error [%s]: %s", payload.Code, payload.Message)
			}
		}
	}
}

func sendTurn(conn *websocket.Conn, text string) error {
	payload, _ := json.Marshal(messages.TurnPayload{Text: text})
	return conn.WriteJSON(messages.ClientMessage{Type: messages.TypeTurn, Payload: payload})
}

func sendControl(conn *websocket.Conn, action string) {
	payload, _ := json.Marshal(messages.ControlPayload{Action: action})
	_ = conn.WriteJSON(messages.ClientMessage{Type: "control", Payload: payload})
}
