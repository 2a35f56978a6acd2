package engine

import (
	"math"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

// metaPrefix marks the annotation trailer the system prompt asks the model
// to emit as its last line.
const metaPrefix = "<RECEPTION_META>"

type metaPayload struct {
	Language     string  `json:"language"`
	Urgency      float64 `json:"urgency"`
	HumanRequest bool    `json:"human_request"`
}

// ParseReply splits a raw completion into the utterance to send and the
// trailing annotation. Trailer lines are stripped even when malformed: a
// line carrying the marker is never meant for the guest. A missing or
// broken annotation reads as the zero value, since annotations are advisory
// and must not block the reply.
func ParseReply(raw string) Reply {
	lines := strings.Split(raw, "\n")
	var reply Reply
	parsed := false
	end := len(lines)
	for end > 0 {
		line := strings.TrimSpace(lines[end-1])
		if line == "" {
			end--
			continue
		}
		if !strings.HasPrefix(line, metaPrefix) {
			break
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, metaPrefix))
		var meta metaPayload
		if err := sonic.UnmarshalString(payload, &meta); err == nil && !parsed {
			parsed = true
			reply.Language = strings.ToLower(strings.TrimSpace(meta.Language))
			reply.Annotation = booking.Annotation{
				Urgency:      clamp01(meta.Urgency),
				HumanRequest: meta.HumanRequest,
			}
		}
		end--
	}
	reply.Text = strings.TrimSpace(strings.Join(lines[:end], "\n"))
	return reply
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
