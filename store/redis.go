package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

// Redis persists artifacts in Redis. Reservations and escalations are
// written once under their ID with SETNX; transcript turns append to a
// per-session list after a duplicate check against the list tail, which is
// where a retried append would land.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis unavailable: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) WriteReservation(ctx context.Context, rec booking.ReservationRecord) error {
	payload, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal reservation: %w", err)
	}
	if err := r.client.SetNX(ctx, "reservation:"+rec.RecordID, payload, 0).Err(); err != nil {
		return fmt.Errorf("store reservation: %w", err)
	}
	if err := r.client.SAdd(ctx, "reservations", rec.RecordID).Err(); err != nil {
		return fmt.Errorf("index reservation: %w", err)
	}
	return nil
}

func (r *Redis) WriteEscalation(ctx context.Context, ev booking.EscalationEvent) error {
	payload, err := sonic.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal escalation: %w", err)
	}
	if err := r.client.SetNX(ctx, "escalation:"+ev.EventID, payload, 0).Err(); err != nil {
		return fmt.Errorf("store escalation: %w", err)
	}
	if err := r.client.SAdd(ctx, "escalations", ev.EventID).Err(); err != nil {
		return fmt.Errorf("index escalation: %w", err)
	}
	return nil
}

func (r *Redis) AppendTranscriptTurn(ctx context.Context, sessionID string, turn booking.Turn) error {
	payload, err := sonic.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	key := "transcript:" + sessionID

	last, err := r.client.LIndex(ctx, key, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read transcript tail: %w", err)
	}
	if err == nil && last == string(payload) {
		return nil
	}
	if err := r.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
