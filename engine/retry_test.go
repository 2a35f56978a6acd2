package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

type flakyEngine struct {
	failures int
	calls    int
}

func (f *flakyEngine) GenerateReply(ctx context.Context, history []booking.Turn) (Reply, error) {
	f.calls++
	if f.calls <= f.failures {
		return Reply{}, errors.New("model overloaded")
	}
	return Reply{Text: "hello"}, nil
}

func TestGenerateWithRetryRecovers(t *testing.T) {
	eng := &flakyEngine{failures: 1}
	reply, err := GenerateWithRetry(context.Background(), eng, nil, 1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if reply.Text != "hello" {
		t.Fatalf("text=%q", reply.Text)
	}
	if eng.calls != 2 {
		t.Fatalf("calls=%d, want 2", eng.calls)
	}
}

func TestGenerateWithRetryExhausted(t *testing.T) {
	eng := &flakyEngine{failures: 10}
	_, err := GenerateWithRetry(context.Background(), eng, nil, 0)
	if err == nil {
		t.Fatal("want error")
	}
	if eng.calls != 1 {
		t.Fatalf("calls=%d, want 1", eng.calls)
	}
}

func TestGenerateWithRetryReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng := &flakyEngine{failures: 10}
	_, err := GenerateWithRetry(ctx, eng, nil, 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if eng.calls != 1 {
		t.Fatalf("calls=%d, want 1", eng.calls)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	if d := expBackoff(1); d != retryBaseDelay {
		t.Fatalf("attempt 1: %v", d)
	}
	if d := expBackoff(2); d != 2*retryBaseDelay {
		t.Fatalf("attempt 2: %v", d)
	}
	if d := expBackoff(50); d != retryMaxDelay {
		t.Fatalf("attempt 50: %v", d)
	}
}

func TestJitterStaysNearBase(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := withJitter(time.Second)
		if d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("jittered delay %v outside +-20%%", d)
		}
	}
}
