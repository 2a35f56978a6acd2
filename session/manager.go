package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/config"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/engine"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/policy"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/store"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/transcript"
)

// Manager manages all guest sessions
type Manager struct {
	sessions  map[string]*Session
	mu        sync.RWMutex
	redis     *redis.Client
	config    *config.Config
	engine    engine.Engine
	sink      store.Sink
	translate transcript.TranslateFunc
}

// NewManager creates a session manager. The Redis connection is used only
// for session bookkeeping and is optional: the manager works without it.
func NewManager(cfg *config.Config, eng engine.Engine, sink store.Sink, translate transcript.TranslateFunc) (*Manager, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Redis unavailable, continue without it
		redisClient = nil
	}

	return &Manager{
		sessions:  make(map[string]*Session),
		redis:     redisClient,
		config:    cfg,
		engine:    eng,
		sink:      sink,
		translate: translate,
	}, nil
}

// sessionConfig builds the immutable per-session configuration.
func (sm *Manager) sessionConfig() Config {
	return Config{
		HotelName:       sm.config.HotelName,
		DefaultLanguage: sm.config.DefaultLanguage,
		Policy: policy.Config{
			MaxTurns:         sm.config.MaxTurns,
			RequiredFields:   sm.config.RequiredFields,
			UrgencyThreshold: sm.config.UrgencyThreshold,
		},
		MaxGuestCount: sm.config.MaxGuestCount,
		EngineRetries: sm.config.EngineRetryCount,
		TranscriptDir: sm.config.TranscriptDir,
		Translate:     sm.translate,
	}
}

// StartSession creates a new session on the given transport and sends the
// greeting. Returns an error when the session cap is reached.
func (sm *Manager) StartSession(ctx context.Context, transport Transport) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.config.MaxSessions {
		return nil, fmt.Errorf("maximum sessions reached")
	}

	sess, err := New(transport, sm.engine, sm.sink, sm.sessionConfig())
	if err != nil {
		return nil, err
	}
	// Transports that track the session id learn it before the greeting.
	if binder, ok := transport.(interface{ BindSession(id string) }); ok {
		binder.BindSession(sess.ID)
	}
	if err := sess.Start(ctx); err != nil {
		sess.Close()
		return nil, err
	}

	sm.storeSession(ctx, sess)
	return sess, nil
}

// storeSession saves a session to memory and Redis
func (sm *Manager) storeSession(ctx context.Context, sess *Session) {
	sm.sessions[sess.ID] = sess

	if sm.redis != nil {
		sm.redis.HSet(ctx, "session:"+sess.ID, map[string]interface{}{
			"created_at":    sess.CreatedAt.Format(time.RFC3339),
			"last_activity": sess.LastActivity().Format(time.RFC3339),
			"status":        "active",
		})
		sm.redis.SAdd(ctx, "active_sessions", sess.ID)
		sm.redis.Expire(ctx, "session:"+sess.ID, sm.config.SessionTimeout)
	}
}

// GetSession retrieves a session by ID
func (sm *Manager) GetSession(sessionID string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sess, exists := sm.sessions[sessionID]
	return sess, exists
}

// RemoveSession cleans up and removes a session
func (sm *Manager) RemoveSession(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sess, exists := sm.sessions[sessionID]
	if !exists {
		return nil
	}

	sess.Close()
	delete(sm.sessions, sessionID)

	if sm.redis != nil {
		sm.redis.Del(ctx, "session:"+sessionID)
		sm.redis.SRem(ctx, "active_sessions", sessionID)
	}

	return nil
}

// GetActiveSessionCount returns current session count
func (sm *Manager) GetActiveSessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CleanupInactiveSessions closes sessions that have been idle past the
// timeout. An idle guest is a dropped call: the session hands off with
// reason disconnected.
func (sm *Manager) CleanupInactiveSessions(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, sess := range sm.sessions {
		if now.Sub(sess.LastActivity()) > sm.config.SessionTimeout {
			sess.Close()
			delete(sm.sessions, id)

			if sm.redis != nil {
				sm.redis.Del(ctx, "session:"+id)
				sm.redis.SRem(ctx, "active_sessions", id)
			}
		}
	}
}

// StartCleanupRoutine starts periodic cleanup of inactive sessions
func (sm *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.CleanupInactiveSessions(ctx)
		}
	}
}

// Shutdown closes all sessions
func (sm *Manager) Shutdown() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, sess := range sm.sessions {
		sess.Close()
		delete(sm.sessions, id)
	}

	if sm.redis != nil {
		sm.redis.Close()
	}
}
