package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout is how long a session may sit idle before it is considered
// stale.
const DefaultTimeout = 30 * time.Minute

// Registry owns every live session, keyed by (user, chat). Entries are
// created lazily, discarded when stale at access time, and can be swept in
// bulk. Safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time // injectable for tests
}

// NewRegistry creates an empty Registry. A timeout of zero or less uses
// DefaultTimeout. If logger is nil, the default slog logger is used.
func NewRegistry(timeout time.Duration, logger *slog.Logger) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

func sessionKey(userID, chatID string) string {
	return fmt.Sprintf("%s:%s", userID, chatID)
}

// GetSession returns the live session for the key, creating a fresh INITIAL
// one when none exists or the existing one has expired. A successful fetch
// refreshes last_activity.
func (r *Registry) GetSession(userID, chatID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey(userID, chatID)
	if s, ok := r.sessions[key]; ok {
		if !s.IsExpired(r.timeout) {
			s.Touch()
			return s
		}
		// Expiry is silent; the stale flow is simply dropped.
		r.logger.Debug("session: discarding expired session", "user_id", userID, "chat_id", chatID)
		delete(r.sessions, key)
	}

	s := newSession(userID, chatID, r.now)
	r.sessions[key] = s
	return s
}

// ClearSession removes the entry unconditionally. No-op if absent.
func (r *Registry) ClearSession(userID, chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionKey(userID, chatID))
}

// CleanupExpired removes every expired session and returns how many were
// dropped.
func (r *Registry) CleanupExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, s := range r.sessions {
		if s.IsExpired(r.timeout) {
			delete(r.sessions, key)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug("session: cleaned up expired sessions", "removed", removed)
	}
	return removed
}

// ActiveCount returns the number of tracked sessions, expired or not.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
