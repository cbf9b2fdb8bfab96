package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"retailhub/backend/internal/recovery"
	"retailhub/backend/internal/store"
)

// Registry keeps one Session per signed-in user.
type Registry struct {
	mu       sync.Mutex
	repo     store.Repository
	recovery *recovery.Manager
	sessions map[string]*Session
}

func NewRegistry(repo store.Repository, manager *recovery.Manager) *Registry {
	return &Registry{
		repo:     repo,
		recovery: manager,
		sessions: make(map[string]*Session),
	}
}

// Start returns the user's running session or starts a new one. A session
// that fails to load is not registered.
func (r *Registry) Start(ctx context.Context, userID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[userID]; ok {
		return sess, nil
	}
	sess := New(userID, r.repo, r.recovery)
	if err := sess.Start(ctx); err != nil {
		return nil, err
	}
	r.sessions[userID] = sess
	log.Info().Str("user", userID).Msg("session started")
	return sess, nil
}

func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[userID]
	return sess, ok
}

// End drops the user's session; the next Start loads a fresh one.
func (r *Registry) End(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[userID]; ok {
		delete(r.sessions, userID)
		log.Info().Str("user", userID).Msg("session ended")
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
