package stores

import (
	"context"
	"log/slog"

	"github.com/alexedwards/scs/v2"
)

// SCSSessionStore backs the SessionStore interface with an scs
// session manager, for deployments where session state belongs
// server-side. Callers must run handlers under the manager's
// LoadAndSave middleware so the request context carries session data.
type SCSSessionStore struct {
	Manager *scs.SessionManager
}

func NewSCSSessionStore(manager *scs.SessionManager) *SCSSessionStore {
	return &SCSSessionStore{Manager: manager}
}

func (s *SCSSessionStore) Get(ctx context.Context, key string) (string, bool) {
	if !s.Manager.Exists(ctx, key) {
		return "", false
	}
	return s.Manager.GetString(ctx, key), true
}

func (s *SCSSessionStore) Put(ctx context.Context, key, value string) {
	s.Manager.Put(ctx, key, value)
}

func (s *SCSSessionStore) Delete(ctx context.Context, key string) {
	s.Manager.Remove(ctx, key)
}

func (s *SCSSessionStore) Clear(ctx context.Context) {
	if err := s.Manager.Clear(ctx); err != nil {
		slog.Warn("error clearing session ", "err", err)
	}
}
