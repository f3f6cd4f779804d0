package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
)

// ErrNotFound signals a gameId that is not in the registry.
var ErrNotFound = errors.New("session not found")

// Registry is the in-memory cache over the Store and the single source of
// truth for which game the client is in. Exactly one session is current at
// a time; after every mutation the store and the cache agree.
type Registry struct {
	mu       sync.Mutex
	store    *Store
	logger   zerolog.Logger
	games    []api.GameSession
	current  *api.GameSession
	clientID string
}

// NewRegistry loads existing state from the store. Corrupt state loads as
// empty. A client id is minted on first use and kept for the life of the
// state file.
func NewRegistry(store *Store, logger zerolog.Logger) *Registry {
	doc := store.read()

	r := &Registry{
		store:    store,
		logger:   logger.With().Str("component", "sessions").Logger(),
		games:    doc.Games,
		current:  doc.Current,
		clientID: doc.ClientID,
	}
	if r.clientID == "" {
		r.clientID = uuid.NewString()
	}
	return r
}

// ClientID identifies this client installation across invocations.
func (r *Registry) ClientID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clientID
}

// Sessions returns all known sessions in historical insertion order.
func (r *Registry) Sessions() []api.GameSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]api.GameSession, len(r.games))
	copy(out, r.games)
	return out
}

// Current returns the active session, if any.
func (r *Registry) Current() (api.GameSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return api.GameSession{}, false
	}
	return *r.current, true
}

// StartOrResume records a session and makes it current. A new session is
// appended to the history; a session whose gameId is already known replaces
// the stored entry, keeping the list free of duplicates.
func (r *Registry) StartOrResume(s api.GameSession, existing bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !existing {
		replaced := false
		for i, g := range r.games {
			if g.GameID == s.GameID {
				r.games[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			r.games = append(r.games, s)
		}
	}

	r.current = &s
	return r.persist()
}

// Load looks up a session by gameId and makes it current. Idempotent.
func (r *Registry) Load(gameID string) (api.GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range r.games {
		if g.GameID == gameID {
			s := g
			r.current = &s
			if err := r.persist(); err != nil {
				return api.GameSession{}, err
			}
			return s, nil
		}
	}
	return api.GameSession{}, ErrNotFound
}

// Delete removes a session from the history. If it was current, current is
// cleared as well. Used when the backend reports the game no longer exists.
func (r *Registry) Delete(gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.games[:0]
	for _, g := range r.games {
		if g.GameID != gameID {
			kept = append(kept, g)
		}
	}
	r.games = kept

	if r.current != nil && r.current.GameID == gameID {
		r.current = nil
	}

	r.logger.Debug().Str("game_id", gameID).Msg("session evicted")
	return r.persist()
}

// End clears the current session but keeps it in the history, for use after
// a completed game.
func (r *Registry) End() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = nil
	return r.persist()
}

// persist writes the in-memory state through to the store. Callers hold mu.
func (r *Registry) persist() error {
	return r.store.write(document{
		Games:    r.games,
		Current:  r.current,
		ClientID: r.clientID,
	})
}
