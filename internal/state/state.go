// Package state persists the active conversation choice for each scope.
//
// The store deliberately never returns errors: a missing or unwritable data
// directory degrades to "no active conversation" and a silent no-op, so a
// broken local store can never take the assistant down.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/grantline/assist/internal/logging"
	"github.com/grantline/assist/internal/storage"
	"github.com/grantline/assist/pkg/types"
)

// Store records which conversation is active per scope.
type Store struct {
	storage *storage.Storage
}

// entry is the persisted record for one scope.
type entry struct {
	ConversationID string `json:"conversationID"`
	UpdatedAt      int64  `json:"updatedAt"`
}

// New creates a Store rooted at dataDir.
func New(dataDir string) *Store {
	return &Store{storage: storage.New(dataDir)}
}

// NewWithStorage creates a Store over an existing storage instance.
func NewWithStorage(st *storage.Storage) *Store {
	return &Store{storage: st}
}

// path derives the storage path for a scope.
func path(scope types.Scope) []string {
	p := []string{"active", string(scope.Kind)}
	if scope.ID != "" {
		p = append(p, scope.ID)
	}
	return p
}

// Active returns the persisted conversation id for a scope, or "" when none
// is recorded or the store is unavailable.
func (s *Store) Active(scope types.Scope) string {
	var e entry
	if err := s.storage.Get(context.Background(), path(scope), &e); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logging.Debug().Err(err).Str("scope", scope.Key()).Msg("active conversation lookup failed")
		}
		return ""
	}
	return e.ConversationID
}

// SetActive records the active conversation id for a scope. An empty id
// clears the record. Storage failures are swallowed.
func (s *Store) SetActive(scope types.Scope, id string) {
	if id == "" {
		if err := s.storage.Delete(context.Background(), path(scope)); err != nil {
			logging.Debug().Err(err).Str("scope", scope.Key()).Msg("clearing active conversation failed")
		}
		return
	}

	e := entry{ConversationID: id, UpdatedAt: time.Now().UnixMilli()}
	if err := s.storage.Put(context.Background(), path(scope), e); err != nil {
		logging.Debug().Err(err).Str("scope", scope.Key()).Msg("persisting active conversation failed")
	}
}
