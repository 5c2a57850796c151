// Package resolver decides which conversation to restore when a session is
// activated. Competing sources (an explicit directive, the persisted choice,
// the backend's most recent conversation) are merged by an ordered list of
// strategies with fixed precedence.
package resolver

import (
	"context"
	"errors"

	"github.com/grantline/assist/internal/logging"
	"github.com/grantline/assist/internal/transport"
	"github.com/grantline/assist/pkg/types"
)

// Source identifies which strategy produced an outcome.
type Source string

const (
	SourceNew       Source = "new"
	SourceExplicit  Source = "explicit"
	SourcePersisted Source = "persisted"
	SourceRecent    Source = "recent"
)

// Request carries the inputs to one resolution.
type Request struct {
	Scope types.Scope
	// ForceNew skips restoration entirely.
	ForceNew bool
	// ExplicitID is a caller-supplied conversation id, if any.
	ExplicitID string
}

// Outcome is the resolved choice. An empty ConversationID means start a
// fresh, empty session.
type Outcome struct {
	ConversationID string
	Source         Source
}

// Persisted is the slice of the state store the resolver needs.
type Persisted interface {
	Active(scope types.Scope) string
}

// Backend is the slice of the transport the resolver needs.
type Backend interface {
	Recent(ctx context.Context, scope types.Scope) (*types.Conversation, error)
}

// Strategy inspects a request and either produces an outcome or defers to
// the next strategy in the chain.
type Strategy interface {
	Resolve(ctx context.Context, req Request) (Outcome, bool)
}

// Resolver tries its strategies in order and returns the first match.
type Resolver struct {
	strategies []Strategy
}

// New builds the default strategy chain: force-new, explicit id, persisted
// id, backend most-recent lookup.
func New(store Persisted, backend Backend) *Resolver {
	return &Resolver{strategies: []Strategy{
		forceNewStrategy{},
		explicitStrategy{},
		persistedStrategy{store: store},
		recentStrategy{backend: backend},
	}}
}

// Resolve runs the chain. When no strategy matches, the outcome is a fresh
// session. Resolution is idempotent and safe to abandon via ctx.
func (r *Resolver) Resolve(ctx context.Context, req Request) Outcome {
	for _, s := range r.strategies {
		if ctx.Err() != nil {
			return Outcome{Source: SourceNew}
		}
		if out, ok := s.Resolve(ctx, req); ok {
			return out
		}
	}
	return Outcome{Source: SourceNew}
}

// forceNewStrategy short-circuits restoration when the caller asked for a
// fresh conversation.
type forceNewStrategy struct{}

func (forceNewStrategy) Resolve(_ context.Context, req Request) (Outcome, bool) {
	if !req.ForceNew {
		return Outcome{}, false
	}
	return Outcome{Source: SourceNew}, true
}

// explicitStrategy honors a caller-supplied conversation id.
type explicitStrategy struct{}

func (explicitStrategy) Resolve(_ context.Context, req Request) (Outcome, bool) {
	if req.ExplicitID == "" {
		return Outcome{}, false
	}
	return Outcome{ConversationID: req.ExplicitID, Source: SourceExplicit}, true
}

// persistedStrategy restores the conversation recorded in the state store.
type persistedStrategy struct {
	store Persisted
}

func (s persistedStrategy) Resolve(_ context.Context, req Request) (Outcome, bool) {
	id := s.store.Active(req.Scope)
	if id == "" {
		return Outcome{}, false
	}
	return Outcome{ConversationID: id, Source: SourcePersisted}, true
}

// recentStrategy asks the backend for the scope's most recent conversation.
// The lookup is best-effort: any failure defers to the fresh-session default.
type recentStrategy struct {
	backend Backend
}

func (s recentStrategy) Resolve(ctx context.Context, req Request) (Outcome, bool) {
	conv, err := s.backend.Recent(ctx, req.Scope)
	if err != nil {
		if !errors.Is(err, transport.ErrNotFound) {
			logging.Debug().Err(err).Str("scope", req.Scope.Key()).Msg("recent conversation lookup failed")
		}
		return Outcome{}, false
	}
	if conv == nil || conv.ID == "" {
		return Outcome{}, false
	}
	return Outcome{ConversationID: conv.ID, Source: SourceRecent}, true
}
