package session

import (
	"context"
	"time"

	"github.com/grantline/assist/internal/event"
	"github.com/grantline/assist/internal/logging"
	"github.com/grantline/assist/internal/resolver"
	"github.com/grantline/assist/pkg/types"
)

// defaultSuggestions are the static per-scope fallbacks used when the
// suggestion fetch fails or before fresh suggestions arrive.
var defaultSuggestions = map[types.ScopeKind][]string{
	types.ScopeGlobal: {
		"What grants are closing soon?",
		"Summarize this month's funding activity",
		"Which applications still need attention?",
	},
	types.ScopeGrant: {
		"Summarize this grant",
		"What are the eligibility requirements?",
		"When is the next reporting deadline?",
	},
	types.ScopeWorkstream: {
		"What changed in this workstream recently?",
		"What is blocking progress here?",
		"Draft a status update for this workstream",
	},
}

// ActivateOptions carries the restoration directives for one activation.
type ActivateOptions struct {
	// ForceNew skips restoration entirely.
	ForceNew bool
	// ConversationID restores a specific conversation.
	ConversationID string
}

// Activate resolves and restores the conversation for this session. It
// runs exactly once per activation and is safe to abandon via ctx: a
// torn-down session discards the result silently.
func (s *Session) Activate(ctx context.Context, opts ActivateOptions) error {
	r := resolver.New(s.store, s.backend)
	out := r.Resolve(ctx, resolver.Request{
		Scope:      s.scope,
		ForceNew:   opts.ForceNew,
		ExplicitID: opts.ConversationID,
	})

	if out.ConversationID != "" {
		logging.Debug().
			Str("scope", s.scope.Key()).
			Str("conversationID", out.ConversationID).
			Str("source", string(out.Source)).
			Msg("restoring conversation")
		return s.LoadConversation(ctx, out.ConversationID)
	}

	// Fresh session: populate defaults, then fetch scope-appropriate ones.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.suggestions = append([]string(nil), defaultSuggestions[s.scope.Kind]...)
	s.mu.Unlock()

	return s.LoadSuggestions(ctx)
}

// LoadConversation fetches the full history for id and replaces the
// session's conversation wholesale. A stale id (the conversation no longer
// resolves) is a recovery path, not a user-facing failure: the persisted id
// is cleared and the session falls back to empty.
func (s *Session) LoadConversation(ctx context.Context, id string) error {
	conv, err := s.backend.Conversation(ctx, id)
	if err != nil {
		logging.Debug().Err(err).Str("conversationID", id).Msg("conversation load failed, falling back to empty session")
		s.store.SetActive(s.scope, "")
		s.reset()
		s.publishUpdated()
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	cancel := s.abortActiveLocked()
	s.conversationID = conv.ID
	s.title = conv.Title
	s.updatedAt = conv.Time.Updated
	s.messages = append([]types.Message(nil), conv.Messages...)
	s.suggestions = nil
	s.lastError = ""
	// The retry slot belongs to the replaced history, not the loaded one.
	s.lastAttempted = ""
	s.lastMentions = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.store.SetActive(s.scope, conv.ID)

	s.bus.PublishSync(event.Event{Type: event.ConversationLoaded, Data: event.ConversationLoadedData{
		Scope:          s.scope,
		ConversationID: conv.ID,
		Title:          conv.Title,
	}})
	s.publishUpdated()
	return nil
}

// StartNewConversation cancels any active exchange, clears all session
// state and the persisted id. It does not contact the backend.
func (s *Session) StartNewConversation() {
	s.reset()
	s.store.SetActive(s.scope, "")
	s.publishUpdated()
}

// LoadSuggestions fetches scope-appropriate suggested questions. On
// failure the static per-scope defaults are kept instead; the error is
// never surfaced.
func (s *Session) LoadSuggestions(ctx context.Context) error {
	qs, err := s.backend.Suggestions(ctx, s.scope)
	if err != nil || len(qs) == 0 {
		if err != nil {
			logging.Debug().Err(err).Str("scope", s.scope.Key()).Msg("suggestion fetch failed, using defaults")
		}
		qs = append([]string(nil), defaultSuggestions[s.scope.Kind]...)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.streaming {
		// An exchange owns the suggestion list while streaming.
		s.mu.Unlock()
		return nil
	}
	s.suggestions = qs
	s.mu.Unlock()

	s.bus.PublishSync(event.Event{Type: event.SuggestionsUpdated, Data: event.SuggestionsUpdatedData{Scope: s.scope, Questions: qs}})
	return nil
}

// reset clears every session field and supersedes any in-flight exchange.
func (s *Session) reset() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	cancel := s.abortActiveLocked()
	s.conversationID = ""
	s.title = ""
	s.updatedAt = time.Now().UnixMilli()
	s.messages = nil
	s.suggestions = nil
	s.lastError = ""
	s.lastAttempted = ""
	s.lastMentions = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// abortActiveLocked supersedes the in-flight exchange without committing
// partial content. Callers must hold s.mu; the returned cancel func, if
// any, must be invoked after the lock is released.
func (s *Session) abortActiveLocked() context.CancelFunc {
	s.generation++
	cancel := s.cancel
	s.cancel = nil
	s.streaming = false
	s.buffer.reset()
	s.progress = nil
	s.metadata = nil
	return cancel
}
