package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/grantline/assist/internal/event"
	"github.com/grantline/assist/internal/transport"
	"github.com/grantline/assist/pkg/types"
)

var (
	// ErrEmptyMessage is returned when Send is called with blank text.
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrBusy is returned when an exchange is already streaming. The
	// session state is left untouched.
	ErrBusy = errors.New("an exchange is already streaming")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session is closed")
)

// Backend is the transport surface a session consumes.
type Backend interface {
	OpenStream(ctx context.Context, req transport.AskRequest) (io.ReadCloser, error)
	Conversation(ctx context.Context, id string) (*types.Conversation, error)
	Recent(ctx context.Context, scope types.Scope) (*types.Conversation, error)
	Suggestions(ctx context.Context, scope types.Scope) ([]string, error)
}

// Store persists the active conversation choice per scope. Implementations
// must never fail loudly; see the state package.
type Store interface {
	Active(scope types.Scope) string
	SetActive(scope types.Scope, id string)
}

// Options configures a new Session.
type Options struct {
	Scope   types.Scope
	Backend Backend
	Store   Store
	// Bus receives session and stream events. Defaults to a private bus.
	Bus *event.Bus
}

// Session owns one scope's conversation: the committed message list, the
// in-flight stream buffer, and the transitions between idle, streaming and
// error states. All exported methods are safe for concurrent use.
type Session struct {
	scope   types.Scope
	backend Backend
	store   Store
	bus     *event.Bus

	mu sync.Mutex

	conversationID string
	title          string
	updatedAt      int64
	messages       []types.Message
	suggestions    []string
	lastError      string

	buffer   streamBuffer
	progress *types.Progress
	metadata json.RawMessage

	streaming     bool
	lastAttempted string
	lastMentions  []types.Mention

	// generation increments on every new exchange, teardown or reset.
	// Continuations captured before an await compare their generation
	// against the current one and discard stale mutations silently.
	generation uint64
	cancel     context.CancelFunc
	closed     bool
}

// streamBuffer accumulates one in-flight exchange. It exists only between
// send and the stream's terminal event.
type streamBuffer struct {
	content   string
	citations []types.Citation
}

func (b *streamBuffer) reset() {
	b.content = ""
	b.citations = nil
}

// New creates a Session for a scope.
func New(opts Options) *Session {
	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus()
	}
	return &Session{
		scope:   opts.Scope,
		backend: opts.Backend,
		store:   opts.Store,
		bus:     bus,
	}
}

// Scope returns the session's scope.
func (s *Session) Scope() types.Scope {
	return s.scope
}

// Bus returns the event bus this session publishes on.
func (s *Session) Bus() *event.Bus {
	return s.bus
}

// Snapshot is a read-only view of the session for rendering.
type Snapshot struct {
	Scope              types.Scope
	ConversationID     string
	ConversationTitle  string
	UpdatedAt          int64
	Messages           []types.Message
	IsStreaming        bool
	StreamingContent   string
	StreamingCitations []types.Citation
	SuggestedQuestions []string
	LastError          string
	Progress           *types.Progress
	ResponseMetadata   json.RawMessage
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Scope:             s.scope,
		ConversationID:    s.conversationID,
		ConversationTitle: s.title,
		UpdatedAt:         s.updatedAt,
		IsStreaming:       s.streaming,
		StreamingContent:  s.buffer.content,
		LastError:         s.lastError,
		ResponseMetadata:  s.metadata,
	}
	snap.Messages = append([]types.Message(nil), s.messages...)
	snap.StreamingCitations = append([]types.Citation(nil), s.buffer.citations...)
	snap.SuggestedQuestions = append([]string(nil), s.suggestions...)
	if s.progress != nil {
		p := *s.progress
		snap.Progress = &p
	}
	return snap
}

// Close tears the session down: the active exchange is aborted and any
// late continuation becomes a silent no-op. The session cannot be reused.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	cancel := s.cancel
	s.cancel = nil
	s.streaming = false
	s.buffer.reset()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// generateID generates a new ULID.
func generateID() string {
	return ulid.Make().String()
}
