package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/grantline/assist/internal/event"
	"github.com/grantline/assist/internal/logging"
	"github.com/grantline/assist/internal/stream"
	"github.com/grantline/assist/internal/transport"
	"github.com/grantline/assist/pkg/types"
)

// Send records text as the last attempted message, appends an optimistic
// user message, opens a stream and consumes it to its terminal event. It
// blocks for the duration of the exchange; Stop aborts it from another
// goroutine.
//
// A Send while another exchange is streaming returns ErrBusy without
// touching session state.
func (s *Session) Send(ctx context.Context, text string, mentions ...types.Mention) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.streaming {
		s.mu.Unlock()
		return ErrBusy
	}

	s.generation++
	gen := s.generation
	exCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.streaming = true
	s.lastAttempted = text
	s.lastMentions = mentions
	s.lastError = ""
	s.suggestions = nil
	s.progress = nil
	s.metadata = nil

	userMsg := types.Message{
		ID:             generateID(),
		ConversationID: s.conversationID,
		Role:           types.RoleUser,
		Content:        text,
		Time:           types.MessageTime{Created: time.Now().UnixMilli()},
	}
	s.messages = append(s.messages, userMsg)
	convID := s.conversationID
	s.mu.Unlock()

	s.bus.PublishSync(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Scope: s.scope, Info: &userMsg}})
	s.publishUpdated()

	body, err := s.backend.OpenStream(exCtx, transport.AskRequest{
		Scope:          s.scope,
		Text:           text,
		ConversationID: convID,
		Mentions:       mentions,
	})
	if err != nil {
		return s.finishTransportError(gen, exCtx, err)
	}
	defer body.Close()

	var (
		committed bool
		protoErr  string
	)
	h := stream.Handler{
		Token:       func(tok string) { s.applyToken(gen, tok) },
		Citation:    func(c types.Citation) { s.applyCitation(gen, c) },
		Suggestions: func(qs []string) { s.applySuggestions(gen, qs) },
		Progress:    func(p types.Progress) { s.applyProgress(gen, p) },
		Metadata:    func(raw json.RawMessage) { s.applyMetadata(gen, raw) },
		Done: func(d stream.Done) {
			committed = true
			s.commit(gen, d)
		},
		Error: func(msg string) {
			protoErr = msg
			s.fail(gen, msg)
		},
	}

	readErr := stream.Read(exCtx, body, h)

	switch {
	case exCtx.Err() != nil:
		// Abort via Stop, teardown or the caller's context. Stop and
		// reset settle session state themselves before cancelling; a
		// caller-context abort has not, so settle it here.
		s.settleAbort(gen)
		return nil
	case protoErr != "":
		return fmt.Errorf("backend error: %s", protoErr)
	case readErr != nil:
		s.fail(gen, readErr.Error())
		return readErr
	case !committed:
		err := errors.New("stream ended without a terminal event")
		s.fail(gen, err.Error())
		return err
	default:
		return nil
	}
}

// Stop aborts the active exchange. Content accumulated so far is committed
// as an assistant message; tokens arriving after the stop are discarded.
// Stopping an idle session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.streaming {
		s.mu.Unlock()
		return
	}

	// Invalidate in-flight continuations before cancelling so nothing
	// arriving after this point can touch the buffer.
	s.generation++
	cancel := s.cancel
	s.cancel = nil
	s.streaming = false

	var committed *types.Message
	if s.buffer.content != "" {
		now := time.Now().UnixMilli()
		msg := types.Message{
			ID:             generateID(),
			ConversationID: s.conversationID,
			Role:           types.RoleAssistant,
			Content:        s.buffer.content,
			Citations:      append([]types.Citation(nil), s.buffer.citations...),
			Time:           types.MessageTime{Created: now},
		}
		s.messages = append(s.messages, msg)
		s.updatedAt = now
		committed = &msg
	}
	s.buffer.reset()
	s.progress = nil
	s.metadata = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if committed != nil {
		s.bus.PublishSync(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Scope: s.scope, Info: committed}})
	}
	s.publishIdle()
	s.publishUpdated()
}

// RetryLastMessage removes the most recent user message and resends its
// text. It is a no-op when nothing was attempted or an exchange is active.
func (s *Session) RetryLastMessage(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || s.streaming || s.lastAttempted == "" {
		s.mu.Unlock()
		return nil
	}

	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == types.RoleUser {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	s.lastError = ""
	text := s.lastAttempted
	mentions := s.lastMentions
	s.mu.Unlock()

	s.publishUpdated()
	return s.Send(ctx, text, mentions...)
}

// applyToken appends a token to the stream buffer unless the exchange has
// been superseded.
func (s *Session) applyToken(gen uint64, tok string) {
	s.mu.Lock()
	if gen != s.generation || !s.streaming {
		s.mu.Unlock()
		return
	}
	s.buffer.content += tok
	s.mu.Unlock()

	s.bus.PublishSync(event.Event{Type: event.StreamDelta, Data: event.StreamDeltaData{Scope: s.scope, Delta: tok}})
}

// applyCitation appends a citation, preserving arrival order.
func (s *Session) applyCitation(gen uint64, c types.Citation) {
	s.mu.Lock()
	if gen != s.generation || !s.streaming {
		s.mu.Unlock()
		return
	}
	s.buffer.citations = append(s.buffer.citations, c)
	s.mu.Unlock()

	s.bus.PublishSync(event.Event{Type: event.StreamCitation, Data: event.StreamCitationData{Scope: s.scope, Citation: c}})
}

// applySuggestions replaces the suggested-questions list outright.
func (s *Session) applySuggestions(gen uint64, qs []string) {
	s.mu.Lock()
	if gen != s.generation || !s.streaming {
		s.mu.Unlock()
		return
	}
	s.suggestions = qs
	s.mu.Unlock()

	s.bus.PublishSync(event.Event{Type: event.SuggestionsUpdated, Data: event.SuggestionsUpdatedData{Scope: s.scope, Questions: qs}})
}

// applyProgress replaces the advisory progress indicator.
func (s *Session) applyProgress(gen uint64, p types.Progress) {
	s.mu.Lock()
	if gen != s.generation || !s.streaming {
		s.mu.Unlock()
		return
	}
	s.progress = &p
	s.mu.Unlock()

	s.bus.PublishSync(event.Event{Type: event.StreamProgress, Data: event.StreamProgressData{Scope: s.scope, Progress: p}})
}

// applyMetadata replaces the advisory response metadata.
func (s *Session) applyMetadata(gen uint64, raw json.RawMessage) {
	s.mu.Lock()
	if gen != s.generation || !s.streaming {
		s.mu.Unlock()
		return
	}
	s.metadata = raw
	s.mu.Unlock()
}

// commit finalizes a successful exchange: the stream buffer becomes one
// assistant message, the conversation id is adopted if this was the first
// exchange, and the session returns to idle.
func (s *Session) commit(gen uint64, d stream.Done) {
	s.mu.Lock()
	if gen != s.generation || !s.streaming {
		s.mu.Unlock()
		return
	}

	adopted := false
	if s.conversationID == "" {
		if d.ConversationID != "" {
			s.conversationID = d.ConversationID
			adopted = true
		} else {
			// Tolerated backend omission: leave the session without an
			// id rather than failing the exchange.
			logging.Debug().Str("scope", s.scope.Key()).Msg("done event carried no conversation id")
		}
	}

	msgID := d.MessageID
	if msgID == "" {
		msgID = generateID()
	}

	now := time.Now().UnixMilli()
	msg := types.Message{
		ID:             msgID,
		ConversationID: s.conversationID,
		Role:           types.RoleAssistant,
		Content:        s.buffer.content,
		Citations:      append([]types.Citation(nil), s.buffer.citations...),
		Time:           types.MessageTime{Created: now},
	}
	s.messages = append(s.messages, msg)
	s.updatedAt = now

	s.buffer.reset()
	s.progress = nil
	s.metadata = nil
	s.streaming = false
	s.lastAttempted = ""
	s.lastMentions = nil
	convID := s.conversationID
	s.mu.Unlock()

	if adopted {
		s.store.SetActive(s.scope, convID)
	}

	s.bus.PublishSync(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Scope: s.scope, Info: &msg}})
	s.publishIdle()
	s.publishUpdated()
}

// fail terminates an exchange without committing a message. The failed
// user message stays in the list so retry can target it.
func (s *Session) fail(gen uint64, msg string) {
	s.mu.Lock()
	if gen != s.generation || !s.streaming {
		s.mu.Unlock()
		return
	}
	s.buffer.reset()
	s.progress = nil
	s.metadata = nil
	s.lastError = msg
	s.streaming = false
	s.mu.Unlock()

	s.bus.PublishSync(event.Event{Type: event.SessionError, Data: event.SessionErrorData{Scope: s.scope, Error: msg}})
	s.publishIdle()
	s.publishUpdated()
}

// settleAbort returns an exchange aborted through its own context to idle
// without committing or recording an error. Exchanges superseded by Stop,
// reset or Close have already been settled and are left alone.
func (s *Session) settleAbort(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || !s.streaming {
		s.mu.Unlock()
		return
	}
	s.buffer.reset()
	s.progress = nil
	s.metadata = nil
	s.streaming = false
	s.cancel = nil
	s.mu.Unlock()

	s.publishIdle()
	s.publishUpdated()
}

// finishTransportError maps an OpenStream failure to session state. Abort
// is not an error and must not populate lastError.
func (s *Session) finishTransportError(gen uint64, exCtx context.Context, err error) error {
	if exCtx.Err() != nil || errors.Is(err, context.Canceled) {
		s.settleAbort(gen)
		return nil
	}

	if errors.Is(err, transport.ErrNoCredentials) {
		s.fail(gen, "Sign in to use the assistant.")
		return err
	}

	s.fail(gen, err.Error())
	return err
}

func (s *Session) publishUpdated() {
	s.bus.PublishSync(event.Event{Type: event.SessionUpdated, Data: event.SessionUpdatedData{Scope: s.scope}})
}

func (s *Session) publishIdle() {
	s.bus.PublishSync(event.Event{Type: event.SessionIdle, Data: event.SessionIdleData{Scope: s.scope}})
}
