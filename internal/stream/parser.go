// Package stream decodes the newline-delimited event protocol used by the
// answer backend. A response is a sequence of lines, each carrying the
// event marker followed by a JSON payload tagged with a "type" field.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/grantline/assist/internal/logging"
	"github.com/grantline/assist/pkg/types"
)

const (
	// Marker prefixes every protocol line. Lines without it are ignored.
	Marker = "data: "
	// doneSentinel is a legacy terminal line, accepted and ignored.
	doneSentinel = "[DONE]"
)

// readBufferSize is the chunk size for each stream read.
const readBufferSize = 4096

// Done is the payload of the terminal "done" event.
type Done struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// Handler receives decoded protocol events. Nil callbacks are skipped.
// Callbacks are invoked from the goroutine calling Read, strictly in
// arrival order.
type Handler struct {
	Token       func(content string)
	Citation    func(c types.Citation)
	Suggestions func(questions []string)
	Progress    func(p types.Progress)
	Metadata    func(raw json.RawMessage)
	Done        func(d Done)
	Error       func(message string)
}

// envelope is the wire form of a protocol event. Token events carry their
// text in "content"; every other kind carries a kind-specific "data".
type envelope struct {
	Type    string          `json:"type"`
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data"`
}

// Read consumes r until EOF, decoding protocol lines and dispatching them
// to h. Chunk boundaries are arbitrary: a line may span any number of
// reads. Malformed lines and unknown event types are skipped without
// terminating the stream.
//
// If ctx is cancelled, Read returns ctx.Err() without invoking h.Error;
// callers distinguish abort from transport failure with errors.Is.
func Read(ctx context.Context, r io.Reader, h Handler) error {
	buf := make([]byte, readBufferSize)
	var pending string

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			pending += string(buf[:n])
			for {
				line, rest, found := strings.Cut(pending, "\n")
				if !found {
					break
				}
				pending = rest
				dispatch(line, h)
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) {
				return context.Canceled
			}
			return err
		}
	}

	// Flush any remaining buffered text as a final line.
	if pending != "" {
		dispatch(pending, h)
	}

	return nil
}

// dispatch decodes one line and invokes the matching callback.
func dispatch(line string, h Handler) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, Marker) {
		return
	}

	payload := strings.TrimSpace(strings.TrimPrefix(line, Marker))
	if payload == "" || payload == doneSentinel {
		return
	}

	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		// One bad line must not abort an otherwise healthy exchange.
		logging.Debug().Err(err).Msg("skipping malformed stream line")
		return
	}

	switch env.Type {
	case "token":
		if h.Token != nil {
			h.Token(env.Content)
		}
	case "citation":
		var c types.Citation
		if err := json.Unmarshal(env.Data, &c); err != nil {
			logging.Debug().Err(err).Msg("skipping malformed citation event")
			return
		}
		if h.Citation != nil {
			h.Citation(c)
		}
	case "suggestions":
		var qs []string
		if err := json.Unmarshal(env.Data, &qs); err != nil {
			logging.Debug().Err(err).Msg("skipping malformed suggestions event")
			return
		}
		if h.Suggestions != nil {
			h.Suggestions(qs)
		}
	case "progress":
		var p types.Progress
		if err := json.Unmarshal(env.Data, &p); err != nil {
			logging.Debug().Err(err).Msg("skipping malformed progress event")
			return
		}
		if h.Progress != nil {
			h.Progress(p)
		}
	case "metadata":
		if h.Metadata != nil {
			h.Metadata(env.Data)
		}
	case "done":
		var d Done
		if err := json.Unmarshal(env.Data, &d); err != nil {
			logging.Debug().Err(err).Msg("skipping malformed done event")
			return
		}
		if h.Done != nil {
			h.Done(d)
		}
	case "error":
		var msg string
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			logging.Debug().Err(err).Msg("skipping malformed error event")
			return
		}
		if h.Error != nil {
			h.Error(msg)
		}
	default:
		// Unknown tags are ignored for forward compatibility.
		logging.Debug().Str("type", env.Type).Msg("ignoring unknown stream event type")
	}
}
