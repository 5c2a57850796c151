package stream

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/grantline/assist/pkg/types"
)

// Writer emits protocol lines in the wire format Read consumes. It is used
// by the stub backend and by tests that script responses.
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// writeEvent marshals v and writes one protocol line.
func (sw *Writer) writeEvent(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(sw.w, "%s%s\n", Marker, data)
	if err != nil {
		return err
	}
	if f, ok := sw.w.(interface{ Flush() }); ok {
		f.Flush()
	}
	return nil
}

// Token writes a token event carrying a partial-text delta.
func (sw *Writer) Token(content string) error {
	return sw.writeEvent(struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}{"token", content})
}

// Citation writes a citation event.
func (sw *Writer) Citation(c types.Citation) error {
	return sw.writeEvent(struct {
		Type string         `json:"type"`
		Data types.Citation `json:"data"`
	}{"citation", c})
}

// Suggestions writes a suggestions event.
func (sw *Writer) Suggestions(questions []string) error {
	return sw.writeEvent(struct {
		Type string   `json:"type"`
		Data []string `json:"data"`
	}{"suggestions", questions})
}

// Progress writes a progress event.
func (sw *Writer) Progress(p types.Progress) error {
	return sw.writeEvent(struct {
		Type string         `json:"type"`
		Data types.Progress `json:"data"`
	}{"progress", p})
}

// Metadata writes a metadata event with an arbitrary payload.
func (sw *Writer) Metadata(v any) error {
	return sw.writeEvent(struct {
		Type string `json:"type"`
		Data any    `json:"data"`
	}{"metadata", v})
}

// Done writes the terminal done event.
func (sw *Writer) Done(d Done) error {
	return sw.writeEvent(struct {
		Type string `json:"type"`
		Data Done   `json:"data"`
	}{"done", d})
}

// Error writes a protocol-level error event.
func (sw *Writer) Error(message string) error {
	return sw.writeEvent(struct {
		Type string `json:"type"`
		Data string `json:"data"`
	}{"error", message})
}

// Sentinel writes the legacy terminal line.
func (sw *Writer) Sentinel() error {
	_, err := fmt.Fprintf(sw.w, "%s%s\n", Marker, doneSentinel)
	return err
}
