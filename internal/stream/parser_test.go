package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantline/assist/pkg/types"
)

// chunkReader yields the underlying data in fixed-size pieces so tests can
// exercise arbitrary chunk boundaries.
type chunkReader struct {
	data []byte
	size int
	pos  int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	end := c.pos + c.size
	if end > len(c.data) {
		end = len(c.data)
	}
	n := copy(p, c.data[c.pos:end])
	c.pos += n
	return n, nil
}

// collector accumulates everything a Handler receives.
type collector struct {
	tokens      []string
	citations   []types.Citation
	suggestions [][]string
	progress    []types.Progress
	metadata    []json.RawMessage
	done        []Done
	errs        []string
}

func (c *collector) handler() Handler {
	return Handler{
		Token:       func(s string) { c.tokens = append(c.tokens, s) },
		Citation:    func(ct types.Citation) { c.citations = append(c.citations, ct) },
		Suggestions: func(qs []string) { c.suggestions = append(c.suggestions, qs) },
		Progress:    func(p types.Progress) { c.progress = append(c.progress, p) },
		Metadata:    func(m json.RawMessage) { c.metadata = append(c.metadata, m) },
		Done:        func(d Done) { c.done = append(c.done, d) },
		Error:       func(msg string) { c.errs = append(c.errs, msg) },
	}
}

const sampleResponse = `data: {"type":"token","content":"Three grants "}
data: {"type":"token","content":"close this month."}
data: {"type":"citation","data":{"index":1,"title":"Grant deadlines","url":"https://example.com/deadlines"}}
data: {"type":"suggestions","data":["Which grants?","When exactly?"]}
data: {"type":"progress","data":{"step":"searching","detail":"grants index"}}
data: {"type":"metadata","data":{"latencyMs":120}}
data: {"type":"done","data":{"conversation_id":"c1","message_id":"m1"}}
`

func TestRead_AllEventKinds(t *testing.T) {
	var c collector
	err := Read(context.Background(), strings.NewReader(sampleResponse), c.handler())
	require.NoError(t, err)

	assert.Equal(t, []string{"Three grants ", "close this month."}, c.tokens)
	require.Len(t, c.citations, 1)
	assert.Equal(t, 1, c.citations[0].Index)
	assert.Equal(t, "Grant deadlines", c.citations[0].Title)
	assert.Equal(t, [][]string{{"Which grants?", "When exactly?"}}, c.suggestions)
	require.Len(t, c.progress, 1)
	assert.Equal(t, "searching", c.progress[0].Step)
	require.Len(t, c.metadata, 1)
	require.Len(t, c.done, 1)
	assert.Equal(t, "c1", c.done[0].ConversationID)
	assert.Equal(t, "m1", c.done[0].MessageID)
	assert.Empty(t, c.errs)
}

func TestRead_ArbitraryChunkBoundaries(t *testing.T) {
	// Token ordering must hold for every chunking of the same bytes.
	for _, size := range []int{1, 2, 3, 7, 16, 64, 4096} {
		var c collector
		r := &chunkReader{data: []byte(sampleResponse), size: size}
		require.NoError(t, Read(context.Background(), r, c.handler()), "chunk size %d", size)
		assert.Equal(t, []string{"Three grants ", "close this month."}, c.tokens, "chunk size %d", size)
		assert.Len(t, c.done, 1, "chunk size %d", size)
	}
}

func TestRead_MalformedLinesAreSkipped(t *testing.T) {
	input := "data: {not json}\n" +
		"data: {\"type\":\"token\",\"content\":\"ok\"}\n" +
		"data: {\"type\":\"citation\",\"data\":\"not an object\"}\n" +
		"data: {\"type\":\"token\",\"content\":\" still ok\"}\n"

	var c collector
	require.NoError(t, Read(context.Background(), strings.NewReader(input), c.handler()))
	assert.Equal(t, []string{"ok", " still ok"}, c.tokens)
	assert.Empty(t, c.citations)
	assert.Empty(t, c.errs)
}

func TestRead_UnknownTypeIgnored(t *testing.T) {
	input := "data: {\"type\":\"shiny-new-thing\",\"data\":{}}\n" +
		"data: {\"type\":\"token\",\"content\":\"hi\"}\n"

	var c collector
	require.NoError(t, Read(context.Background(), strings.NewReader(input), c.handler()))
	assert.Equal(t, []string{"hi"}, c.tokens)
}

func TestRead_NonMarkerAndBlankLinesIgnored(t *testing.T) {
	input := "\n" +
		": heartbeat\n" +
		"event: message\n" +
		"data: {\"type\":\"token\",\"content\":\"hi\"}\n" +
		"\n"

	var c collector
	require.NoError(t, Read(context.Background(), strings.NewReader(input), c.handler()))
	assert.Equal(t, []string{"hi"}, c.tokens)
}

func TestRead_SentinelIgnored(t *testing.T) {
	input := "data: {\"type\":\"done\",\"data\":{\"conversation_id\":\"c1\"}}\n" +
		"data: [DONE]\n"

	var c collector
	require.NoError(t, Read(context.Background(), strings.NewReader(input), c.handler()))
	require.Len(t, c.done, 1)
	assert.Empty(t, c.errs)
}

func TestRead_FlushesTrailingLineWithoutNewline(t *testing.T) {
	input := "data: {\"type\":\"token\",\"content\":\"tail\"}"

	var c collector
	require.NoError(t, Read(context.Background(), strings.NewReader(input), c.handler()))
	assert.Equal(t, []string{"tail"}, c.tokens)
}

func TestRead_CRLFLines(t *testing.T) {
	input := "data: {\"type\":\"token\",\"content\":\"a\"}\r\n" +
		"data: {\"type\":\"token\",\"content\":\"b\"}\r\n"

	var c collector
	require.NoError(t, Read(context.Background(), strings.NewReader(input), c.handler()))
	assert.Equal(t, []string{"a", "b"}, c.tokens)
}

func TestRead_ErrorEvent(t *testing.T) {
	input := "data: {\"type\":\"error\",\"data\":\"backend exploded\"}\n"

	var c collector
	require.NoError(t, Read(context.Background(), strings.NewReader(input), c.handler()))
	assert.Equal(t, []string{"backend exploded"}, c.errs)
}

func TestRead_AbortReturnsContextErrWithoutErrorCallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var c collector
	err := Read(ctx, strings.NewReader(sampleResponse), c.handler())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.errs)
}

type canceledReader struct{}

func (canceledReader) Read([]byte) (int, error) { return 0, context.Canceled }

func TestRead_ReaderAbortDistinguishedFromFailure(t *testing.T) {
	var c collector
	err := Read(context.Background(), canceledReader{}, c.handler())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.errs)

	failure := errors.New("connection reset")
	err = Read(context.Background(), &failingReader{err: failure}, c.handler())
	assert.ErrorIs(t, err, failure)
}

type failingReader struct{ err error }

func (f *failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestWriter_RoundTrip(t *testing.T) {
	var sb strings.Builder
	w := NewWriter(&sb)

	require.NoError(t, w.Token("Three grants "))
	require.NoError(t, w.Token("close this month."))
	require.NoError(t, w.Citation(types.Citation{Index: 1, Title: "Deadlines"}))
	require.NoError(t, w.Progress(types.Progress{Step: "drafting"}))
	require.NoError(t, w.Metadata(map[string]any{"model": "qa-1"}))
	require.NoError(t, w.Suggestions([]string{"More?"}))
	require.NoError(t, w.Done(Done{ConversationID: "c9", MessageID: "m9"}))
	require.NoError(t, w.Sentinel())

	var c collector
	require.NoError(t, Read(context.Background(), strings.NewReader(sb.String()), c.handler()))
	assert.Equal(t, []string{"Three grants ", "close this month."}, c.tokens)
	assert.Len(t, c.citations, 1)
	assert.Len(t, c.progress, 1)
	assert.Len(t, c.metadata, 1)
	assert.Equal(t, [][]string{{"More?"}}, c.suggestions)
	require.Len(t, c.done, 1)
	assert.Equal(t, "c9", c.done[0].ConversationID)
}
