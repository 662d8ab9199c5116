package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safehire/backend/internal/model"
)

// collect drains the event channel into payload strings, returning the
// payloads seen before the terminal event and whether a terminal event
// arrived at all.
func collect(ch <-chan model.StreamEvent) (payloads []string, done bool) {
	for ev := range ch {
		if ev.Done {
			done = true
			continue
		}
		payloads = append(payloads, string(ev.Data))
	}
	return payloads, done
}

func TestStreamCompletion(t *testing.T) {
	var capturedMethod, capturedPath, capturedAuth string
	var capturedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedMethod = r.Method
		capturedPath = r.URL.Path
		capturedAuth = r.Header.Get("Authorization")
		capturedBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, delta := range []string{"这", "是可疑", "信号"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", delta)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	provider := NewOpenAIProvider(server.URL, "test-key")
	ch, err := provider.StreamCompletion(context.Background(), &model.CompletionRequest{
		Model:    "deepseek-chat",
		Messages: []model.ChatMessage{{Role: "user", Content: "这个招聘要交押金正常吗？"}},
	})
	require.NoError(t, err)

	payloads, done := collect(ch)
	require.True(t, done, "a clean stream must end with a terminal event")
	require.Len(t, payloads, 3)

	// The forwarded payloads are the upstream bytes, lossless.
	var content strings.Builder
	for _, p := range payloads {
		var chunk model.StreamChunk
		require.NoError(t, json.Unmarshal([]byte(p), &chunk))
		require.Len(t, chunk.Choices, 1)
		content.WriteString(chunk.Choices[0].Delta.Content)
	}
	assert.Equal(t, "这是可疑信号", content.String())

	// The upstream call itself.
	assert.Equal(t, http.MethodPost, capturedMethod)
	assert.Equal(t, "/v1/chat/completions", capturedPath)
	assert.Equal(t, "Bearer test-key", capturedAuth)

	var sent model.CompletionRequest
	require.NoError(t, json.Unmarshal(capturedBody, &sent))
	assert.True(t, sent.Stream, "the upstream request must ask for a stream")
}

func TestStreamCompletion_UpstreamRejection(t *testing.T) {
	t.Run("JSON error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limited"}`))
		}))
		defer server.Close()

		provider := NewOpenAIProvider(server.URL, "test-key")
		ch, err := provider.StreamCompletion(context.Background(), &model.CompletionRequest{})
		require.Error(t, err)
		assert.Nil(t, ch)

		var upstreamErr *UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, http.StatusTooManyRequests, upstreamErr.StatusCode)
		assert.Equal(t, map[string]any{"error": "rate limited"}, upstreamErr.Details)
	})

	t.Run("non-JSON error body is tolerated", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream exploded"))
		}))
		defer server.Close()

		provider := NewOpenAIProvider(server.URL, "test-key")
		_, err := provider.StreamCompletion(context.Background(), &model.CompletionRequest{})

		var upstreamErr *UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, http.StatusBadGateway, upstreamErr.StatusCode)
		assert.Equal(t, "upstream exploded", upstreamErr.Details)
	})
}

func TestStreamCompletion_ConnectionRefused(t *testing.T) {
	provider := NewOpenAIProvider("http://127.0.0.1:1", "test-key")
	ch, err := provider.StreamCompletion(context.Background(), &model.CompletionRequest{})
	require.Error(t, err)
	assert.Nil(t, ch)

	var upstreamErr *UpstreamError
	assert.False(t, errors.As(err, &upstreamErr), "a transport failure is not an upstream rejection")
}

// chunkedReadCloser yields at most size bytes per Read, forcing the line
// reassembly in pump to deal with frames split at arbitrary positions.
type chunkedReadCloser struct {
	data []byte
	size int
	pos  int
}

func (c *chunkedReadCloser) Read(p []byte) (int, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	n := c.size
	if n > len(p) {
		n = len(p)
	}
	if c.pos+n > len(c.data) {
		n = len(c.data) - c.pos
	}
	copy(p, c.data[c.pos:c.pos+n])
	c.pos += n
	return n, nil
}

func (c *chunkedReadCloser) Close() error { return nil }

// TestPump_FrameReassembly feeds the same logical SSE content through reads
// chunked at every possible size and asserts the forwarded payload sequence
// never changes. Splitting inside "data: " or inside a JSON payload must
// make no difference.
func TestPump_FrameReassembly(t *testing.T) {
	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"你\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"好\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n\n" +
		"data: [DONE]\n\n"

	want := []string{
		`{"choices":[{"delta":{"content":"你"}}]}`,
		`{"choices":[{"delta":{"content":"好"}}]}`,
		`{"choices":[{"delta":{"content":""}}]}`,
	}

	p := &openAIProvider{}
	for size := 1; size <= len(stream); size++ {
		ch := make(chan model.StreamEvent)
		go p.pump(context.Background(), &chunkedReadCloser{data: []byte(stream), size: size}, ch)

		payloads, done := collect(ch)
		require.Truef(t, done, "chunk size %d: missing terminal event", size)
		require.Equalf(t, want, payloads, "chunk size %d: payload sequence diverged", size)
	}
}

func TestPump_EOFWithoutDoneToken(t *testing.T) {
	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n"

	p := &openAIProvider{}
	ch := make(chan model.StreamEvent)
	go p.pump(context.Background(), &chunkedReadCloser{data: []byte(stream), size: 7}, ch)

	payloads, done := collect(ch)
	assert.True(t, done, "EOF without [DONE] must still produce a terminal event")
	assert.Len(t, payloads, 1)
}

func TestPump_MalformedFrameIsSkipped(t *testing.T) {
	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n" +
		"data: {not valid json\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n" +
		"data: [DONE]\n\n"

	p := &openAIProvider{}
	ch := make(chan model.StreamEvent)
	go p.pump(context.Background(), &chunkedReadCloser{data: []byte(stream), size: len(stream)}, ch)

	payloads, done := collect(ch)
	assert.True(t, done)
	require.Len(t, payloads, 2, "only the malformed frame is dropped")
	assert.Contains(t, payloads[0], `"a"`)
	assert.Contains(t, payloads[1], `"b"`)
}

func TestPump_IgnoresCommentsAndBlankLines(t *testing.T) {
	stream := ": keep-alive comment\n" +
		"\n" +
		"event: message\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n" +
		"data: [DONE]\n\n"

	p := &openAIProvider{}
	ch := make(chan model.StreamEvent)
	go p.pump(context.Background(), &chunkedReadCloser{data: []byte(stream), size: 3}, ch)

	payloads, done := collect(ch)
	assert.True(t, done)
	assert.Len(t, payloads, 1)
}

func TestPump_CancelledContextStopsDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n" +
		"data: [DONE]\n\n"

	p := &openAIProvider{}
	ch := make(chan model.StreamEvent)

	// Nobody reads from ch; with the context gone the pump must bail out
	// instead of blocking forever on the unbuffered send.
	finished := make(chan struct{})
	go func() {
		p.pump(ctx, &chunkedReadCloser{data: []byte(stream), size: len(stream)}, ch)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop after context cancellation")
	}
}
