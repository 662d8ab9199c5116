package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"safehire/backend/internal/model"
)

// doneToken is the SSE payload signaling the end of an upstream stream.
const doneToken = "[DONE]"

// CompletionProvider defines the interface for a streaming chat-completion
// backend. StreamCompletion performs the upstream call synchronously: a nil
// error means the upstream accepted the request and the returned channel will
// carry the token stream. The channel is closed when the stream ends; a
// terminal Done event is delivered on clean completion, and omitted when the
// stream faults mid-flight or the context is cancelled.
type CompletionProvider interface {
	StreamCompletion(ctx context.Context, req *model.CompletionRequest) (<-chan model.StreamEvent, error)
}

// UpstreamError reports a non-success status from the provider before any
// streaming began. Details carries the upstream error body, JSON-decoded when
// possible and raw text otherwise.
type UpstreamError struct {
	StatusCode int
	Details    any
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

type openAIProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewOpenAIProvider creates a provider speaking the common chat-completion
// wire format against baseURL (no trailing slash required).
func NewOpenAIProvider(baseURL, apiKey string) CompletionProvider {
	return &openAIProvider{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (p *openAIProvider) StreamCompletion(ctx context.Context, req *model.CompletionRequest) (<-chan model.StreamEvent, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Details: decodeErrorBody(bodyBytes)}
	}

	ch := make(chan model.StreamEvent)
	go p.pump(ctx, resp.Body, ch)
	return ch, nil
}

// pump reads the upstream SSE byte stream line by line and delivers events
// on ch. The scanner reassembles logical lines across arbitrary read
// boundaries, so chunking of the transport never splits a frame.
func (p *openAIProvider) pump(ctx context.Context, rc io.ReadCloser, ch chan<- model.StreamEvent) {
	defer close(ch)
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Blank lines are frame separators; anything without the data
		// prefix is an SSE comment or field we do not relay.
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")
		if payload == doneToken {
			p.deliver(ctx, ch, model.StreamEvent{Done: true})
			return
		}

		var chunk model.StreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// One malformed frame must not kill the stream.
			slog.Warn("Skipping malformed stream frame", "error", err)
			continue
		}

		if !p.deliver(ctx, ch, model.StreamEvent{Data: json.RawMessage(payload)}) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			slog.Debug("Upstream read stopped, client context cancelled")
			return
		}
		slog.Error("Upstream stream faulted mid-flight", "error", err)
		return
	}

	// Upstream closed without an explicit terminal token; the client must
	// still see exactly one end-of-stream frame.
	p.deliver(ctx, ch, model.StreamEvent{Done: true})
}

func (p *openAIProvider) deliver(ctx context.Context, ch chan<- model.StreamEvent, ev model.StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// decodeErrorBody parses an upstream error body as JSON when possible and
// falls back to the raw text, so the client always gets something useful.
func decodeErrorBody(body []byte) any {
	var details any
	if err := json.Unmarshal(body, &details); err != nil {
		return string(body)
	}
	return details
}
