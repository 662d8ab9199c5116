package model

import "encoding/json"

// ChatMessage is one turn of a conversation, oldest first.
// Roles are relayed as-is; the backend only cares about structural shape.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body the frontend posts to /api/chat.
// Messages must be present and be an array; an empty array is valid.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// CompletionRequest is the body sent to the upstream provider.
type CompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// Delta is the incremental fragment carried by one stream chunk.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// Choice is a single completion choice inside a stream chunk.
type Choice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason,omitempty"`
}

// StreamChunk is the decoded payload of one upstream SSE data frame,
// following the common chat-completion wire format.
type StreamChunk struct {
	ID      string   `json:"id,omitempty"`
	Object  string   `json:"object,omitempty"`
	Created int64    `json:"created,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
}

// StreamEvent is one event on the relay's internal stream channel.
// Data holds the original upstream payload bytes so re-emission is lossless.
// Done marks the terminal event; no further events follow it.
type StreamEvent struct {
	Data json.RawMessage
	Done bool
}
