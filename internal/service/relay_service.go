package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	app_errors "safehire/backend/internal/errors"
	"safehire/backend/internal/llm"
	"safehire/backend/internal/model"
)

// Sampling parameters are fixed for every request; clients cannot tune them.
const (
	temperature = 0.7
	maxTokens   = 2000
)

// RelayService bridges one client chat request to one upstream streaming
// completion. It owns the policy prompt: the upstream conversation always
// starts with it, regardless of what the client sent.
type RelayService struct {
	provider     llm.CompletionProvider
	model        string
	systemPrompt string
	configured   bool
}

// NewRelayService constructs the service. configured reports whether the
// upstream API key was present; when false, Stream fails fast without a
// network call so the operator-facing error stays distinct from upstream
// faults.
func NewRelayService(provider llm.CompletionProvider, modelName, systemPrompt string, configured bool) *RelayService {
	return &RelayService{
		provider:     provider,
		model:        modelName,
		systemPrompt: systemPrompt,
		configured:   configured,
	}
}

// Stream opens the upstream completion stream for the given conversation.
// The returned channel carries the token stream; a nil channel with a non-nil
// error means nothing was sent upstream (misconfiguration) or the upstream
// rejected the request (*llm.UpstreamError).
func (s *RelayService) Stream(ctx context.Context, messages []model.ChatMessage) (<-chan model.StreamEvent, error) {
	if !s.configured {
		return nil, fmt.Errorf("%w: upstream API key missing", app_errors.ErrNotConfigured)
	}

	streamID := uuid.NewString()
	slog.Info("Opening upstream completion stream", "stream_id", streamID, "messages", len(messages))

	req := &model.CompletionRequest{
		Model:       s.model,
		Messages:    append([]model.ChatMessage{{Role: "system", Content: s.systemPrompt}}, messages...),
		Stream:      true,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	ch, err := s.provider.StreamCompletion(ctx, req)
	if err != nil {
		slog.Warn("Upstream call failed", "stream_id", streamID, "error", err)
		return nil, err
	}
	return ch, nil
}
