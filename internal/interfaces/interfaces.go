package interfaces

import (
	"context"

	"safehire/backend/internal/model"
)

// This file defines the interfaces for our core services.
// Depending on these interfaces, instead of concrete implementations, allows
// for decoupling (e.g., API layer from Service layer) and easier testing via
// mocking.

// RelayService defines the contract for bridging a client conversation to an
// upstream streaming completion.
type RelayService interface {
	Stream(ctx context.Context, messages []model.ChatMessage) (<-chan model.StreamEvent, error)
}
