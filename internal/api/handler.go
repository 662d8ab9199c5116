package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"safehire/backend/internal/interfaces"
	"safehire/backend/internal/model"
)

// doneFrame is the terminal SSE frame; the client stops reading after it.
var doneFrame = []byte("[DONE]")

// ChatHandler handles the chat relay endpoint.
type ChatHandler struct {
	service interfaces.RelayService
}

func NewChatHandler(svc interfaces.RelayService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// HandleChatStream godoc
// @Summary      Stream a chat completion
// @Description  Relays the conversation to the AI provider and streams the answer back as Server-Sent Events.
// @Tags         Chat
// @Accept       json
// @Produce      text/event-stream
// @Param        chatRequest  body      model.ChatRequest  true  "Conversation history, oldest first"
// @Success      200          {string}  string             "SSE stream of data frames terminated by data: [DONE]"
// @Failure      400          {object}  ErrorResponse
// @Failure      405          {object}  ErrorResponse
// @Failure      500          {object}  ErrorResponse
// @Router       /api/chat [post]
func (h *ChatHandler) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	// The handler owns the method gate so the contract holds regardless of
	// how the route is mounted.
	if r.Method != http.MethodPost {
		respondWithJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
		return
	}

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Messages == nil {
		// Absent, null or non-array messages are all client errors; no
		// upstream call is made.
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	events, err := h.service.Stream(r.Context(), req.Messages)
	if err != nil {
		respondWithError(w, err)
		return
	}

	// From here on the response is committed to SSE framing; any later
	// failure can only be logged and the stream closed.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for ev := range events {
		if r.Context().Err() != nil {
			slog.Info("Client disconnected mid-stream.")
			return
		}

		if ev.Done {
			if err := writeStreamFrame(w, doneFrame); err != nil {
				slog.Warn("Could not write terminal frame, client likely disconnected.", "error", err)
			}
			slog.Info("Finished streaming response.")
			return
		}

		if err := writeStreamFrame(w, ev.Data); err != nil {
			slog.Warn("Could not write to stream, client likely disconnected.", "error", err)
			return
		}
	}

	// The event channel closed without a terminal event: either the client
	// went away or the upstream faulted mid-flight. Headers are already
	// sent, so the close itself is the only signal the client gets.
	if r.Context().Err() != nil {
		slog.Info("Client disconnected mid-stream.")
		return
	}
	slog.Warn("Stream ended abruptly without a terminal event.")
}
