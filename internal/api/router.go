package api

import (
	"net/http"

	// This blank import is required by swaggo to find the API definitions.
	_ "safehire/backend/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates and configures a new chi router with all the application's routes.
func NewRouter(chatHandler *ChatHandler) *chi.Mux {
	r := chi.NewRouter()

	// --- Global Middleware ---
	r.Use(middleware.RequestID) // Injects a unique request ID into the context.
	r.Use(middleware.RealIP)    // Sets the remote address to the real IP from proxy headers.
	r.Use(middleware.Logger)    // Logs the start and end of each request.
	r.Use(middleware.Recoverer) // Recovers from panics and returns a 500 error.

	// Serves the auto-generated Swagger UI for API documentation.
	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	// A simple health check endpoint for container orchestration probes.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// The chat relay holds a connection open for the whole completion, so it
	// must not sit behind a timeout middleware. It is mounted with HandleFunc
	// rather than Post so every method reaches the handler's own gate and
	// non-POST requests get the endpoint's structured 405 body.
	r.HandleFunc("/api/chat", chatHandler.HandleChatStream)

	return r
}
