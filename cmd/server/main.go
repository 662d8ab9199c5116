package main

import (
	"os"

	"safehire/backend/internal/app"
)

// @title           SafeHire Backend API
// @version         1.0
// @description     Anti-recruitment-fraud education backend. Relays chat conversations to an AI provider and streams the answer back over Server-Sent Events.

// @host      localhost:8000
// @BasePath  /
func main() {
	os.Exit(app.Run())
}
