package main

import (
	"log/slog"
	"os"

	"field_uploader/server"
)

func main() {
	if err := server.Run(); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
