package testutil

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/ovr-platform/ovr-deploy/internal/logging"
)

// DiscardLogger drops everything
func DiscardLogger() *slog.Logger {
	return logging.New(io.Discard, slog.LevelDebug, false)
}

// BufferLogger captures log lines for assertions
func BufferLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return logging.New(buf, slog.LevelDebug, false), buf
}
