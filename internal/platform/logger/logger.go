package logger

import (
	"log"
	"os"
)

// New returns a basic stdout logger; swap in structured logging when needed.
func New() *log.Logger {
	return log.New(os.Stdout, "", log.LstdFlags)
}

// Warn returns the sink for recoverable resolution failures. The engine
// reports these instead of failing the whole search, so they go to stderr
// where operators notice them.
func Warn() *log.Logger {
	return log.New(os.Stderr, "warn: ", log.LstdFlags)
}
