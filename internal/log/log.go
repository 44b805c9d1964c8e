package log

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Thin facade over zerolog so call sites stay flat key-value pairs.
// The whole application logs through this package; the backing logger
// is configured once from main via SetLevel/SetPretty.

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// SetLevel adjusts the minimum level. Accepted values: "debug", "info",
// "error". Unknown values keep the current level.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(level) {
	case "debug":
		logger = logger.Level(zerolog.DebugLevel)
	case "info":
		logger = logger.Level(zerolog.InfoLevel)
	case "error":
		logger = logger.Level(zerolog.ErrorLevel)
	}
}

// SetPretty switches to the human-readable console writer. Intended for
// interactive runs; the default JSON output is for service logs.
func SetPretty() {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func Debug(msg string, kv ...any) {
	mu.RLock()
	ev := logger.Debug()
	mu.RUnlock()
	emit(ev, msg, kv...)
}

func Info(msg string, kv ...any) {
	mu.RLock()
	ev := logger.Info()
	mu.RUnlock()
	emit(ev, msg, kv...)
}

// Error logs msg with the error attached as the "err" field.
func Error(msg string, err error, kv ...any) {
	mu.RLock()
	ev := logger.Error().Err(err)
	mu.RUnlock()
	emit(ev, msg, kv...)
}

func emit(ev *zerolog.Event, msg string, kv ...any) {
	// Expect kv as pairs: key, value, key, value, ...
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	// If odd number of args, last one is ignored.
	ev.Msg(msg)
}
