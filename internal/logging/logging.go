// Package logging builds the zerolog loggers shared by the server and CLI.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Field keys for session ids carried on contexts.
const (
	ChatSessionKey = "chat_session"
	ScanSessionKey = "scan_session"
)

// New returns a logger that writes JSON to the specified file.
// If file is empty, logs are written to stdout.
//
// The level parameter can be one of: debug, info, warn, error, fatal.
func New(level string, file string) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, closer, err
	}

	var writer io.Writer = os.Stdout
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create logs dir: %w", err)
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, err
		}
		closer = func() { _ = f.Close() }
		writer = f
	}

	l := zerolog.New(writer).
		Hook(ContextHook{}).
		With().
		Timestamp().
		Logger().
		Level(lvl)

	return l, closer, nil
}

// Pretty returns a human-readable console logger for the CLI.
func Pretty(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, err
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(cw).Hook(ContextHook{}).With().Timestamp().Logger().Level(lvl), nil
}

type fieldsKey struct{}

type field struct {
	key, value string
}

// WithField returns a context whose log events carry key=value. It is read
// by ContextHook for events created with Ctx(ctx).
func WithField(ctx context.Context, key, value string) context.Context {
	prev, _ := ctx.Value(fieldsKey{}).([]field)
	fields := make([]field, 0, len(prev)+1)
	fields = append(fields, prev...)
	fields = append(fields, field{key: key, value: value})
	return context.WithValue(ctx, fieldsKey{}, fields)
}

// ContextHook copies fields stored with WithField onto each event.
type ContextHook struct{}

// Run implements zerolog.Hook.
func (ContextHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}
	fields, _ := ctx.Value(fieldsKey{}).([]field)
	for _, f := range fields {
		e.Str(f.key, f.value)
	}
}
