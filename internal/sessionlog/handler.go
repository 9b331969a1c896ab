// Package sessionlog persists warnings and errors to a plain-text log file
// next to the preferences, alongside the normal console output.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"slices"
	"time"
)

// Entry is one captured record. Attribute keys are qualified with the groups
// they were logged under, e.g. "update.asset".
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Group   string
	Attrs   []slog.Attr
}

// Sink receives captured entries.
type Sink func(Entry)

// TeeHandler forwards every record to base and copies records at or above
// minLevel into a Sink.
type TeeHandler struct {
	base     slog.Handler
	sink     Sink
	minLevel slog.Level
	group    string
	attrs    []slog.Attr
}

// NewTeeHandler returns a TeeHandler. A nil sink only delegates.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, sink Sink) *TeeHandler {
	return &TeeHandler{base: base, sink: sink, minLevel: minLevel}
}

func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle passes record to base first. The sink still sees it when base fails.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)
	if h.sink == nil || record.Level < h.minLevel {
		return err
	}

	entry := Entry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		Group:   h.group,
		Attrs:   slices.Clip(h.attrs),
	}
	record.Attrs(func(a slog.Attr) bool {
		entry.Attrs = append(entry.Attrs, qualify(h.group, a))
		return true
	})
	h.deliver(entry)
	return err
}

func (h *TeeHandler) deliver(entry Entry) {
	defer func() {
		if r := recover(); r != nil {
			// stderr, not slog: logging here would re-enter this handler.
			fmt.Fprintf(os.Stderr, "[main-log] sink panicked: %v\n%s\n", r, debug.Stack())
		}
	}()
	h.sink(entry)
}

func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := h.clone()
	next.base = h.base.WithAttrs(attrs)
	for _, a := range attrs {
		next.attrs = append(next.attrs, qualify(h.group, a))
	}
	return next
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.base = h.base.WithGroup(name)
	next.group = qualifiedKey(h.group, name)
	return next
}

func (h *TeeHandler) clone() *TeeHandler {
	return &TeeHandler{
		base:     h.base,
		sink:     h.sink,
		minLevel: h.minLevel,
		group:    h.group,
		attrs:    slices.Clip(h.attrs),
	}
}

func qualify(group string, a slog.Attr) slog.Attr {
	return slog.Attr{Key: qualifiedKey(group, a.Key), Value: a.Value}
}

func qualifiedKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}
