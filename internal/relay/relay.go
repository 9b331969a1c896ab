// Package relay routes the named one-way signals exchanged between the
// displayed content and the shell.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
)

// Signal is the wire name of a relay signal.
type Signal string

const (
	// NavigateBack travels both ways: content asks the shell to go back, and
	// the shell tells content that a back action happened elsewhere.
	NavigateBack Signal = "navigate-back"
	// NavigateForward is sent by content only.
	NavigateForward Signal = "navigate-forward"
	// ResizeWindow carries a signed wheel delta; the shell zooms one step
	// against its sign.
	ResizeWindow Signal = "resize-window"
)

// WheelZoomStep is the zoom change applied per resize-window signal.
const WheelZoomStep = 0.1

// ErrUnknownSignal is returned for names outside the signal table.
var ErrUnknownSignal = errors.New("unknown signal")

// Shell is what content-originated signals act on.
type Shell interface {
	HistoryBack() error
	HistoryForward() error
	ChangeZoom(delta float64) error
}

// Handler handles one inbound signal with its optional payload.
type Handler func(payload []any) error

// Emitter delivers a signal to the content side.
type Emitter func(name string, data ...any)

// Relay holds the inbound dispatch table.
type Relay struct {
	handlers map[Signal]Handler
}

var outbound = map[Signal]struct{}{
	NavigateBack: {},
}

// New builds the dispatch table for shell.
func New(shell Shell) *Relay {
	return &Relay{
		handlers: map[Signal]Handler{
			NavigateBack: func([]any) error {
				return shell.HistoryBack()
			},
			NavigateForward: func([]any) error {
				return shell.HistoryForward()
			},
			ResizeWindow: func(payload []any) error {
				deltaY, err := ParseWheelDelta(payload)
				if err != nil {
					return err
				}
				return shell.ChangeZoom(WheelZoomDelta(deltaY))
			},
		},
	}
}

// Signals returns the inbound signal names in a stable order.
func (r *Relay) Signals() []Signal {
	out := make([]Signal, 0, len(r.handlers))
	for signal := range r.handlers {
		out = append(out, signal)
	}
	slices.Sort(out)
	return out
}

// Dispatch runs the handler registered for signal.
func (r *Relay) Dispatch(signal Signal, payload ...any) error {
	handler, ok := r.handlers[signal]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSignal, signal)
	}
	slog.Debug("[DEBUG-RELAY] inbound signal", "signal", signal, "payload", fmt.Sprintf("%v", payload))
	return handler(payload)
}

// Subscribe registers every inbound signal with on. Handler errors are logged.
func (r *Relay) Subscribe(on func(name string, callback func(optionalData ...any))) {
	for _, signal := range r.Signals() {
		on(string(signal), func(optionalData ...any) {
			if err := r.Dispatch(signal, optionalData...); err != nil {
				slog.Warn("[relay] signal handling failed", "signal", signal, "error", err)
			}
		})
	}
}

// Send delivers signal to content through emit. Only signals content
// listens for may be sent.
func Send(emit Emitter, signal Signal) error {
	if _, ok := outbound[signal]; !ok {
		return fmt.Errorf("%w: %q is not delivered to content", ErrUnknownSignal, signal)
	}
	if emit == nil {
		return errors.New("relay: no emitter")
	}
	emit(string(signal))
	return nil
}

// WheelZoomDelta maps a wheel deltaY to a zoom change: scrolling down
// (positive) zooms out, anything else zooms in, including a zero delta from
// a purely horizontal ctrl+wheel.
func WheelZoomDelta(deltaY float64) float64 {
	if deltaY > 0 {
		return -WheelZoomStep
	}
	return WheelZoomStep
}

// ParseWheelDelta extracts the numeric delta from a resize-window payload.
// Event payloads arrive JSON-decoded, so numbers are usually float64.
func ParseWheelDelta(payload []any) (float64, error) {
	if len(payload) == 0 {
		return 0, fmt.Errorf("%s: missing wheel delta", ResizeWindow)
	}
	switch v := payload[0].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid wheel delta %q: %w", ResizeWindow, v, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("%s: unsupported wheel delta type %T", ResizeWindow, payload[0])
	}
}
