package main

import (
	"context"
	"log/slog"

	"ytm-desktop/internal/window"
)

// Events raised by the injected bridge script and the loader page, in
// addition to the relay signals.
const (
	eventWindowSwipe         = "window:swipe"
	eventContentOpenExternal = "content:open-external"
	eventContentLoadFailed   = "content:load-failed"
)

func (a *App) subscribeContentEvents(ctx context.Context) {
	on := func(name string, callback func(optionalData ...any)) {
		runtimeEventsOnFn(ctx, name, callback)
	}
	a.relay.Subscribe(on)

	on(eventWindowSwipe, func(data ...any) {
		a.dispatchIfOpen(ctx, window.Swipe{Direction: window.Direction(firstString(data))})
	})
	on(eventContentOpenExternal, func(data ...any) {
		url := firstString(data)
		if url == "" {
			slog.Debug("[DEBUG-RELAY] open-external without url")
			return
		}
		a.dispatchIfOpen(ctx, window.NewWindowRequest{URL: url})
	})
	on(eventContentLoadFailed, func(data ...any) {
		ev := parseLoadFailed(data)
		runtimeLogger.Errorf(ctx, "Failed to load URL: %s with error: %s (%d)", ev.URL, ev.Description, ev.Code)
		a.dispatchIfOpen(ctx, ev)
	})
}

// dispatchIfOpen feeds events raised by the webview or the close hook. They
// arrive on their own goroutines and may race with the window being closed;
// those that find no window are dropped.
func (a *App) dispatchIfOpen(ctx context.Context, ev window.Event) {
	effects, open, err := a.session.DispatchIfOpen(ev)
	if !open && err == nil {
		slog.Debug("[DEBUG-RELAY] content event dropped without window", "event", ev.Name())
		return
	}
	if err != nil {
		runtimeLogger.Errorf(ctx, "[window] %v", err)
		return
	}
	a.applyEffects(ctx, effects)
}

func parseLoadFailed(data []any) window.LoadFailed {
	obj, ok := firstObject(data)
	if !ok {
		return window.LoadFailed{URL: firstString(data)}
	}
	return window.LoadFailed{
		URL:         toString(obj["url"]),
		Code:        toInt(obj["code"]),
		Description: toString(obj["description"]),
	}
}
