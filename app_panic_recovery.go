package main

import (
	"log/slog"
	"runtime/debug"
)

func recoverBackgroundPanic(worker string, recovered any) bool {
	if recovered != nil {
		slog.Error("[DEBUG-PANIC] background goroutine recovered from panic",
			"worker", worker,
			"panic", recovered,
			"stack", string(debug.Stack()),
		)
		return true
	}
	return false
}

// goSafe runs fn on a tracked goroutine. A panic is logged and swallowed.
func (a *App) goSafe(worker string, fn func()) {
	a.bgWG.Go(func() {
		defer func() {
			recoverBackgroundPanic(worker, recover())
		}()
		fn()
	})
}
