package main

import (
	"context"
	"fmt"
	"log/slog"
	goruntime "runtime"
	"time"

	"github.com/getlantern/systray"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"ytm-desktop/internal/ipc"
	"ytm-desktop/internal/window"
)

type appRuntimeLogger interface {
	Warningf(context.Context, string, ...interface{})
	Infof(context.Context, string, ...interface{})
	Errorf(context.Context, string, ...interface{})
}

type wailsRuntimeLogger struct{}

func formatRuntimeLogMessage(message string, args ...interface{}) string {
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

func (wailsRuntimeLogger) Warningf(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Warn(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogWarningf(ctx, message, args...)
}

func (wailsRuntimeLogger) Infof(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Info(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogInfof(ctx, message, args...)
}

func (wailsRuntimeLogger) Errorf(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Error(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogErrorf(ctx, message, args...)
}

var (
	runtimeLogger                   appRuntimeLogger = wailsRuntimeLogger{}
	runtimeEventsOnFn                                = runtime.EventsOn
	runtimeQuitFn                                    = runtime.Quit
	runtimeWindowShowFn                              = runtime.WindowShow
	runtimeWindowHideFn                              = runtime.WindowHide
	runtimeWindowMinimiseFn                          = runtime.WindowMinimise
	runtimeWindowUnminimiseFn                        = runtime.WindowUnminimise
	runtimeWindowSetAlwaysOnTopFn                    = runtime.WindowSetAlwaysOnTop
	runtimeWindowSetTitleFn                          = runtime.WindowSetTitle
	runtimeWindowSetSizeFn                           = runtime.WindowSetSize
	runtimeWindowCenterFn                            = runtime.WindowCenter
	runtimeWindowExecJSFn                            = runtime.WindowExecJS
	runtimeWindowReloadAppFn                         = runtime.WindowReloadApp
	runtimeScreenGetAllFn                            = runtime.ScreenGetAll
	runtimeBrowserOpenURLFn                          = runtime.BrowserOpenURL
	runtimeMessageDialogFn                           = runtime.MessageDialog
	runtimeMenuSetApplicationMenuFn                  = runtime.MenuSetApplicationMenu
	runtimeEnvironmentFn                             = runtime.Environment
	newIPCServerFn                                   = func(endpoint string, executor ipc.Executor) ipcServer {
		return ipc.NewServer(endpoint, executor)
	}
	systrayQuitFn = systray.Quit
	hostGOOS      = goruntime.GOOS
)

const shutdownWaitTimeout = 5 * time.Second

type ipcServer interface {
	Start() error
	Stop() error
	Endpoint() string
}

func (a *App) startup(ctx context.Context) {
	setConsoleUTF8()
	a.setRuntimeContext(ctx)

	a.subscribeContentEvents(ctx)

	server := newIPCServerFn("", ipc.ExecutorFunc(a.executeIPC))
	if err := server.Start(); err != nil {
		runtimeLogger.Errorf(ctx, "[ipc] activation server failed: %v", err)
	} else {
		a.ipcServer = server
		runtimeLogger.Infof(ctx, "[ipc] activation server listening: %s", server.Endpoint())
	}
	runtimeLogger.Infof(ctx, "[config] preferences at %s", a.store.Path())
}

// domReady runs on every completed navigation. The first one is the bundled
// loader page and starts the bootstrap sequence; later ones while a window
// exists are content loads. The loader reloaded by a window release arrives
// without a window and is dropped.
func (a *App) domReady(ctx context.Context) {
	first := false
	a.bootstrapOnce.Do(func() {
		first = true
		a.goSafe("bootstrap", func() { a.bootstrap(ctx) })
	})
	if first {
		return
	}
	a.dispatchIfOpen(ctx, window.LoadFinished{SavedZoom: a.store.Load().ZoomLevel})
}

// bootstrap checks for updates once, opens the window and creates the tray.
// Activation requests are honored only afterwards.
func (a *App) bootstrap(ctx context.Context) {
	updateAvailable := a.checker.CheckForUpdates(ctx)
	a.dispatchWindowEvent(ctx, window.Open{UpdateAvailable: updateAvailable})
	a.tray.Create()
	a.bootstrapped.Store(true)
	runtimeLogger.Infof(ctx, "[window] bootstrap finished (update available: %t)", updateAvailable)
}

// activate re-opens a closed window, or shows and focuses the open one.
func (a *App) activate() {
	ctx := a.runtimeContext()
	if ctx == nil {
		slog.Warn("[window] activation dropped because runtime context is nil")
		return
	}
	a.dispatchWindowEvent(ctx, window.Open{UpdateAvailable: false})
}

func (a *App) executeIPC(req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandActivate:
		if !a.bootstrapped.Load() {
			return ipc.Response{OK: false, Error: "application is still starting"}
		}
		a.activate()
		return ipc.Response{OK: true}
	default:
		return ipc.Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Command)}
	}
}

// beforeClose handles the user closing the window. On darwin the process
// stays alive without windows; elsewhere closing the last window quits.
func (a *App) beforeClose(ctx context.Context) bool {
	if a.quitting.Load() {
		return false
	}
	a.dispatchIfOpen(ctx, window.WindowClosed{})
	if hostGOOS == "darwin" {
		return true
	}
	a.quitting.Store(true)
	return false
}

// quitApp exits the application from a menu, prompt or installer.
func (a *App) quitApp() {
	a.quitting.Store(true)
	ctx := a.runtimeContext()
	if ctx == nil {
		slog.Warn("[window] quit requested before startup")
		return
	}
	runtimeQuitFn(ctx)
}

func (a *App) shutdown(_ context.Context) {
	logCtx := a.runtimeContext()
	a.shuttingDown.Store(true)
	a.bgCancel()

	if a.ipcServer != nil {
		if err := a.ipcServer.Stop(); err != nil {
			runtimeLogger.Warningf(logCtx, "[ipc] activation server stop failed: %v", err)
		}
	}
	systrayQuitFn()
	if !waitWithTimeout(a.bgWG.Wait, shutdownWaitTimeout) {
		runtimeLogger.Warningf(logCtx, "timed out waiting for background workers during shutdown")
	}
	a.setRuntimeContext(nil)
}

func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	// The waiting goroutine may outlive timeout; this only runs at process exit.
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
