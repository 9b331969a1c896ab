package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"ytm-desktop/internal/update"
)

// NOTE: tests in package main override package-level function variables
// (runtimeWindowShowFn, runtimeMessageDialogFn, etc.). Do not use t.Parallel().

type lifecycleTestLogger struct {
	warnf  func(context.Context, string, ...any)
	infof  func(context.Context, string, ...any)
	errorf func(context.Context, string, ...any)
}

func (l lifecycleTestLogger) Warningf(ctx context.Context, message string, args ...any) {
	if l.warnf != nil {
		l.warnf(ctx, message, args...)
	}
}

func (l lifecycleTestLogger) Infof(ctx context.Context, message string, args ...any) {
	if l.infof != nil {
		l.infof(ctx, message, args...)
	}
}

func (l lifecycleTestLogger) Errorf(ctx context.Context, message string, args ...any) {
	if l.errorf != nil {
		l.errorf(ctx, message, args...)
	}
}

// runtimeRecorder replaces every Wails runtime seam and records the calls.
type runtimeRecorder struct {
	mu        sync.Mutex
	calls     []string
	scripts   []string
	dialogs   []runtime.MessageDialogOptions
	handlers  map[string]func(...any)
	menu      *menu.Menu
	errorLogs []string
	warnings  []string

	// answers are returned by MessageDialog in order; "" once exhausted.
	answers   []string
	dialogErr error
	screens   []runtime.Screen
	env       runtime.EnvironmentInfo
}

func (r *runtimeRecorder) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *runtimeRecorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *runtimeRecorder) Scripts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.scripts...)
}

func (r *runtimeRecorder) Dialogs() []runtime.MessageDialogOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]runtime.MessageDialogOptions(nil), r.dialogs...)
}

func (r *runtimeRecorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errorLogs...)
}

func (r *runtimeRecorder) count(call string) int {
	n := 0
	for _, c := range r.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (r *runtimeRecorder) emit(t *testing.T, name string, data ...any) {
	t.Helper()
	r.handler(t, name)(data...)
}

func (r *runtimeRecorder) handler(t *testing.T, name string) func(...any) {
	t.Helper()
	r.mu.Lock()
	handler, ok := r.handlers[name]
	r.mu.Unlock()
	if !ok {
		t.Fatalf("no handler registered for %q", name)
	}
	return handler
}

func installRuntimeRecorder(t *testing.T) *runtimeRecorder {
	t.Helper()
	rec := &runtimeRecorder{handlers: map[string]func(...any){}}
	primary := runtime.Screen{IsPrimary: true}
	primary.Size.Width = 1920
	primary.Size.Height = 1080
	rec.screens = []runtime.Screen{primary}
	rec.env = runtime.EnvironmentInfo{BuildType: "production", Platform: "linux", Arch: "amd64"}

	origLogger := runtimeLogger
	origEventsOn := runtimeEventsOnFn
	origQuit := runtimeQuitFn
	origShow := runtimeWindowShowFn
	origHide := runtimeWindowHideFn
	origMinimise := runtimeWindowMinimiseFn
	origUnminimise := runtimeWindowUnminimiseFn
	origOnTop := runtimeWindowSetAlwaysOnTopFn
	origTitle := runtimeWindowSetTitleFn
	origSize := runtimeWindowSetSizeFn
	origCenter := runtimeWindowCenterFn
	origExecJS := runtimeWindowExecJSFn
	origReloadApp := runtimeWindowReloadAppFn
	origScreens := runtimeScreenGetAllFn
	origBrowser := runtimeBrowserOpenURLFn
	origDialog := runtimeMessageDialogFn
	origMenu := runtimeMenuSetApplicationMenuFn
	origEnv := runtimeEnvironmentFn
	origSystrayQuit := systrayQuitFn
	origGOOS := hostGOOS
	t.Cleanup(func() {
		runtimeLogger = origLogger
		runtimeEventsOnFn = origEventsOn
		runtimeQuitFn = origQuit
		runtimeWindowShowFn = origShow
		runtimeWindowHideFn = origHide
		runtimeWindowMinimiseFn = origMinimise
		runtimeWindowUnminimiseFn = origUnminimise
		runtimeWindowSetAlwaysOnTopFn = origOnTop
		runtimeWindowSetTitleFn = origTitle
		runtimeWindowSetSizeFn = origSize
		runtimeWindowCenterFn = origCenter
		runtimeWindowExecJSFn = origExecJS
		runtimeWindowReloadAppFn = origReloadApp
		runtimeScreenGetAllFn = origScreens
		runtimeBrowserOpenURLFn = origBrowser
		runtimeMessageDialogFn = origDialog
		runtimeMenuSetApplicationMenuFn = origMenu
		runtimeEnvironmentFn = origEnv
		systrayQuitFn = origSystrayQuit
		hostGOOS = origGOOS
	})

	runtimeLogger = lifecycleTestLogger{
		warnf: func(_ context.Context, message string, args ...any) {
			rec.mu.Lock()
			rec.warnings = append(rec.warnings, fmt.Sprintf(message, args...))
			rec.mu.Unlock()
		},
		errorf: func(_ context.Context, message string, args ...any) {
			rec.mu.Lock()
			rec.errorLogs = append(rec.errorLogs, fmt.Sprintf(message, args...))
			rec.mu.Unlock()
		},
	}
	runtimeEventsOnFn = func(_ context.Context, name string, callback func(optionalData ...any)) func() {
		rec.mu.Lock()
		rec.handlers[name] = callback
		rec.mu.Unlock()
		return func() {}
	}
	runtimeQuitFn = func(context.Context) { rec.record("quit") }
	runtimeWindowShowFn = func(context.Context) { rec.record("show") }
	runtimeWindowHideFn = func(context.Context) { rec.record("hide") }
	runtimeWindowMinimiseFn = func(context.Context) { rec.record("minimise") }
	runtimeWindowUnminimiseFn = func(context.Context) { rec.record("unminimise") }
	runtimeWindowSetAlwaysOnTopFn = func(_ context.Context, onTop bool) { rec.record("on-top:%t", onTop) }
	runtimeWindowSetTitleFn = func(_ context.Context, title string) { rec.record("title:%s", title) }
	runtimeWindowSetSizeFn = func(_ context.Context, w int, h int) { rec.record("size:%dx%d", w, h) }
	runtimeWindowCenterFn = func(context.Context) { rec.record("center") }
	runtimeWindowExecJSFn = func(_ context.Context, js string) {
		rec.mu.Lock()
		rec.scripts = append(rec.scripts, js)
		rec.mu.Unlock()
		rec.record("exec-js")
	}
	runtimeWindowReloadAppFn = func(context.Context) { rec.record("reload-app") }
	runtimeScreenGetAllFn = func(context.Context) ([]runtime.Screen, error) {
		return rec.screens, nil
	}
	runtimeBrowserOpenURLFn = func(_ context.Context, url string) { rec.record("browser:%s", url) }
	runtimeMessageDialogFn = func(_ context.Context, opts runtime.MessageDialogOptions) (string, error) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.dialogs = append(rec.dialogs, opts)
		rec.calls = append(rec.calls, "dialog:"+opts.Title)
		if rec.dialogErr != nil {
			return "", rec.dialogErr
		}
		if len(rec.answers) == 0 {
			return "", nil
		}
		answer := rec.answers[0]
		rec.answers = rec.answers[1:]
		return answer, nil
	}
	runtimeMenuSetApplicationMenuFn = func(_ context.Context, m *menu.Menu) {
		rec.mu.Lock()
		rec.menu = m
		rec.mu.Unlock()
		rec.record("menu")
	}
	runtimeEnvironmentFn = func(context.Context) runtime.EnvironmentInfo { return rec.env }
	systrayQuitFn = func() { rec.record("systray-quit") }
	hostGOOS = "linux"
	return rec
}

// fakeUpdateService is a scripted update.Service.
type fakeUpdateService struct {
	mu          sync.Mutex
	version     string
	downloading bool
	checkErr    error
	installErr  error
	checks      int
	installs    int
}

func (f *fakeUpdateService) Check(context.Context) (update.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.checkErr != nil {
		return update.Result{}, f.checkErr
	}
	return update.Result{Info: update.Info{Version: f.version}, Downloading: f.downloading}, nil
}

func (f *fakeUpdateService) QuitAndInstall() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installs++
	return f.installErr
}

func (f *fakeUpdateService) Installs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.installs
}

func (f *fakeUpdateService) Checks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks
}

const testAppVersion = "1.0.0"

// newTestApp returns an App writing into a temp config dir. Its update
// service reports the running version, i.e. no update.
func newTestApp(t *testing.T) *App {
	t.Helper()
	return newTestAppWith(t, launchOptions{}, &fakeUpdateService{version: testAppVersion})
}

func newTestAppWith(t *testing.T, opts launchOptions, service *fakeUpdateService) *App {
	t.Helper()
	if opts.ConfigDir == "" {
		opts.ConfigDir = t.TempDir()
	}
	app := NewApp(opts)
	app.checker = update.NewChecker(service, testAppVersion)
	app.tray.menu = &fakeTrayMenu{}
	t.Cleanup(func() {
		app.bgCancel()
		app.bgWG.Wait()
	})
	return app
}

// fakeTrayMenu records the tray surface and hands out click channels.
type fakeTrayMenu struct {
	mu      sync.Mutex
	icon    []byte
	tooltip string
	entries []string
	clicks  map[string]chan struct{}
}

func (m *fakeTrayMenu) SetIcon(icon []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.icon = icon
}

func (m *fakeTrayMenu) SetTooltip(tooltip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tooltip = tooltip
}

func (m *fakeTrayMenu) AddItem(title string, _ string) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clicks == nil {
		m.clicks = map[string]chan struct{}{}
	}
	ch := make(chan struct{})
	m.clicks[title] = ch
	m.entries = append(m.entries, title)
	return ch
}

func (m *fakeTrayMenu) AddSeparator() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, "---")
}

func (m *fakeTrayMenu) click(t *testing.T, title string) {
	t.Helper()
	m.mu.Lock()
	ch, ok := m.clicks[title]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("tray item %q not created", title)
	}
	ch <- struct{}{}
}

func (m *fakeTrayMenu) Entries() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.entries, "|")
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (r *runtimeRecorder) Menu() *menu.Menu {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.menu
}

func (r *runtimeRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.scripts = nil
	r.dialogs = nil
}
