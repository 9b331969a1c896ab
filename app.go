package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"ytm-desktop/internal/config"
	"ytm-desktop/internal/relay"
	"ytm-desktop/internal/update"
	"ytm-desktop/internal/window"
)

// App owns the window session and every service wired around it.
type App struct {
	// Runtime context lifecycle.
	ctx   context.Context
	ctxMu sync.RWMutex

	opts    launchOptions
	session *window.Session
	store   *config.Store
	checker *update.Checker
	relay   *relay.Relay
	tray    *Tray

	ipcServer ipcServer

	// bootstrapOnce guards the startup sequence, which runs on the first
	// dom-ready (the bundled loader page).
	bootstrapOnce sync.Once
	bootstrapped  atomic.Bool
	// quitting is set once a quit was requested so the close hook lets it through.
	quitting     atomic.Bool
	shuttingDown atomic.Bool

	// bgCtx is cancelled at shutdown; background workers watch it.
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// NewApp creates the application and its services.
func NewApp(opts launchOptions) *App {
	a := &App{
		opts: opts,
		session: window.NewSession(window.Options{
			URL:            window.DefaultURL,
			Title:          window.DefaultTitle,
			StartMinimized: opts.StartMinimized,
		}),
		store: config.NewStore(config.PathIn(opts.ConfigDir)),
	}
	a.bgCtx, a.bgCancel = context.WithCancel(context.Background())
	a.checker = update.NewChecker(newUpdateService(opts, a.quitApp), version)
	a.relay = relay.New(a)
	a.tray = NewTray(a)
	return a
}

func newUpdateService(opts launchOptions, quit func()) update.Service {
	feed, err := update.LoadFeedConfig(update.FeedConfigPath())
	if err != nil {
		slog.Warn("[update] invalid update feed config, using default", "error", err)
		feed = update.DefaultFeedConfig()
	}
	return update.NewGitHubService(feed, update.GitHubOptions{
		CacheDir: filepath.Join(opts.ConfigDir, feed.UpdaterCacheDirName),
		Quit:     quit,
	})
}

func (a *App) setRuntimeContext(ctx context.Context) {
	a.ctxMu.Lock()
	a.ctx = ctx
	a.ctxMu.Unlock()
}

func (a *App) runtimeContext() context.Context {
	a.ctxMu.RLock()
	defer a.ctxMu.RUnlock()
	return a.ctx
}
