package main

import (
	"embed"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/getlantern/systray"
	"github.com/urfave/cli/v2"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"

	"ytm-desktop/internal/config"
	"ytm-desktop/internal/update"
	"ytm-desktop/internal/window"
)

//go:embed all:frontend/dist
var assets embed.FS

//go:embed frontend/dist/icon.png
var appIcon []byte

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "0.0.0-dev"

// launchOptions are read once at startup and never change.
type launchOptions struct {
	StartMinimized bool
	Debug          bool
	ConfigDir      string
	// Relaunched is set on the process started by an update install.
	Relaunched     bool
}

func main() {
	if err := newCLIApp(runApp).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLIApp(run func(launchOptions) error) *cli.App {
	app := cli.NewApp()
	app.Name = "ytm-desktop"
	app.Usage = "YouTube Music desktop shell"
	app.Version = version
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "start-minimized",
			Usage: "minimize the window instead of showing it after each load (env: any non-empty START_MINIMIZED)",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging (env: DEBUG_PROD=true)",
		},
		&cli.BoolFlag{
			Name:   strings.TrimPrefix(update.RelaunchFlag, "--"),
			Hidden: true,
		},
		&cli.StringFlag{
			Name:    "config-dir",
			Usage:   "directory holding config.json and logs",
			EnvVars: []string{"YTM_DESKTOP_CONFIG_DIR"},
		},
	}
	app.Action = func(c *cli.Context) error {
		return run(launchOptionsFromCLI(c))
	}
	return app
}

// launchOptionsFromCLI merges flags with the environment. START_MINIMIZED and
// DEBUG_PROD are read here rather than bound to the bool flags: any
// non-empty START_MINIMIZED enables it and only the exact value "true"
// enables DEBUG_PROD, where cli would reject values like "yes".
func launchOptionsFromCLI(c *cli.Context) launchOptions {
	debug := c.Bool("debug") ||
		os.Getenv("DEBUG_PROD") == "true" ||
		strings.EqualFold(os.Getenv("NODE_ENV"), "development")
	return launchOptions{
		StartMinimized: c.Bool("start-minimized") || os.Getenv("START_MINIMIZED") != "",
		Debug:          debug,
		ConfigDir:      resolveConfigDir(c.String("config-dir")),
		Relaunched:     c.Bool(strings.TrimPrefix(update.RelaunchFlag, "--")),
	}
}

func resolveConfigDir(override string) string {
	if dir := strings.TrimSpace(override); dir != "" {
		return dir
	}
	return config.DefaultDir()
}

func runApp(opts launchOptions) error {
	closeLog := setupLogging(opts)
	defer closeLog()
	for _, message := range config.ConsumeDefaultDirWarnings() {
		slog.Warn("[config] " + message)
	}

	// Single-instance check before any webview initialization.
	lock, acquired := acquireInstanceLock(opts, os.Args[1:])
	if !acquired {
		return nil
	}
	if lock != nil {
		defer func() {
			if releaseErr := lock.Release(); releaseErr != nil {
				slog.Warn("[DEBUG-SINGLE] lock release failed", "error", releaseErr)
			}
		}()
	}

	app := NewApp(opts)

	// The tray shares the native main loop with the webview, so it is
	// registered before Wails takes over the main thread.
	systray.Register(app.tray.onReady, app.tray.onExit)

	err := wails.Run(newWailsOptions(app, opts))
	if err != nil {
		slog.Error("[DEBUG-SINGLE] wails run failed", "error", err)
		return err
	}
	return nil
}

func newWailsOptions(app *App, opts launchOptions) *options.App {
	logLevel := logger.INFO
	if opts.Debug {
		logLevel = logger.DEBUG
	}
	return &options.App{
		Title:       window.DefaultTitle,
		Width:       1280,
		Height:      800,
		StartHidden: true,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 3, G: 3, B: 3, A: 1},
		LogLevel:         logLevel,
		// The bridge posts events from the content page, which Wails rejects
		// unless its origin is listed next to the bundled assets.
		BindingsAllowedOrigins: contentOrigin(window.DefaultURL),
		OnStartup:              app.startup,
		OnDomReady:             app.domReady,
		OnBeforeClose:          app.beforeClose,
		OnShutdown:             app.shutdown,
		Linux: &linux.Options{
			Icon: appIcon,
		},
	}
}

// contentOrigin returns the scheme://host origin of rawURL, or "" when it has
// none.
func contentOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
