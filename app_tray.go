package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image/png"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"ytm-desktop/internal/window"
	"ytm-desktop/internal/workerutil"
)

var trayReadyTimeout = 5 * time.Second

// trayMenu is the native tray surface.
type trayMenu interface {
	SetIcon(icon []byte)
	SetTooltip(tooltip string)
	AddItem(title string, tooltip string) <-chan struct{}
	AddSeparator()
}

type systrayMenu struct{}

func (systrayMenu) SetIcon(icon []byte)       { systray.SetIcon(icon) }
func (systrayMenu) SetTooltip(tooltip string) { systray.SetTooltip(tooltip) }
func (systrayMenu) AddSeparator()             { systray.AddSeparator() }

func (systrayMenu) AddItem(title string, tooltip string) <-chan struct{} {
	return systray.AddMenuItem(title, tooltip).ClickedCh
}

// Tray owns the notification-area icon and its menu.
type Tray struct {
	app  *App
	menu trayMenu

	ready      chan struct{}
	readyOnce  sync.Once
	createOnce sync.Once
}

// NewTray returns a tray bound to app. Nothing is shown until Create.
func NewTray(app *App) *Tray {
	return &Tray{
		app:   app,
		menu:  systrayMenu{},
		ready: make(chan struct{}),
	}
}

// onReady is the systray ready callback. It must not block.
func (t *Tray) onReady() {
	t.readyOnce.Do(func() { close(t.ready) })
}

func (t *Tray) onExit() {
	slog.Debug("[DEBUG-TRAY] tray exited")
}

type trayItems struct {
	show, check, info, quit <-chan struct{}
}

// Create shows the icon with its tooltip and menu. Later calls do nothing.
func (t *Tray) Create() {
	t.createOnce.Do(func() {
		timer := time.NewTimer(trayReadyTimeout)
		defer timer.Stop()
		select {
		case <-t.ready:
		case <-timer.C:
			slog.Warn("[tray] tray host not ready, continuing without tray icon")
			return
		}

		icon, err := trayIcon(hostGOOS, appIcon)
		if err != nil {
			slog.Warn("[tray] icon unavailable", "error", err)
		} else {
			t.menu.SetIcon(icon)
		}
		t.menu.SetTooltip(window.DefaultTitle)

		items := trayItems{
			show:  t.menu.AddItem("Show App", "Show the main window"),
			check: t.menu.AddItem("Check for Updates", "Check for a newer version"),
			info:  t.menu.AddItem("App Info", "Show component versions"),
		}
		t.menu.AddSeparator()
		items.quit = t.menu.AddItem("Quit", "Quit the application")

		workerutil.RunWithPanicRecovery(t.app.bgCtx, "tray-menu", &t.app.bgWG, func(ctx context.Context) {
			t.loop(ctx, items)
		}, workerutil.RecoveryOptions{
			IsShutdown: t.app.shuttingDown.Load,
		})
	})
}

func (t *Tray) loop(ctx context.Context, items trayItems) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-items.show:
			t.app.activate()
		case <-items.check:
			t.app.checkForUpdatesInteractive()
		case <-items.info:
			t.app.showAppInfo()
		case <-items.quit:
			t.app.quitApp()
			return
		}
	}
}

// trayIcon returns the icon bytes the platform tray expects. Windows needs
// an ICO container; the PNG is embedded in it unchanged.
func trayIcon(goos string, pngData []byte) ([]byte, error) {
	if len(pngData) == 0 {
		return nil, fmt.Errorf("empty icon")
	}
	if goos != "windows" {
		return pngData, nil
	}
	return pngToICO(pngData)
}

func pngToICO(pngData []byte) ([]byte, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("decode icon: %w", err)
	}
	if cfg.Width > 256 || cfg.Height > 256 {
		return nil, fmt.Errorf("icon %dx%d exceeds 256x256", cfg.Width, cfg.Height)
	}

	const headerSize = 6 + 16
	var buf bytes.Buffer
	buf.Grow(headerSize + len(pngData))
	// ICONDIR: reserved, type 1 (icon), one image.
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY: 0 encodes 256.
	buf.WriteByte(byte(cfg.Width % 256))
	buf.WriteByte(byte(cfg.Height % 256))
	buf.WriteByte(0) // palette
	buf.WriteByte(0)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))  // planes
	_ = binary.Write(&buf, binary.LittleEndian, uint16(32)) // bits per pixel
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(headerSize))
	buf.Write(pngData)
	return buf.Bytes(), nil
}
