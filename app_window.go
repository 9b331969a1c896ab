package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"

	"ytm-desktop/internal/relay"
	"ytm-desktop/internal/window"
)

//go:embed frontend/bridge.js
var bridgeScript string

// zoomBase is the per-level scale factor of Chromium zoom levels.
const zoomBase = 1.2

var allowedExternalSchemes = map[string]struct{}{
	"http":   {},
	"https":  {},
	"mailto": {},
}

// dispatchWindowEvent feeds ev to the session and performs the resulting
// effects. An event that needs a missing window is an invariant violation.
func (a *App) dispatchWindowEvent(ctx context.Context, ev window.Event) {
	effects, err := a.session.Dispatch(ev)
	if errors.Is(err, window.ErrNoWindow) {
		panic(err)
	}
	if err != nil {
		runtimeLogger.Errorf(ctx, "[window] %v", err)
		return
	}
	a.applyEffects(ctx, effects)
}

func (a *App) applyEffects(ctx context.Context, effects []window.Effect) {
	for _, effect := range effects {
		slog.Debug("[DEBUG-WINDOW] apply effect", "effect", effect.String())
		if err := a.applyEffect(ctx, effect); err != nil {
			runtimeLogger.Warningf(ctx, "[window] %s failed: %v", effect, err)
		}
	}
}

func (a *App) applyEffect(ctx context.Context, effect window.Effect) error {
	switch effect.Kind {
	case window.EffectSizeToWorkArea:
		return sizeToWorkArea(ctx)
	case window.EffectInstallMenu:
		runtimeMenuSetApplicationMenuFn(ctx, a.buildOptionsMenu())
	case window.EffectLoadURL:
		script, err := navigateScript(effect.URL)
		if err != nil {
			return err
		}
		runtimeWindowExecJSFn(ctx, script)
	case window.EffectSetTitle:
		runtimeWindowSetTitleFn(ctx, effect.Title)
	case window.EffectSetZoom:
		runtimeWindowExecJSFn(ctx, zoomScript(effect.Zoom))
	case window.EffectPersistZoom:
		a.store.SaveZoomLevel(effect.Zoom)
	case window.EffectInjectBridge:
		runtimeWindowExecJSFn(ctx, bridgeScript)
	case window.EffectMinimize:
		runtimeWindowMinimiseFn(ctx)
	case window.EffectShow:
		runtimeWindowShowFn(ctx)
		runtimeWindowUnminimiseFn(ctx)
	case window.EffectFocus:
		runtimeWindowSetAlwaysOnTopFn(ctx, true)
		runtimeWindowSetAlwaysOnTopFn(ctx, false)
	case window.EffectOpenExternal:
		return openExternal(ctx, effect.URL)
	case window.EffectSignal:
		if effect.Target == window.ToContent {
			return relay.Send(contentEmitter(ctx), effect.Signal)
		}
		return a.relay.Dispatch(effect.Signal)
	case window.EffectPromptUpdate:
		a.goSafe("update-prompt", func() { a.promptUpdate(ctx, window.FromStartup) })
	case window.EffectRelease:
		runtimeWindowHideFn(ctx)
		if hostGOOS == "darwin" {
			// The process outlives the window here; reloading the bundled loader
			// unloads the content and stops playback.
			runtimeWindowReloadAppFn(ctx)
		}
	default:
		return fmt.Errorf("unhandled effect %s", effect.Kind)
	}
	return nil
}

// sizeToWorkArea sizes the window to the primary screen and centers it.
func sizeToWorkArea(ctx context.Context) error {
	screens, err := runtimeScreenGetAllFn(ctx)
	if err != nil {
		return fmt.Errorf("list screens: %w", err)
	}
	if len(screens) == 0 {
		return errors.New("no screens reported")
	}
	primary := screens[0]
	for _, screen := range screens {
		if screen.IsPrimary {
			primary = screen
			break
		}
	}
	if primary.Size.Width <= 0 || primary.Size.Height <= 0 {
		return fmt.Errorf("invalid screen size %dx%d", primary.Size.Width, primary.Size.Height)
	}
	runtimeWindowSetSizeFn(ctx, primary.Size.Width, primary.Size.Height)
	runtimeWindowCenterFn(ctx)
	return nil
}

// navigateScript asks the loader page to navigate, or replaces the location
// when the loader is gone.
func navigateScript(target string) (string, error) {
	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		return "", fmt.Errorf("refusing to load %q", target)
	}
	encoded, err := json.Marshal(parsed.String())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"window.__ytmLoader ? window.__ytmLoader.navigate(%s) : window.location.replace(%s);",
		encoded, encoded,
	), nil
}

// zoomScript applies zoom level to the document root. Level 0 restores the
// default scale.
func zoomScript(level float64) string {
	factor := math.Pow(zoomBase, level)
	if level == 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return `document.documentElement.style.zoom = "";`
	}
	return fmt.Sprintf(`document.documentElement.style.zoom = "%s";`, strconv.FormatFloat(factor, 'f', 4, 64))
}

// contentEmitter delivers a signal to the bridge script in the content page.
func contentEmitter(ctx context.Context) relay.Emitter {
	return func(name string, data ...any) {
		args := append([]any{name}, data...)
		payload, err := json.Marshal(args)
		if err != nil {
			slog.Warn("[relay] signal payload not encodable", "signal", name, "error", err)
			return
		}
		runtimeWindowExecJSFn(ctx, fmt.Sprintf(
			"window.__ytmBridge && window.__ytmBridge.receive.apply(null, %s);", payload,
		))
	}
}

// openExternal hands target to the default browser. Only web and mail links
// leave the app.
func openExternal(ctx context.Context, target string) error {
	parsed, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return fmt.Errorf("parse external url: %w", err)
	}
	if _, ok := allowedExternalSchemes[strings.ToLower(parsed.Scheme)]; !ok {
		return fmt.Errorf("refusing to open %q: scheme not allowed", target)
	}
	runtimeBrowserOpenURLFn(ctx, parsed.String())
	return nil
}

// HistoryBack handles navigate-back from content.
func (a *App) HistoryBack() error {
	ctx := a.runtimeContext()
	if ctx == nil {
		return errors.New("runtime context is not ready")
	}
	runtimeWindowExecJSFn(ctx, "window.history.back();")
	return nil
}

// HistoryForward handles navigate-forward from content.
func (a *App) HistoryForward() error {
	ctx := a.runtimeContext()
	if ctx == nil {
		return errors.New("runtime context is not ready")
	}
	runtimeWindowExecJSFn(ctx, "window.history.forward();")
	return nil
}

// ChangeZoom adjusts and persists the zoom level.
func (a *App) ChangeZoom(delta float64) error {
	ctx := a.runtimeContext()
	if ctx == nil {
		return errors.New("runtime context is not ready")
	}
	a.dispatchWindowEvent(ctx, window.ChangeZoom{Delta: delta})
	return nil
}
