package main

import (
	"context"
	"fmt"
	"log/slog"
	goruntime "runtime"
	"runtime/debug"
	"strings"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"ytm-desktop/internal/window"
)

const (
	appInfoTitle   = "App Info"
	appInfoMessage = "App Versions"
	wailsModule    = "github.com/wailsapp/wails/v2"

	updateFailedTitle = "Update Failed"
)

var readBuildInfoFn = debug.ReadBuildInfo

// checkForUpdatesInteractive runs a user-requested check and always answers
// with a dialog.
func (a *App) checkForUpdatesInteractive() {
	ctx := a.runtimeContext()
	if ctx == nil {
		slog.Warn("[update] check requested before startup")
		return
	}
	if a.checker.CheckForUpdates(a.bgCtx) {
		a.promptUpdate(ctx, window.FromMenu)
		return
	}
	a.showMessage(ctx, runtime.InfoDialog, window.NoUpdateTitle, window.NoUpdateMessage)
}

// promptUpdate asks whether to install the available update and acts on
// the answer.
func (a *App) promptUpdate(ctx context.Context, origin window.PromptOrigin) {
	label, err := runtimeMessageDialogFn(ctx, runtime.MessageDialogOptions{
		Type:          runtime.QuestionDialog,
		Title:         window.UpdatePromptTitle,
		Message:       window.UpdatePromptMessage,
		Buttons:       window.UpdatePromptButtons,
		DefaultButton: window.ButtonUpdateNow,
		CancelButton:  window.ButtonLater,
	})
	if err != nil {
		runtimeLogger.Errorf(ctx, "[update] prompt failed: %v", err)
		return
	}

	choice := window.ResolveUpdateChoice(label, origin)
	slog.Info("[update] prompt answered", "button", label, "choice", choice.String())
	switch choice {
	case window.ChoiceInstall:
		if err := a.checker.QuitAndInstall(); err != nil {
			runtimeLogger.Errorf(ctx, "[update] install failed: %v", err)
			a.showMessage(ctx, runtime.ErrorDialog, updateFailedTitle, err.Error())
		}
	case window.ChoiceQuit:
		a.quitApp()
	}
}

func (a *App) showMessage(ctx context.Context, kind runtime.DialogType, title string, message string) {
	if _, err := runtimeMessageDialogFn(ctx, runtime.MessageDialogOptions{
		Type:    kind,
		Title:   title,
		Message: message,
	}); err != nil {
		runtimeLogger.Warningf(ctx, "[window] dialog %q failed: %v", title, err)
	}
}

func (a *App) showAppInfo() {
	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}
	detail := appInfoDetail(runtimeEnvironmentFn(ctx), a.checker.CurrentVersion())
	a.showMessage(ctx, runtime.InfoDialog, appInfoTitle, appInfoMessage+"\n\n"+detail)
}

// appInfoDetail lists the component versions, one "name: version" per line.
func appInfoDetail(env runtime.EnvironmentInfo, appVersion string) string {
	lines := []string{
		"app: " + appVersion,
		"go: " + goruntime.Version(),
		"wails: " + wailsVersion(),
		fmt.Sprintf("platform: %s/%s", env.Platform, env.Arch),
	}
	if env.BuildType != "" {
		lines = append(lines, "build: "+env.BuildType)
	}
	return strings.Join(lines, "\n")
}

func wailsVersion() string {
	info, ok := readBuildInfoFn()
	if !ok || info == nil {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path != wailsModule {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return "unknown"
}
