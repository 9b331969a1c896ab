package main

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"ytm-desktop/internal/window"
)

func TestCheckForUpdatesInteractiveUpToDate(t *testing.T) {
	rec := installRuntimeRecorder(t)
	app := newTestApp(t)
	app.setRuntimeContext(context.Background())

	app.checkForUpdatesInteractive()

	dialogs := rec.Dialogs()
	if len(dialogs) != 1 {
		t.Fatalf("dialogs = %v, want one", dialogs)
	}
	if dialogs[0].Title != window.NoUpdateTitle || dialogs[0].Message != window.NoUpdateMessage {
		t.Fatalf("dialog = %+v, want the latest-version message", dialogs[0])
	}
	if dialogs[0].Type != runtime.InfoDialog {
		t.Fatalf("dialog type = %v, want info", dialogs[0].Type)
	}
}

func TestCheckForUpdatesInteractiveCheckError(t *testing.T) {
	rec := installRuntimeRecorder(t)
	app := newTestAppWith(t, launchOptions{}, &fakeUpdateService{checkErr: errors.New("offline")})
	app.setRuntimeContext(context.Background())

	app.checkForUpdatesInteractive()

	dialogs := rec.Dialogs()
	if len(dialogs) != 1 || dialogs[0].Title != window.NoUpdateTitle {
		t.Fatalf("dialogs = %v, want the latest-version message on error", dialogs)
	}
}

func TestPromptUpdateChoices(t *testing.T) {
	tests := []struct {
		name         string
		answer       string
		origin       window.PromptOrigin
		wantInstalls int
		wantQuit     bool
	}{
		{name: "update now installs", answer: window.ButtonUpdateNow, origin: window.FromMenu, wantInstalls: 1},
		{name: "later does nothing", answer: window.ButtonLater, origin: window.FromStartup},
		{name: "close from menu does nothing", answer: window.ButtonClose, origin: window.FromMenu},
		{name: "close at startup quits", answer: window.ButtonClose, origin: window.FromStartup, wantQuit: true},
		{name: "platform yes installs", answer: "Yes", origin: window.FromStartup, wantInstalls: 1},
		{name: "dismissed does nothing", answer: "", origin: window.FromStartup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := installRuntimeRecorder(t)
			rec.answers = []string{tt.answer}
			service := &fakeUpdateService{version: "2.0.0"}
			app := newTestAppWith(t, launchOptions{}, service)
			app.setRuntimeContext(context.Background())

			app.promptUpdate(context.Background(), tt.origin)

			if got := service.Installs(); got != tt.wantInstalls {
				t.Fatalf("installs = %d, want %d", got, tt.wantInstalls)
			}
			if got := rec.count("quit") == 1; got != tt.wantQuit {
				t.Fatalf("quit called = %v, want %v", got, tt.wantQuit)
			}
			dialog := rec.Dialogs()[0]
			if dialog.Type != runtime.QuestionDialog || dialog.DefaultButton != window.ButtonUpdateNow {
				t.Fatalf("dialog = %+v", dialog)
			}
		})
	}
}

func TestPromptUpdateInstallFailureIsReported(t *testing.T) {
	rec := installRuntimeRecorder(t)
	rec.answers = []string{window.ButtonUpdateNow}
	service := &fakeUpdateService{version: "2.0.0", installErr: errors.New("no asset")}
	app := newTestAppWith(t, launchOptions{}, service)

	app.promptUpdate(context.Background(), window.FromMenu)

	dialogs := rec.Dialogs()
	if len(dialogs) != 2 || dialogs[1].Title != updateFailedTitle || dialogs[1].Message != "no asset" {
		t.Fatalf("dialogs = %+v, want a failure message", dialogs)
	}
	if !strings.Contains(strings.Join(rec.Errors(), "\n"), "no asset") {
		t.Fatalf("error logs = %v, want install failure", rec.Errors())
	}
}

func TestPromptUpdateDialogError(t *testing.T) {
	rec := installRuntimeRecorder(t)
	rec.dialogErr = errors.New("no display")
	service := &fakeUpdateService{version: "2.0.0"}
	app := newTestAppWith(t, launchOptions{}, service)

	app.promptUpdate(context.Background(), window.FromStartup)

	if service.Installs() != 0 || rec.count("quit") != 0 {
		t.Fatal("a failed dialog must not act")
	}
}

func TestAppInfoDetail(t *testing.T) {
	orig := readBuildInfoFn
	t.Cleanup(func() { readBuildInfoFn = orig })
	readBuildInfoFn = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Deps: []*debug.Module{
			{Path: "github.com/google/uuid", Version: "v1.6.0"},
			{Path: wailsModule, Version: "v2.12.0"},
		}}, true
	}

	got := appInfoDetail(runtime.EnvironmentInfo{Platform: "windows", Arch: "arm64"}, "3.1.0")

	for _, want := range []string{"app: 3.1.0", "wails: v2.12.0", "platform: windows/arm64", "go: go"} {
		if !strings.Contains(got, want) {
			t.Fatalf("appInfoDetail() = %q, want %q", got, want)
		}
	}
	if strings.Contains(got, "build:") {
		t.Fatalf("appInfoDetail() = %q, build line only when known", got)
	}
}

func TestWailsVersion(t *testing.T) {
	orig := readBuildInfoFn
	t.Cleanup(func() { readBuildInfoFn = orig })

	tests := []struct {
		name string
		info *debug.BuildInfo
		ok   bool
		want string
	}{
		{name: "no build info", ok: false, want: "unknown"},
		{name: "module absent", info: &debug.BuildInfo{}, ok: true, want: "unknown"},
		{
			name: "replaced module",
			info: &debug.BuildInfo{Deps: []*debug.Module{{
				Path: wailsModule, Version: "v2.12.0", Replace: &debug.Module{Version: "v2.12.1-fork"},
			}}},
			ok:   true,
			want: "v2.12.1-fork",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readBuildInfoFn = func() (*debug.BuildInfo, bool) { return tt.info, tt.ok }
			if got := wailsVersion(); got != tt.want {
				t.Fatalf("wailsVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShowAppInfo(t *testing.T) {
	rec := installRuntimeRecorder(t)
	app := newTestApp(t)
	app.setRuntimeContext(context.Background())

	app.showAppInfo()

	dialogs := rec.Dialogs()
	if len(dialogs) != 1 || dialogs[0].Title != appInfoTitle {
		t.Fatalf("dialogs = %v, want App Info", dialogs)
	}
	if !strings.HasPrefix(dialogs[0].Message, appInfoMessage) || !strings.Contains(dialogs[0].Message, "app: "+testAppVersion) {
		t.Fatalf("message = %q", dialogs[0].Message)
	}
}
