package main

import (
	"log/slog"

	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
)

const (
	optionsMenuLabel = "Options"
	menuZoomStep     = 0.5
)

// buildOptionsMenu returns the application menu with the Options submenu.
// darwin also gets the standard app and edit menus.
func (a *App) buildOptionsMenu() *menu.Menu {
	appMenu := menu.NewMenu()
	if hostGOOS == "darwin" {
		appMenu.Append(menu.AppMenu())
	}

	options := appMenu.AddSubmenu(optionsMenuLabel)
	options.AddText("Check for Updates", nil, func(*menu.CallbackData) {
		a.goSafe("menu-check-updates", func() { a.checkForUpdatesInteractive() })
	})
	options.AddText("App Info", nil, func(*menu.CallbackData) {
		a.goSafe("menu-app-info", a.showAppInfo)
	})
	options.AddSeparator()
	options.AddText("Zoom In", keys.CmdOrCtrl("="), func(*menu.CallbackData) {
		a.menuZoom(menuZoomStep)
	})
	options.AddText("Zoom Out", keys.CmdOrCtrl("-"), func(*menu.CallbackData) {
		a.menuZoom(-menuZoomStep)
	})
	options.AddSeparator()
	options.AddText("Quit", nil, func(*menu.CallbackData) {
		a.quitApp()
	})

	if hostGOOS == "darwin" {
		appMenu.Append(menu.EditMenu())
	}
	return appMenu
}

func (a *App) menuZoom(delta float64) {
	if err := a.ChangeZoom(delta); err != nil {
		slog.Warn("[window] menu zoom ignored", "delta", delta, "error", err)
	}
}
