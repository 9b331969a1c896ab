package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	// AppDirName is the per-user application data directory name.
	AppDirName = "ytm-desktop"
	// FileName is the preferences file inside the data directory.
	FileName = "config.json"
)

var userConfigDirFn = os.UserConfigDir
var userHomeDirFn = os.UserHomeDir

var defaultDirWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultDirWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultDirWarningState.mu.Lock()
	defaultDirWarningState.messages = append(defaultDirWarningState.messages, trimmed)
	defaultDirWarningState.mu.Unlock()
}

// ConsumeDefaultDirWarnings returns and clears warnings recorded while
// resolving the data directory.
func ConsumeDefaultDirWarnings() []string {
	defaultDirWarningState.mu.Lock()
	defer defaultDirWarningState.mu.Unlock()
	if len(defaultDirWarningState.messages) == 0 {
		return nil
	}
	out := make([]string, len(defaultDirWarningState.messages))
	copy(out, defaultDirWarningState.messages)
	defaultDirWarningState.messages = nil
	return out
}

// DefaultDir resolves the per-user data directory. LOCALAPPDATA and APPDATA
// win when set, then the platform config dir, then ~/.config. The temp dir is
// the last resort and is not a stable persistence location.
func DefaultDir() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		if dir, err := userConfigDirFn(); err == nil && strings.TrimSpace(dir) != "" {
			base = dir
		}
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[config] using temp dir as data dir fallback", "error", err)
			recordDefaultDirWarning(
				"Data directory fallback: failed to resolve the user config or home directory. Using temp directory; zoom level may not persist.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, AppDirName)
}

// DefaultPath returns the preferences file path inside DefaultDir.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), FileName)
}

// PathIn returns the preferences file path inside dir, or DefaultPath when
// dir is blank.
func PathIn(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return DefaultPath()
	}
	return filepath.Join(dir, FileName)
}
