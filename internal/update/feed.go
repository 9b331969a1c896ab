package update

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// FeedFileName is the update feed descriptor shipped next to the executable.
const FeedFileName = "app-update.yml"

const (
	providerGitHub       = "github"
	defaultGitHubAPIBase = "https://api.github.com"
	maxFeedFileBytes     = 64 * 1024
)

//go:embed app-update.yml
var defaultFeedYAML []byte

var executablePathFn = os.Executable

// FeedConfig describes where releases are published.
type FeedConfig struct {
	Provider            string `yaml:"provider"`
	Owner               string `yaml:"owner"`
	Repo                string `yaml:"repo"`
	UpdaterCacheDirName string `yaml:"updaterCacheDirName"`
	// APIBaseURL overrides the GitHub API root (GitHub Enterprise, tests).
	APIBaseURL string `yaml:"apiBaseUrl,omitempty"`
}

// DefaultFeedConfig returns the feed compiled into the binary.
func DefaultFeedConfig() FeedConfig {
	cfg, err := ParseFeedConfig(defaultFeedYAML)
	if err != nil {
		// The embedded file is part of the build; a parse failure is a build defect.
		panic(fmt.Sprintf("embedded %s: %v", FeedFileName, err))
	}
	return cfg
}

// ParseFeedConfig decodes and validates an app-update.yml document.
func ParseFeedConfig(raw []byte) (FeedConfig, error) {
	var cfg FeedConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return FeedConfig{}, fmt.Errorf("parse %s: %w", FeedFileName, err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Owner = strings.TrimSpace(cfg.Owner)
	cfg.Repo = strings.TrimSpace(cfg.Repo)
	cfg.UpdaterCacheDirName = strings.TrimSpace(cfg.UpdaterCacheDirName)
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")

	if cfg.Provider == "" {
		cfg.Provider = providerGitHub
	}
	if cfg.Provider != providerGitHub {
		return FeedConfig{}, fmt.Errorf("%s: unsupported provider %q", FeedFileName, cfg.Provider)
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return FeedConfig{}, fmt.Errorf("%s: owner and repo are required", FeedFileName)
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultGitHubAPIBase
	}
	if cfg.UpdaterCacheDirName == "" {
		cfg.UpdaterCacheDirName = cfg.Repo + "-updater"
	}
	return cfg, nil
}

// LoadFeedConfig reads path. A missing file yields the embedded default.
func LoadFeedConfig(path string) (FeedConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("[update] feed file absent, using embedded default", "path", path)
			return DefaultFeedConfig(), nil
		}
		return FeedConfig{}, err
	}
	if len(raw) > maxFeedFileBytes {
		return FeedConfig{}, fmt.Errorf("%s exceeds %d bytes", path, maxFeedFileBytes)
	}
	return ParseFeedConfig(raw)
}

// FeedConfigPath returns the app-update.yml location next to the executable.
func FeedConfigPath() string {
	exe, err := executablePathFn()
	if err != nil {
		slog.Warn("[update] failed to resolve executable path", "error", err)
		return FeedFileName
	}
	return filepath.Join(filepath.Dir(exe), FeedFileName)
}
