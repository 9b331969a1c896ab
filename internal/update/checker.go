// Package update decides whether a newer build is available and hands the
// install step to an external update service.
package update

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// ErrNoAsset is returned when a release has no artifact for this platform.
var ErrNoAsset = errors.New("release has no asset for this platform")

// Info describes the release the service considers current.
type Info struct {
	Version string
}

// Result is what one Check of the service reports.
// Downloading is true when a download of the update was already started.
type Result struct {
	Info        Info
	Downloading bool
}

// Service is the external update service.
type Service interface {
	Check(ctx context.Context) (Result, error)
	QuitAndInstall() error
}

// Checker applies the availability rule on top of a Service.
type Checker struct {
	service Service
	current string
}

// NewChecker returns a Checker for the running version current.
func NewChecker(service Service, current string) *Checker {
	return &Checker{service: service, current: current}
}

// CurrentVersion returns the running version.
func (c *Checker) CurrentVersion() string {
	return c.current
}

// CheckForUpdates reports true only when the service names a version other
// than the running one and no download is under way. Errors are logged and
// reported as false.
func (c *Checker) CheckForUpdates(ctx context.Context) bool {
	if c == nil || c.service == nil {
		slog.Debug("[update] no update service configured")
		return false
	}
	result, err := c.service.Check(ctx)
	if err != nil {
		slog.Error("[update] error checking for updates", "error", err)
		return false
	}
	latest := strings.TrimSpace(result.Info.Version)
	if latest == "" {
		slog.Debug("[update] service reported no version")
		return false
	}
	available := normalizeVersion(latest) != normalizeVersion(c.current)
	slog.Info("[update] check finished",
		"current", c.current,
		"latest", latest,
		"available", available,
		"downloading", result.Downloading,
	)
	return available && !result.Downloading
}

// QuitAndInstall delegates to the service. On success the process does not
// return from this call.
func (c *Checker) QuitAndInstall() error {
	if c == nil || c.service == nil {
		return errors.New("no update service configured")
	}
	return c.service.QuitAndInstall()
}

// normalizeVersion strips the conventional "v" tag prefix so that release
// tag "v1.2.3" matches build version "1.2.3".
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 1 && (v[0] == 'v' || v[0] == 'V') && v[1] >= '0' && v[1] <= '9' {
		return v[1:]
	}
	return v
}
