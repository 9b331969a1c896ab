package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	renameRetryBaseDelay = 10 * time.Millisecond

	zoomLevelKey = "zoomLevel"
)

// Preferences is the persisted user preference record. ZoomLevel is nil when
// no override was ever saved. Keys other than zoomLevel are carried through
// load/save untouched.
type Preferences struct {
	ZoomLevel *float64

	extra map[string]json.RawMessage
}

// UnmarshalJSON accepts any JSON object. A zoomLevel that is not a number is
// treated as absent but preserved until the next zoom change overwrites it.
func (p *Preferences) UnmarshalJSON(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	out := Preferences{}
	if zoomRaw, ok := fields[zoomLevelKey]; ok {
		var level float64
		if err := json.Unmarshal(zoomRaw, &level); err == nil {
			out.ZoomLevel = &level
			delete(fields, zoomLevelKey)
		} else {
			slog.Debug("[config] ignoring non-numeric zoomLevel", "raw", string(zoomRaw))
		}
	}
	if len(fields) > 0 {
		out.extra = fields
	}
	*p = out
	return nil
}

// MarshalJSON writes zoomLevel together with every preserved unknown key.
func (p Preferences) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(p.extra)+1)
	maps.Copy(fields, p.extra)
	if p.ZoomLevel != nil {
		raw, err := json.Marshal(*p.ZoomLevel)
		if err != nil {
			return nil, err
		}
		fields[zoomLevelKey] = raw
	}
	return json.Marshal(fields)
}

// WithZoomLevel returns a copy of p with ZoomLevel set to level.
func (p Preferences) WithZoomLevel(level float64) Preferences {
	out := p
	out.ZoomLevel = &level
	if p.extra != nil {
		out.extra = maps.Clone(p.extra)
	}
	return out
}

// Store reads and writes the preferences file. It is used from the main
// control flow only; concurrent writers are not coordinated.
type Store struct {
	path string
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored preferences. Missing, unreadable or malformed files
// yield an empty record; the failure is logged, never returned.
func (s *Store) Load() Preferences {
	prefs, err := s.read()
	if err != nil {
		slog.Warn("[config] failed to load preferences, using empty record", "path", s.path, "error", err)
		return Preferences{}
	}
	return prefs
}

// Save overwrites the file with prefs as indented JSON. Errors are logged.
func (s *Store) Save(prefs Preferences) {
	if err := s.write(prefs); err != nil {
		slog.Warn("[config] failed to save preferences", "path", s.path, "error", err)
		return
	}
	slog.Debug("[DEBUG-CONFIG] preferences saved", "path", s.path)
}

// SaveZoomLevel performs the read-modify-write of the whole record with a
// new zoom level.
func (s *Store) SaveZoomLevel(level float64) {
	s.Save(s.Load().WithZoomLevel(level))
}

func (s *Store) read() (Preferences, error) {
	if s.path == "" {
		return Preferences{}, errors.New("config path required")
	}
	raw, err := readLimitedFile(s.path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Preferences{}, nil
		}
		return Preferences{}, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Preferences{}, nil
	}
	var prefs Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return Preferences{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return prefs, nil
}

func (s *Store) write(prefs Preferences) error {
	if s.path == "" {
		return errors.New("config path required")
	}
	raw, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("save config: marshal: %w", err)
	}
	return atomicWrite(s.path, raw)
}

// atomicWrite writes data using temp-file + rename and retries the rename on
// Windows to tolerate transient file locks.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config.json.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[config] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[config] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
