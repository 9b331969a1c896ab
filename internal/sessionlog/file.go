package sessionlog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const (
	// DirName is the log directory under the configuration directory.
	DirName = "logs"
	// FileName is the log file name.
	FileName = "main.log"

	// maxFileBytes triggers a rotation to main.old.log before the next write.
	maxFileBytes = 1 << 20 // 1MB
	timeLayout   = "2006-01-02 15:04:05.000"
)

// File appends formatted entries to a log file. Its Write method is a Sink.
type File struct {
	path string

	mu   sync.Mutex
	file *os.File
	size int64
}

// PathIn returns the log file path under configDir.
func PathIn(configDir string) string {
	return filepath.Join(configDir, DirName, FileName)
}

// OpenFile opens (creating if needed) the log file at path for appending.
func OpenFile(path string) (*File, error) {
	f := &File{path: path}
	if err := f.open(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the log file path.
func (f *File) Path() string {
	return f.path
}

// Write appends one entry. Failures go to stderr since the slog pipeline is
// the caller.
func (f *File) Write(entry Entry) {
	line := FormatEntry(entry)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return
	}
	if f.size+int64(len(line)) > maxFileBytes {
		if err := f.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "[main-log] rotate failed: %v\n", err)
			return
		}
	}
	n, err := f.file.WriteString(line)
	f.size += int64(n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[main-log] write failed: %v\n", err)
	}
}

// Close closes the file. Later writes are dropped.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// FormatEntry renders one log line, e.g.
// "[2024-05-01 10:00:00.000] [warn] (update) message key=value\n".
func FormatEntry(entry Entry) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(entry.Time.Format(timeLayout))
	b.WriteString("] [")
	b.WriteString(strings.ToLower(entry.Level.String()))
	b.WriteString("] ")
	if entry.Group != "" {
		b.WriteString("(")
		b.WriteString(entry.Group)
		b.WriteString(") ")
	}
	b.WriteString(strings.ReplaceAll(entry.Message, "\n", `\n`))
	for _, a := range entry.Attrs {
		writeAttr(&b, "", a)
	}
	b.WriteString("\n")
	return b.String()
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := qualifiedKey(prefix, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		for _, nested := range a.Value.Group() {
			writeAttr(b, key, nested)
		}
		return
	}
	b.WriteString(" ")
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(quoteIfNeeded(a.Value.String()))
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " =\"\n\t") {
		return strconv.Quote(s)
	}
	return s
}

func (f *File) open() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	f.file = file
	f.size = info.Size()
	return nil
}

// rotate moves the current file to main.old.log and reopens. Caller holds mu.
func (f *File) rotate() error {
	if err := f.file.Close(); err != nil {
		return err
	}
	f.file = nil
	old := strings.TrimSuffix(f.path, filepath.Ext(f.path)) + ".old" + filepath.Ext(f.path)
	if err := os.Rename(f.path, old); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return f.open()
}
