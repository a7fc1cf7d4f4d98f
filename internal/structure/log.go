package structure

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Log is the append-only checkpoint file of accepted sections, one JSON
// object per line. It is the only durable state of a structuring run.
type Log struct {
	path   string
	Logger *slog.Logger
}

// OpenLog returns the log stored at path. The file is created on first append.
func OpenLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the file backing the log.
func (l *Log) Path() string { return l.path }

func (l *Log) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Exists reports whether the log file is present.
func (l *Log) Exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// LoadAll returns every record in append order. A missing file is an empty
// log. Lines that do not decode, such as a torn final line left by a crash,
// are skipped.
func (l *Log) LoadAll() ([]Section, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint log: %w", err)
	}
	defer f.Close()

	var out []Section
	r := bufio.NewReader(f)
	lineNo := 0
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				var s Section
				if jerr := json.Unmarshal([]byte(trimmed), &s); jerr != nil {
					l.logger().Warn("skipping unreadable checkpoint line", "path", l.path, "line", lineNo, "error", jerr)
				} else {
					out = append(out, s)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to read checkpoint log: %w", err)
		}
	}
	return out, nil
}

// Last returns the most recently appended record, or nil for an empty log.
func (l *Log) Last() (*Section, error) {
	all, err := l.LoadAll()
	if err != nil || len(all) == 0 {
		return nil, err
	}
	last := all[len(all)-1]
	return &last, nil
}

// Append durably writes records to the end of the log. The records are
// written in one call and flushed to stable storage before Append returns.
func (l *Log) Append(records []Section) error {
	if len(records) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	torn, err := l.endsMidLine()
	if err != nil {
		return err
	}
	if torn {
		buf.WriteByte('\n')
	}
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode checkpoint record: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint log: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("failed to append checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync checkpoint log: %w", err)
	}
	return f.Close()
}

// endsMidLine reports whether the file is non-empty and lacks a trailing
// newline.
func (l *Log) endsMidLine() (bool, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return false, err
	}
	if fi.Size() == 0 {
		return false, nil
	}
	b := make([]byte, 1)
	if _, err := f.ReadAt(b, fi.Size()-1); err != nil {
		return false, err
	}
	return b[0] != '\n', nil
}
