package event

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/osse101/WorldEvents_Go/internal/logger"
)

// DeadLetterSchemaVersion tags each line of the dead-letter log.
const DeadLetterSchemaVersion = "1.0"

// DeadLetterEntry is one notification that could not be delivered.
type DeadLetterEntry struct {
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	Event         Event     `json:"event"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"last_error,omitempty"`
}

// DeadLetterWriter appends entries to a JSON-lines file.
type DeadLetterWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewDeadLetterWriter opens path for appending, creating parent directories.
func NewDeadLetterWriter(path string) (*DeadLetterWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), DeadLetterDirPermissions); err != nil {
		return nil, fmt.Errorf("create dead-letter directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, DeadLetterFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("open dead-letter file: %w", err)
	}
	return &DeadLetterWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// Write records an event that exhausted its attempts.
func (w *DeadLetterWriter) Write(e Event, attempts int, cause error) error {
	entry := DeadLetterEntry{
		SchemaVersion: DeadLetterSchemaVersion,
		Event:         e,
		Attempts:      attempts,
	}
	if cause != nil {
		entry.LastError = cause.Error()
	}

	logger.Warn(LogMsgEventDeadLettered,
		"event_type", e.Type,
		logger.AttrKeyZone, e.Metadata.Zone.String(),
		"attempts", attempts,
		"error", entry.LastError)

	w.mu.Lock()
	defer w.mu.Unlock()
	entry.Timestamp = time.Now().UTC()
	return w.enc.Encode(entry)
}

// Close closes the underlying file.
func (w *DeadLetterWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// ReadDeadLetters decodes every entry in a dead-letter log. Blank lines are
// skipped; a malformed line fails with its line number.
func ReadDeadLetters(r io.Reader) ([]DeadLetterEntry, error) {
	var entries []DeadLetterEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), DeadLetterMaxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e DeadLetterEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return entries, fmt.Errorf("dead-letter line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// DeadLetterCount is the number of dead-lettered notifications of one type.
type DeadLetterCount struct {
	Type   Type
	Count  int
	Latest time.Time
}

// SummarizeDeadLetters groups entries by notification type, most frequent first.
func SummarizeDeadLetters(entries []DeadLetterEntry) []DeadLetterCount {
	byType := make(map[Type]*DeadLetterCount)
	for _, e := range entries {
		c, ok := byType[e.Event.Type]
		if !ok {
			c = &DeadLetterCount{Type: e.Event.Type}
			byType[e.Event.Type] = c
		}
		c.Count++
		if e.Timestamp.After(c.Latest) {
			c.Latest = e.Timestamp
		}
	}

	out := make([]DeadLetterCount, 0, len(byType))
	for _, c := range byType {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}
