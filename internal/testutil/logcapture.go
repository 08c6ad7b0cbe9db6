package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// CapturedRecord is a log record reduced to what tests assert on.
type CapturedRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is a slog.Handler that keeps every record in memory.
//
// Use Logger() to obtain a *slog.Logger for code under test and Records()
// or Count() to assert on advisory warnings.
type LogCapture struct {
	mu      sync.Mutex
	records []CapturedRecord
	attrs   []slog.Attr
}

var _ slog.Handler = (*LogCapture)(nil)

// NewLogCapture creates an empty capture.
func NewLogCapture() *LogCapture {
	return &LogCapture{}
}

// Logger returns a logger writing into the capture.
func (c *LogCapture) Logger() *slog.Logger {
	return slog.New(c)
}

// Enabled accepts every level.
func (c *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

// Handle stores the record.
func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(c.attrs))
	for _, a := range c.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, CapturedRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	return nil
}

// WithAttrs returns a handler sharing this capture's storage.
// Groups are flattened; tests only assert on attribute keys.
func (c *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sharedCapture{root: c, attrs: attrs}
}

// WithGroup returns the capture itself.
func (c *LogCapture) WithGroup(string) slog.Handler { return c }

// Records returns a copy of everything captured so far.
func (c *LogCapture) Records() []CapturedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CapturedRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Count returns how many records at level carry message.
func (c *LogCapture) Count(level slog.Level, message string) int {
	n := 0
	for _, r := range c.Records() {
		if r.Level == level && r.Message == message {
			n++
		}
	}
	return n
}

// Warnings returns every Warn record.
func (c *LogCapture) Warnings() []CapturedRecord {
	var out []CapturedRecord
	for _, r := range c.Records() {
		if r.Level == slog.LevelWarn {
			out = append(out, r)
		}
	}
	return out
}

type sharedCapture struct {
	root  *LogCapture
	attrs []slog.Attr
}

func (s *sharedCapture) Enabled(ctx context.Context, l slog.Level) bool {
	return s.root.Enabled(ctx, l)
}

func (s *sharedCapture) Handle(ctx context.Context, r slog.Record) error {
	r = r.Clone()
	r.AddAttrs(s.attrs...)
	return s.root.Handle(ctx, r)
}

func (s *sharedCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr(nil), s.attrs...), attrs...)
	return &sharedCapture{root: s.root, attrs: merged}
}

func (s *sharedCapture) WithGroup(string) slog.Handler { return s }
