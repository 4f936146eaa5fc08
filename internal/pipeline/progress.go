package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ProgressCallback receives the progress of a scan session.
type ProgressCallback interface {
	// OnStart is called once the pages of all inputs are counted.
	OnStart(total int)

	// OnNote reports a step without page progress, e.g. rasterization.
	OnNote(note string)

	// OnProgress is called after each processed page.
	OnProgress(current, total int)

	// OnComplete is called before the report is written.
	OnComplete()

	// OnError is called when the session aborts.
	OnError(err error)
}

// NoOpProgressCallback implements ProgressCallback but does nothing.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(total int)             {}
func (NoOpProgressCallback) OnNote(note string)            {}
func (NoOpProgressCallback) OnProgress(current, total int) {}
func (NoOpProgressCallback) OnComplete()                   {}
func (NoOpProgressCallback) OnError(err error)             {}

type flusher interface{ Flush() error }

type syncer interface{ Sync() error }

// StatusProgress writes the line-oriented status channel read by the
// surrounding exam tooling:
//
//	ETA:?? sec (<n> pages)
//	ETA:?? sec (<note>)
//	ETA:<s> sec (<i>/<n>)
//	FAIL: <message>
//
// Every line is flushed when the writer supports it. ETA estimates are
// measured from the last note, which precedes page processing.
type StatusProgress struct {
	writer io.Writer
	now    func() time.Time
	mutex  sync.Mutex
	start  time.Time
	eta    int
}

// NewStatusProgress creates a status writer on w, or stderr when w is nil.
func NewStatusProgress(w io.Writer) *StatusProgress {
	if w == nil {
		w = os.Stderr
	}
	return &StatusProgress{writer: w, now: time.Now}
}

// WithClock replaces the time source.
func (s *StatusProgress) WithClock(now func() time.Time) *StatusProgress {
	s.now = now
	return s
}

func (s *StatusProgress) line(format string, args ...any) {
	_, _ = fmt.Fprintf(s.writer, format+"\n", args...)
	switch w := s.writer.(type) {
	case flusher:
		_ = w.Flush()
	case syncer:
		_ = w.Sync()
	}
}

func (s *StatusProgress) OnStart(total int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.line("ETA:?? sec (%d pages)", total)
}

func (s *StatusProgress) OnNote(note string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.start = s.now()
	s.line("ETA:?? sec (%s)", note)
}

func (s *StatusProgress) OnProgress(current, total int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	if s.start.IsZero() {
		s.start = now
	}
	s.eta = 0
	if current > 0 {
		elapsed := now.Sub(s.start).Seconds()
		s.eta = int(elapsed * (float64(total)/float64(current) - 1))
	}
	s.line("ETA:%d sec (%d/%d)", s.eta, current, total)
}

func (s *StatusProgress) OnComplete() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.line("ETA:%d sec (now writing OMR report)", s.eta)
}

func (s *StatusProgress) OnError(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.line("FAIL: %v", err)
}

// LogProgressCallback logs progress updates using slog.
type LogProgressCallback struct {
	ctx       context.Context
	logger    *slog.Logger
	level     slog.Level
	startTime time.Time
}

// NewLogProgressCallback creates a new log-based progress reporter. Records
// are logged with ctx; failures always log at error level.
func NewLogProgressCallback(ctx context.Context, logger *slog.Logger, level slog.Level) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{ctx: ctx, logger: logger, level: level}
}

func (l *LogProgressCallback) OnStart(total int) {
	l.startTime = time.Now()
	l.logger.Log(l.ctx, l.level, "Starting scan session", "pages", total)
}

func (l *LogProgressCallback) OnNote(note string) {
	l.logger.Log(l.ctx, l.level, "Session step", "note", note)
}

func (l *LogProgressCallback) OnProgress(current, total int) {
	l.logger.Log(l.ctx, l.level, "Page processed",
		"current", current,
		"total", total,
		"elapsed", time.Since(l.startTime).Round(time.Millisecond),
	)
}

func (l *LogProgressCallback) OnComplete() {
	l.logger.Log(l.ctx, l.level, "Pages completed", "elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnError(err error) {
	l.logger.Log(l.ctx, slog.LevelError, "Scan session failed", "error", err)
}

// MultiProgressCallback combines multiple progress callbacks.
type MultiProgressCallback struct {
	callbacks []ProgressCallback
}

// NewMultiProgressCallback creates a progress callback that reports to multiple callbacks.
func NewMultiProgressCallback(callbacks ...ProgressCallback) *MultiProgressCallback {
	return &MultiProgressCallback{callbacks: callbacks}
}

// Add adds another progress callback.
func (m *MultiProgressCallback) Add(callback ProgressCallback) {
	m.callbacks = append(m.callbacks, callback)
}

func (m *MultiProgressCallback) OnStart(total int) {
	for _, cb := range m.callbacks {
		cb.OnStart(total)
	}
}

func (m *MultiProgressCallback) OnNote(note string) {
	for _, cb := range m.callbacks {
		cb.OnNote(note)
	}
}

func (m *MultiProgressCallback) OnProgress(current, total int) {
	for _, cb := range m.callbacks {
		cb.OnProgress(current, total)
	}
}

func (m *MultiProgressCallback) OnComplete() {
	for _, cb := range m.callbacks {
		cb.OnComplete()
	}
}

func (m *MultiProgressCallback) OnError(err error) {
	for _, cb := range m.callbacks {
		cb.OnError(err)
	}
}
