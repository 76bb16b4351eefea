// Package logbook writes an append-only NDJSON copy of every tutoring
// interaction for offline analysis, one file per session and study phase.
package logbook

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ashureev/selfexplain/internal/domain"
)

// Config controls the interaction logbook.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Logger is an asynchronous NDJSON interaction logger. Log never blocks
// the tutoring path: when the queue is full the record is dropped and
// counted.
type Logger struct {
	cfg    Config
	slog   *slog.Logger
	queue  chan *domain.InteractionRecord
	done   chan struct{}
	closed sync.Once

	mu      sync.Mutex
	files   map[string]*os.File
	dropped int64
}

// New creates a logbook logger. When disabled, Log is a no-op and New
// returns a logger that never touches disk.
func New(cfg Config, logger *slog.Logger) (*Logger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{
		cfg:   cfg,
		slog:  logger,
		done:  make(chan struct{}),
		files: make(map[string]*os.File),
	}
	if !cfg.Enabled {
		close(l.done)
		return l, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create logbook directory: %w", err)
	}

	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	l.queue = make(chan *domain.InteractionRecord, size)
	go l.run()
	return l, nil
}

// Log enqueues one interaction record.
func (l *Logger) Log(rec *domain.InteractionRecord) {
	if !l.cfg.Enabled || rec == nil {
		return
	}
	select {
	case l.queue <- rec:
	default:
		l.mu.Lock()
		l.dropped++
		dropped := l.dropped
		l.mu.Unlock()
		l.slog.Warn("logbook queue full, dropping record", "session_id", rec.SessionID, "dropped_total", dropped)
	}
}

// Close drains the queue and closes all session files.
func (l *Logger) Close() error {
	if !l.cfg.Enabled {
		return nil
	}
	l.closed.Do(func() {
		close(l.queue)
		<-l.done
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = make(map[string]*os.File)
	return firstErr
}

func (l *Logger) run() {
	defer close(l.done)
	for rec := range l.queue {
		if err := l.write(rec); err != nil {
			l.slog.Error("logbook write failed", "session_id", rec.SessionID, "error", err)
		}
	}
}

func (l *Logger) write(rec *domain.InteractionRecord) error {
	f, err := l.file(rec.SessionID, rec.Trial)
	if err != nil {
		return err
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// file returns the open NDJSON file for a session and study phase,
// creating it on first use. Switching phases therefore starts a fresh
// log file. IDs come from our own generators, but sanitize anyway.
func (l *Logger) file(sessionID, trial string) (*os.File, error) {
	name := filepath.Base(sessionID)
	if name == "" || name == "." || name == ".." {
		name = "unknown"
	}
	if trial != "" {
		name += "_" + filepath.Base(trial)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.files[name]; ok {
		return f, nil
	}

	path := filepath.Join(l.cfg.Dir, name+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open session log %s: %w", path, err)
	}
	l.files[name] = f
	return f, nil
}
