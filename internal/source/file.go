package source

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vietddude/crashwatch/internal/core/domain"
)

// FileSource watches a spool directory for newly dropped tombstone files and
// feeds them to the handler as live reports. Files already present when the
// source starts are left to the queue replay path.
type FileSource struct {
	dir      string
	interval time.Duration
	handler  Handler
	log      *slog.Logger

	seen map[string]struct{}
}

// NewFileSource creates a file-drop source polling dir every interval.
func NewFileSource(dir string, interval time.Duration, handler Handler, log *slog.Logger) *FileSource {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &FileSource{
		dir:      dir,
		interval: interval,
		handler:  handler,
		log:      log,
		seen:     make(map[string]struct{}),
	}
}

// Run polls the spool directory until ctx is canceled.
func (s *FileSource) Run(ctx context.Context) {
	// prime with pre-existing files so only new arrivals are treated as live
	s.prime()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *FileSource) prime() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("failed to read spool directory", "dir", s.dir, "error", err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			s.seen[e.Name()] = struct{}{}
		}
	}
}

func (s *FileSource) scan(ctx context.Context) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("failed to read spool directory", "dir", s.dir, "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if _, ok := s.seen[name]; ok {
			continue
		}
		s.seen[name] = struct{}{}
		s.HandleFile(ctx, filepath.Join(s.dir, name))
	}
}

// HandleFile reads one report file and hands it to the handler as a live
// report. Any failure is logged and dropped; it never propagates.
func (s *FileSource) HandleFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Error("failed to read report file", "path", path, "error", err)
		return
	}

	s.handler.HandleReport(ctx, &domain.RawReport{
		Bytes:     data,
		Origin:    domain.OriginLive,
		Timestamp: time.Now(),
	})
}
