package editor

import (
	"sync"
	"time"

	"github.com/abdes/oxygen-interop/logging"
)

// Stats is a point-in-time snapshot of the module's frame counters.
type Stats struct {
	Frames           uint64
	CommandsExecuted uint64
	ViewsRendered    uint64
	Composites       uint64
	SurfacesResized  uint64
	FramesSkipped    uint64
}

// statsCollector tracks per-frame counters and periodically logs a summary,
// once per interval rather than per frame.
type statsCollector struct {
	mu       sync.Mutex
	stats    Stats
	lastLog  time.Time
	interval time.Duration
}

func newStatsCollector() *statsCollector {
	return &statsCollector{
		lastLog:  time.Now(),
		interval: 10 * time.Second,
	}
}

func (s *statsCollector) frameDone(commands, views, composites int) {
	s.mu.Lock()
	s.stats.Frames++
	s.stats.CommandsExecuted += uint64(commands)
	s.stats.ViewsRendered += uint64(views)
	s.stats.Composites += uint64(composites)
	due := time.Since(s.lastLog) >= s.interval
	if due {
		s.lastLog = time.Now()
	}
	snapshot := s.stats
	s.mu.Unlock()

	if due {
		logging.L().Info("editor frame stats",
			"frames", snapshot.Frames,
			"commands", snapshot.CommandsExecuted,
			"views_rendered", snapshot.ViewsRendered,
			"composites", snapshot.Composites,
			"resizes", snapshot.SurfacesResized,
			"skipped", snapshot.FramesSkipped)
	}
}

func (s *statsCollector) surfaceResized() {
	s.mu.Lock()
	s.stats.SurfacesResized++
	s.mu.Unlock()
}

func (s *statsCollector) frameSkipped() {
	s.mu.Lock()
	s.stats.FramesSkipped++
	s.mu.Unlock()
}

func (s *statsCollector) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
