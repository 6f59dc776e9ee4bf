package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ChunkPacer inserts a fixed delay between consecutive chunk dispatches so
// the remote underwriting service sees bounded bursts rather than a
// sustained flood. The scheduler calls Pause before every chunk after the
// first, and never after the last.
type ChunkPacer struct {
	delay      time.Duration
	mutex      sync.Mutex
	pauseCount int64
}

// NewChunkPacer creates a pacer with the specified inter-chunk delay.
func NewChunkPacer(delay time.Duration) *ChunkPacer {
	return &ChunkPacer{delay: delay}
}

// Pause sleeps for the configured delay and counts the pause.
func (p *ChunkPacer) Pause() {
	p.mutex.Lock()
	p.pauseCount++
	count := p.pauseCount
	p.mutex.Unlock()

	if p.delay <= 0 {
		return
	}

	logrus.WithFields(logrus.Fields{
		"component":   "ChunkPacer",
		"delay":       p.delay,
		"pause_count": count,
	}).Debug("Enforcing inter-chunk pacing delay")

	time.Sleep(p.delay)
}

// GetPauseCount returns the number of pacing delays taken so far.
func (p *ChunkPacer) GetPauseCount() int64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.pauseCount
}

// Reset resets the pause counter.
func (p *ChunkPacer) Reset() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.pauseCount = 0

	logrus.WithField("component", "ChunkPacer").Debug("Reset pacer state")
}
