// Package slideshow advances the viewer on a fixed interval.
package slideshow

import (
	"sync"
	"time"
)

const (
	// DefaultInterval matches the slideMs preference of a fresh install.
	DefaultInterval = 2500 * time.Millisecond
)

// Player calls an advance function on every tick while it is running.
type Player struct {
	mu                 sync.Mutex
	running            bool
	wasPlayingBeforeOp bool // Tracks if the player was running before a temporary pause
	interval           time.Duration
	advance            func()
	stop               chan struct{}
	ticks              uint64
}

// NewPlayer creates a stopped player. Interval is the time between
// advances; advance runs on the player's own goroutine.
func NewPlayer(interval time.Duration, advance func()) *Player {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Player{interval: interval, advance: advance}
}

// Start begins advancing. Starting a running player restarts its interval.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked()
}

func (p *Player) startLocked() {
	p.stopLocked()
	p.running = true
	stop := make(chan struct{})
	p.stop = stop
	go p.loop(p.interval, stop)
}

// Stop halts advancing. It is safe to call on a stopped player.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.wasPlayingBeforeOp = false
}

func (p *Player) stopLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.running = false
}

// Toggle starts a stopped player or stops a running one and reports whether
// it is now running.
func (p *Player) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wasPlayingBeforeOp = false // User toggle overrides any operation-specific state
	if p.running {
		p.stopLocked()
	} else {
		p.startLocked()
	}
	return p.running
}

// Pause stops the player for the duration of some operation, such as a
// dialog, remembering whether it was running. Overlapping pauses share one
// resume.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wasPlayingBeforeOp = p.wasPlayingBeforeOp || p.running
	p.stopLocked()
}

// ResumeAfterOperation restarts the player only if Pause stopped it.
func (p *Player) ResumeAfterOperation() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.wasPlayingBeforeOp {
		p.startLocked()
	}
	p.wasPlayingBeforeOp = false
}

// Running reports whether the player is advancing.
func (p *Player) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Interval returns the configured interval.
func (p *Player) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// SetInterval changes the interval, restarting a running player.
func (p *Player) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = d
	if p.running {
		p.startLocked()
	}
}

// Ticks returns how many times the player has advanced.
func (p *Player) Ticks() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticks
}

func (p *Player) loop(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.stop != stop {
				p.mu.Unlock()
				return
			}
			p.ticks++
			p.mu.Unlock()
			if p.advance != nil {
				p.advance()
			}
		}
	}
}
