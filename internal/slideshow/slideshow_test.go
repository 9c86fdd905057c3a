package slideshow

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlayerAdvancesUntilStopped(t *testing.T) {
	var n atomic.Int32
	p := NewPlayer(5*time.Millisecond, func() { n.Add(1) })
	assert.False(t, p.Running())

	p.Start()
	assert.True(t, p.Running())
	assert.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, time.Millisecond)

	p.Stop()
	assert.False(t, p.Running())
	stopped := n.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, n.Load(), stopped+1, "at most one advance already in flight")
	assert.GreaterOrEqual(t, p.Ticks(), uint64(2))
}

func TestPlayerDefaults(t *testing.T) {
	p := NewPlayer(0, nil)
	assert.Equal(t, DefaultInterval, p.Interval())
	p.SetInterval(time.Second)
	assert.Equal(t, time.Second, p.Interval())
	p.SetInterval(-1)
	assert.Equal(t, DefaultInterval, p.Interval())
}

func TestPauseForOperation(t *testing.T) {
	p := NewPlayer(time.Hour, nil)

	// A stopped player stays stopped.
	p.Pause()
	p.ResumeAfterOperation()
	assert.False(t, p.Running())

	assert.True(t, p.Toggle())
	p.Pause()
	assert.False(t, p.Running())
	p.ResumeAfterOperation()
	assert.True(t, p.Running())

	// A user toggle during the operation wins.
	p.Pause()
	assert.True(t, p.Toggle())
	assert.False(t, p.Toggle())
	p.ResumeAfterOperation()
	assert.False(t, p.Running())

	// Overlapping pauses share one resume.
	assert.True(t, p.Toggle())
	p.Pause()
	p.Pause()
	p.ResumeAfterOperation()
	assert.True(t, p.Running())
	p.Stop()
}
