package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogCursor(t *testing.T) {
	l := NewLog(3)
	_, pos, total := l.Current()
	assert.Equal(t, 0, pos)
	assert.Equal(t, 0, total)
	assert.False(t, l.Previous())

	l.Infof("one")
	l.Warnf("two %d", 2)
	l.Errorf("three")
	e, pos, total := l.Current()
	assert.Equal(t, "three", e.Message)
	assert.Equal(t, Error, e.Level)
	assert.Equal(t, 3, pos)
	assert.Equal(t, 3, total)

	assert.True(t, l.Previous())
	e, _, _ = l.Current()
	assert.Equal(t, "two 2", e.Message)
	assert.True(t, l.Next())
	assert.False(t, l.Next())
}

func TestLogIsBounded(t *testing.T) {
	l := NewLog(2)
	calls := 0
	l.OnChange(func() { calls++ })
	l.Infof("a")
	l.Infof("b")
	l.Infof("c")
	assert.Equal(t, 3, calls)

	entries := l.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Message)
	latest, ok := l.Latest()
	assert.True(t, ok)
	assert.Equal(t, "c", latest.String())
}
