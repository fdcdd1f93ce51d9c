package input

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/stretchr/testify/assert"
)

func TestKeysAndButtons(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: EventKey, Key: common.KeyW, Pressed: true})
	s.Apply(Event{Kind: EventMouseButton, Button: common.MouseButtonLeft, Pressed: true})

	assert.True(t, s.IsKeyPressed(common.KeyW))
	assert.False(t, s.IsKeyPressed(common.KeyA))
	assert.True(t, s.IsMousePressed(common.MouseButtonLeft))

	s.Apply(Event{Kind: EventKey, Key: common.KeyW})
	s.Apply(Event{Kind: EventMouseButton, Button: common.MouseButtonLeft})
	assert.False(t, s.IsKeyPressed(common.KeyW))
	assert.False(t, s.IsMousePressed(common.MouseButtonLeft))
}

func TestCursorDelta(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: EventCursorMoved, X: 100, Y: 50})
	dx, dy := s.TakeCursorDelta()
	assert.Zero(t, dx, "first position has no previous point")
	assert.Zero(t, dy)

	s.Apply(Event{Kind: EventCursorMoved, X: 110, Y: 45})
	s.Apply(Event{Kind: EventCursorMoved, X: 115, Y: 40})
	dx, dy = s.TakeCursorDelta()
	assert.Equal(t, 15.0, dx)
	assert.Equal(t, -10.0, dy)

	x, y := s.CursorPosition()
	assert.Equal(t, 115.0, x)
	assert.Equal(t, 40.0, y)

	dx, _ = s.TakeCursorDelta()
	assert.Zero(t, dx)
}

func TestScrollAndIgnoredEvents(t *testing.T) {
	s := NewState()
	s.Apply(Event{Kind: EventScroll, ScrollY: 1.5})
	s.Apply(Event{Kind: EventScroll, ScrollY: -0.5})
	s.Apply(Event{Kind: EventResized, Width: 10, Height: 10})
	s.Apply(Event{Kind: EventRedrawRequested})

	assert.Equal(t, 1.0, s.TakeScroll())
	assert.Zero(t, s.TakeScroll())
}
