// Package input defines the window events the viewer reacts to and the input state built from them.
package input

import "github.com/Carmen-Shannon/oxy-view/common"

// EventKind identifies a window event.
type EventKind int

const (
	EventResized EventKind = iota
	EventRedrawRequested
	EventCloseRequested
	EventKey
	EventMouseButton
	EventCursorMoved
	EventScroll
)

// Event is one window event. Only the fields of its Kind are set.
type Event struct {
	Kind EventKind

	// Width and Height are the new framebuffer size of EventResized.
	Width, Height int

	// Key and Pressed describe EventKey.
	Key common.Key
	// Button and Pressed describe EventMouseButton.
	Button  common.MouseButton
	Pressed bool

	// X and Y are the cursor position of EventCursorMoved.
	X, Y float64

	// ScrollY is the vertical offset of EventScroll.
	ScrollY float64
}

// State tracks which keys and mouse buttons are held and where the cursor is.
// It is updated from the event loop only.
type State struct {
	keys    map[common.Key]bool
	buttons map[common.MouseButton]bool

	x, y        float64
	dx, dy      float64
	cursorSeen  bool
	scrollAccum float64
}

// NewState returns an empty input state.
func NewState() *State {
	return &State{
		keys:    make(map[common.Key]bool),
		buttons: make(map[common.MouseButton]bool),
	}
}

// Apply folds an event into the state. Events other than key, button, cursor and scroll events are ignored.
//
// Parameters:
//   - ev: the event
func (s *State) Apply(ev Event) {
	switch ev.Kind {
	case EventKey:
		if ev.Pressed {
			s.keys[ev.Key] = true
		} else {
			delete(s.keys, ev.Key)
		}
	case EventMouseButton:
		if ev.Pressed {
			s.buttons[ev.Button] = true
		} else {
			delete(s.buttons, ev.Button)
		}
	case EventCursorMoved:
		if s.cursorSeen {
			s.dx += ev.X - s.x
			s.dy += ev.Y - s.y
		}
		s.x, s.y = ev.X, ev.Y
		s.cursorSeen = true
	case EventScroll:
		s.scrollAccum += ev.ScrollY
	}
}

// IsKeyPressed reports whether a key is held.
func (s *State) IsKeyPressed(k common.Key) bool {
	return s.keys[k]
}

// IsMousePressed reports whether a mouse button is held.
func (s *State) IsMousePressed(b common.MouseButton) bool {
	return s.buttons[b]
}

// CursorPosition returns the last cursor position in window coordinates.
func (s *State) CursorPosition() (x, y float64) {
	return s.x, s.y
}

// TakeCursorDelta returns the cursor movement accumulated since the previous call and resets it.
func (s *State) TakeCursorDelta() (dx, dy float64) {
	dx, dy = s.dx, s.dy
	s.dx, s.dy = 0, 0
	return
}

// TakeScroll returns the scroll offset accumulated since the previous call and resets it.
func (s *State) TakeScroll() float64 {
	v := s.scrollAccum
	s.scrollAccum = 0
	return v
}
