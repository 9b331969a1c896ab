// Package window models the lifecycle of the single application window as a
// dispatch table of pure transitions. Each transition takes the current
// snapshot and an event and returns the next snapshot plus the side effects
// the host must perform; nothing here touches a real window.
package window

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"ytm-desktop/internal/relay"
)

// ErrNoWindow reports an event that needs a live window while none exists.
// Content and window events cannot arrive without a window, so hosts treat
// it as an invariant violation.
var ErrNoWindow = errors.New("window is not open")

// ErrUnknownEvent is returned for events outside the dispatch table.
var ErrUnknownEvent = errors.New("unknown window event")

// State is the window lifecycle state.
type State int

const (
	Unopened State = iota
	Loading
	Ready
	Closed
)

func (s State) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// HasWindow reports whether a window object exists in s.
func (s State) HasWindow() bool {
	return s == Loading || s == Ready
}

// Options are fixed for the life of the process.
type Options struct {
	URL            string
	Title          string
	StartMinimized bool
}

// Snapshot is the mutable part of the session.
type Snapshot struct {
	State State
	// Zoom is the zoom level currently applied to the window; 0 is the
	// platform default.
	Zoom float64
}

type transition func(opts Options, cur Snapshot, ev Event) (Snapshot, []Effect, error)

var transitions = map[string]transition{
	Open{}.Name():             onOpen,
	LoadFinished{}.Name():     onLoadFinished,
	LoadFailed{}.Name():       onLoadFailed,
	WindowClosed{}.Name():     onClosed,
	NewWindowRequest{}.Name(): onNewWindow,
	Swipe{}.Name():            onSwipe,
	ChangeZoom{}.Name():       onChangeZoom,
}

// Session owns the window state. Dispatch is safe for concurrent use; the
// host's callbacks may arrive on different goroutines.
type Session struct {
	opts Options

	mu   sync.Mutex
	snap Snapshot
}

// NewSession returns a session in the Unopened state.
func NewSession(opts Options) *Session {
	return &Session{opts: opts}
}

// Options returns the session options.
func (s *Session) Options() Options {
	return s.opts
}

// Snapshot returns the current state and zoom level.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.Snapshot().State
}

// Dispatch applies ev and returns the effects to perform, in order. On error
// the snapshot is left unchanged.
func (s *Session) Dispatch(ev Event) ([]Effect, error) {
	step, err := lookup(ev)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(step, ev)
}

// DispatchIfOpen is Dispatch for events that can race with the window being
// closed, such as content callbacks. The window check and the transition
// happen under one lock; without a window ev is dropped and open is false.
func (s *Session) DispatchIfOpen(ev Event) (effects []Effect, open bool, err error) {
	step, err := lookup(ev)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.snap.State.HasWindow() {
		return nil, false, nil
	}
	effects, err = s.apply(step, ev)
	return effects, true, err
}

func lookup(ev Event) (transition, error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: nil", ErrUnknownEvent)
	}
	step, ok := transitions[ev.Name()]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Name())
	}
	return step, nil
}

// apply runs step against the current snapshot. Caller holds mu.
func (s *Session) apply(step transition, ev Event) ([]Effect, error) {
	next, effects, err := step(s.opts, s.snap, ev)
	if err != nil {
		return nil, fmt.Errorf("%s in state %s: %w", ev.Name(), s.snap.State, err)
	}
	if next.State != s.snap.State {
		slog.Debug("[DEBUG-WINDOW] state transition", "event", ev.Name(), "from", s.snap.State, "to", next.State)
	}
	s.snap = next
	return effects, nil
}

func onOpen(opts Options, cur Snapshot, ev Event) (Snapshot, []Effect, error) {
	open := ev.(Open)
	if cur.State.HasWindow() {
		return cur, []Effect{{Kind: EffectShow}, {Kind: EffectFocus}}, nil
	}
	effects := []Effect{
		{Kind: EffectSizeToWorkArea},
		{Kind: EffectInstallMenu},
		{Kind: EffectLoadURL, URL: opts.URL},
	}
	if open.UpdateAvailable {
		effects = append(effects, Effect{Kind: EffectPromptUpdate})
	}
	return Snapshot{State: Loading}, effects, nil
}

func onLoadFinished(opts Options, cur Snapshot, ev Event) (Snapshot, []Effect, error) {
	if !cur.State.HasWindow() {
		return cur, nil, ErrNoWindow
	}
	loaded := ev.(LoadFinished)
	next := Snapshot{State: Ready, Zoom: cur.Zoom}
	effects := []Effect{{Kind: EffectSetTitle, Title: opts.Title}}
	if loaded.SavedZoom != nil {
		next.Zoom = *loaded.SavedZoom
		effects = append(effects, Effect{Kind: EffectSetZoom, Zoom: next.Zoom})
	}
	effects = append(effects, Effect{Kind: EffectInjectBridge})
	if opts.StartMinimized {
		effects = append(effects, Effect{Kind: EffectMinimize})
	} else {
		effects = append(effects, Effect{Kind: EffectShow}, Effect{Kind: EffectFocus})
	}
	return next, effects, nil
}

// onLoadFailed reveals a window whose first load failed so the loader page
// and its error text become visible. A failed reload of a shown window
// changes nothing.
func onLoadFailed(opts Options, cur Snapshot, _ Event) (Snapshot, []Effect, error) {
	if !cur.State.HasWindow() {
		return cur, nil, ErrNoWindow
	}
	if cur.State != Loading {
		return cur, nil, nil
	}
	if opts.StartMinimized {
		return cur, []Effect{{Kind: EffectMinimize}}, nil
	}
	return cur, []Effect{{Kind: EffectShow}}, nil
}

func onClosed(_ Options, cur Snapshot, _ Event) (Snapshot, []Effect, error) {
	if !cur.State.HasWindow() {
		return cur, nil, ErrNoWindow
	}
	return Snapshot{State: Closed}, []Effect{{Kind: EffectRelease}}, nil
}

// onNewWindow always denies the in-app window and hands the URL to the
// external browser.
func onNewWindow(_ Options, cur Snapshot, ev Event) (Snapshot, []Effect, error) {
	if !cur.State.HasWindow() {
		return cur, nil, ErrNoWindow
	}
	req := ev.(NewWindowRequest)
	return cur, []Effect{{Kind: EffectOpenExternal, URL: req.URL}}, nil
}

func onSwipe(_ Options, cur Snapshot, ev Event) (Snapshot, []Effect, error) {
	if !cur.State.HasWindow() {
		return cur, nil, ErrNoWindow
	}
	switch ev.(Swipe).Direction {
	case SwipeLeft:
		return cur, []Effect{{Kind: EffectSignal, Signal: relay.NavigateBack, Target: ToContent}}, nil
	case SwipeRight:
		return cur, []Effect{{Kind: EffectSignal, Signal: relay.NavigateForward, Target: ToShell}}, nil
	default:
		return cur, nil, nil
	}
}

// onChangeZoom is a no-op without a window; the Options menu outlives the
// window on platforms that keep running with no windows.
func onChangeZoom(_ Options, cur Snapshot, ev Event) (Snapshot, []Effect, error) {
	if !cur.State.HasWindow() {
		return cur, nil, nil
	}
	next := cur
	next.Zoom = cur.Zoom + ev.(ChangeZoom).Delta
	return next, []Effect{
		{Kind: EffectSetZoom, Zoom: next.Zoom},
		{Kind: EffectPersistZoom, Zoom: next.Zoom},
	}, nil
}
