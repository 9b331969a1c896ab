package window

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"ytm-desktop/internal/relay"
	"ytm-desktop/internal/testutil"
)

func testOptions() Options {
	return Options{URL: DefaultURL, Title: DefaultTitle}
}

func mustDispatch(t *testing.T, s *Session, ev Event) []Effect {
	t.Helper()
	effects, err := s.Dispatch(ev)
	if err != nil {
		t.Fatalf("Dispatch(%s) error = %v", ev.Name(), err)
	}
	return effects
}

func kinds(effects []Effect) []EffectKind {
	out := make([]EffectKind, 0, len(effects))
	for _, e := range effects {
		out = append(out, e.Kind)
	}
	return out
}

func countKind(effects []Effect, kind EffectKind) int {
	n := 0
	for _, e := range effects {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func readySession(t *testing.T, saved *float64) *Session {
	t.Helper()
	s := NewSession(testOptions())
	mustDispatch(t, s, Open{})
	mustDispatch(t, s, LoadFinished{SavedZoom: saved})
	return s
}

func TestOpenFromUnopened(t *testing.T) {
	tests := []struct {
		name            string
		updateAvailable bool
		want            []EffectKind
	}{
		{
			name: "no update",
			want: []EffectKind{EffectSizeToWorkArea, EffectInstallMenu, EffectLoadURL},
		},
		{
			name:            "update available",
			updateAvailable: true,
			want:            []EffectKind{EffectSizeToWorkArea, EffectInstallMenu, EffectLoadURL, EffectPromptUpdate},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(testOptions())
			effects := mustDispatch(t, s, Open{UpdateAvailable: tt.updateAvailable})
			if got := kinds(effects); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("effects = %v, want %v", got, tt.want)
			}
			if effects[2].URL != DefaultURL {
				t.Fatalf("LoadURL = %q, want %q", effects[2].URL, DefaultURL)
			}
			if s.State() != Loading {
				t.Fatalf("State() = %s, want loading", s.State())
			}
		})
	}
}

func TestOpenWithExistingWindowFocuses(t *testing.T) {
	s := readySession(t, nil)
	effects := mustDispatch(t, s, Open{UpdateAvailable: true})
	if got, want := kinds(effects), []EffectKind{EffectShow, EffectFocus}; !reflect.DeepEqual(got, want) {
		t.Fatalf("effects = %v, want %v", got, want)
	}
	if s.State() != Ready {
		t.Fatalf("State() = %s, want ready", s.State())
	}
}

func TestLoadFinishedWithoutSavedZoom(t *testing.T) {
	s := NewSession(testOptions())
	mustDispatch(t, s, Open{})
	effects := mustDispatch(t, s, LoadFinished{})

	want := []EffectKind{EffectSetTitle, EffectInjectBridge, EffectShow, EffectFocus}
	if got := kinds(effects); !reflect.DeepEqual(got, want) {
		t.Fatalf("effects = %v, want %v", got, want)
	}
	if effects[0].Title != DefaultTitle {
		t.Fatalf("title = %q, want %q", effects[0].Title, DefaultTitle)
	}
	if s.State() != Ready {
		t.Fatalf("State() = %s, want ready", s.State())
	}
	if z := s.Snapshot().Zoom; z != 0 {
		t.Fatalf("Zoom = %v, want 0", z)
	}
}

func TestLoadFinishedAppliesSavedZoom(t *testing.T) {
	s := NewSession(testOptions())
	mustDispatch(t, s, Open{})
	effects := mustDispatch(t, s, LoadFinished{SavedZoom: testutil.Ptr(1.5)})

	if n := countKind(effects, EffectSetZoom); n != 1 {
		t.Fatalf("SetZoom count = %d, want 1", n)
	}
	if effects[1].Kind != EffectSetZoom || effects[1].Zoom != 1.5 {
		t.Fatalf("effects[1] = %s, want set-zoom(1.5)", effects[1])
	}
	if countKind(effects, EffectPersistZoom) != 0 {
		t.Fatal("restoring a saved zoom must not persist it again")
	}
}

func TestLoadFinishedStartMinimized(t *testing.T) {
	opts := testOptions()
	opts.StartMinimized = true
	s := NewSession(opts)
	mustDispatch(t, s, Open{})
	effects := mustDispatch(t, s, LoadFinished{})

	want := []EffectKind{EffectSetTitle, EffectInjectBridge, EffectMinimize}
	if got := kinds(effects); !reflect.DeepEqual(got, want) {
		t.Fatalf("effects = %v, want %v", got, want)
	}
}

func TestLoadFinishedRepeatsOnReload(t *testing.T) {
	s := readySession(t, testutil.Ptr(1.0))
	effects := mustDispatch(t, s, LoadFinished{SavedZoom: testutil.Ptr(1.0)})
	if countKind(effects, EffectInjectBridge) != 1 {
		t.Fatalf("reload effects = %v, want bridge injected again", effects)
	}
	if s.State() != Ready {
		t.Fatalf("State() = %s, want ready", s.State())
	}
}

func TestZoomStepsPersistAndRestore(t *testing.T) {
	s := readySession(t, nil)

	in := mustDispatch(t, s, ChangeZoom{Delta: 0.5})
	want := []Effect{
		{Kind: EffectSetZoom, Zoom: 0.5},
		{Kind: EffectPersistZoom, Zoom: 0.5},
	}
	if !reflect.DeepEqual(in, want) {
		t.Fatalf("zoom in effects = %v, want %v", in, want)
	}

	out := mustDispatch(t, s, ChangeZoom{Delta: -0.5})
	want = []Effect{
		{Kind: EffectSetZoom, Zoom: 0},
		{Kind: EffectPersistZoom, Zoom: 0},
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("zoom out effects = %v, want %v", out, want)
	}
}

func TestChangeZoomStartsFromSavedLevel(t *testing.T) {
	s := readySession(t, testutil.Ptr(1.5))
	effects := mustDispatch(t, s, ChangeZoom{Delta: -relay.WheelZoomStep})
	if effects[0].Zoom != 1.4 {
		t.Fatalf("zoom = %v, want 1.4", effects[0].Zoom)
	}
}

func TestChangeZoomWithoutWindowIsNoOp(t *testing.T) {
	for _, state := range []string{"unopened", "closed"} {
		t.Run(state, func(t *testing.T) {
			s := NewSession(testOptions())
			if state == "closed" {
				mustDispatch(t, s, Open{})
				mustDispatch(t, s, WindowClosed{})
			}
			effects, err := s.Dispatch(ChangeZoom{Delta: 0.5})
			if err != nil || len(effects) != 0 {
				t.Fatalf("Dispatch(ChangeZoom) = %v, %v; want no effects", effects, err)
			}
		})
	}
}

func TestSwipeRouting(t *testing.T) {
	tests := []struct {
		direction Direction
		want      []Effect
	}{
		{SwipeLeft, []Effect{{Kind: EffectSignal, Signal: relay.NavigateBack, Target: ToContent}}},
		{SwipeRight, []Effect{{Kind: EffectSignal, Signal: relay.NavigateForward, Target: ToShell}}},
		{SwipeUp, nil},
		{SwipeDown, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.direction), func(t *testing.T) {
			s := readySession(t, nil)
			effects := mustDispatch(t, s, Swipe{Direction: tt.direction})
			if !reflect.DeepEqual(effects, tt.want) {
				t.Fatalf("effects = %v, want %v", effects, tt.want)
			}
		})
	}
}

func TestSwipeSequenceCounts(t *testing.T) {
	s := readySession(t, nil)
	back, forward := 0, 0
	for _, d := range []Direction{SwipeLeft, SwipeRight, SwipeLeft} {
		for _, e := range mustDispatch(t, s, Swipe{Direction: d}) {
			switch e.Signal {
			case relay.NavigateBack:
				back++
			case relay.NavigateForward:
				forward++
			}
		}
	}
	if back != 2 || forward != 1 {
		t.Fatalf("back=%d forward=%d, want 2 and 1", back, forward)
	}
}

func TestNewWindowRequestOpensExternallyOnce(t *testing.T) {
	s := readySession(t, nil)
	effects := mustDispatch(t, s, NewWindowRequest{URL: "https://example.com/a"})
	want := []Effect{{Kind: EffectOpenExternal, URL: "https://example.com/a"}}
	if !reflect.DeepEqual(effects, want) {
		t.Fatalf("effects = %v, want %v", effects, want)
	}
}

func TestClosedReleasesWindow(t *testing.T) {
	s := readySession(t, testutil.Ptr(2.0))
	effects := mustDispatch(t, s, WindowClosed{})
	if got, want := kinds(effects), []EffectKind{EffectRelease}; !reflect.DeepEqual(got, want) {
		t.Fatalf("effects = %v, want %v", got, want)
	}
	if s.State() != Closed {
		t.Fatalf("State() = %s, want closed", s.State())
	}

	// A reopened window starts from the default zoom until load restores it.
	reopened := mustDispatch(t, s, Open{UpdateAvailable: true})
	if countKind(reopened, EffectLoadURL) != 1 {
		t.Fatalf("reopen effects = %v, want a fresh load", reopened)
	}
	if z := s.Snapshot().Zoom; z != 0 {
		t.Fatalf("Zoom after reopen = %v, want 0", z)
	}
}

func TestEventsWithoutWindowFail(t *testing.T) {
	events := []Event{
		LoadFinished{},
		LoadFailed{URL: DefaultURL, Code: -105, Description: "name not resolved"},
		WindowClosed{},
		NewWindowRequest{URL: "https://example.com"},
		Swipe{Direction: SwipeLeft},
	}
	for _, ev := range events {
		t.Run(ev.Name(), func(t *testing.T) {
			s := NewSession(testOptions())
			effects, err := s.Dispatch(ev)
			if !errors.Is(err, ErrNoWindow) {
				t.Fatalf("Dispatch(%s) error = %v, want ErrNoWindow", ev.Name(), err)
			}
			if effects != nil {
				t.Fatalf("effects = %v, want nil on error", effects)
			}
			if s.State() != Unopened {
				t.Fatalf("State() = %s, want unchanged", s.State())
			}
		})
	}
}

func TestLoadFailedRevealsFirstLoad(t *testing.T) {
	tests := []struct {
		name           string
		startMinimized bool
		ready          bool
		want           []EffectKind
	}{
		{name: "first load shows", want: []EffectKind{EffectShow}},
		{name: "first load minimized", startMinimized: true, want: []EffectKind{EffectMinimize}},
		{name: "failed reload of shown window", ready: true, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			opts.StartMinimized = tt.startMinimized
			s := NewSession(opts)
			mustDispatch(t, s, Open{})
			wantState := Loading
			if tt.ready {
				mustDispatch(t, s, LoadFinished{})
				wantState = Ready
			}

			effects := mustDispatch(t, s, LoadFailed{URL: DefaultURL, Code: -2})

			if got := kinds(effects); !slices.Equal(got, tt.want) {
				t.Fatalf("effects = %v, want %v", got, tt.want)
			}
			if s.State() != wantState {
				t.Fatalf("State() = %s, want %s", s.State(), wantState)
			}
		})
	}
}

func TestDispatchIfOpen(t *testing.T) {
	s := NewSession(testOptions())

	effects, open, err := s.DispatchIfOpen(Swipe{Direction: SwipeLeft})
	if open || err != nil || effects != nil {
		t.Fatalf("DispatchIfOpen before open = (%v, %v, %v), want dropped", effects, open, err)
	}

	mustDispatch(t, s, Open{})
	effects, open, err = s.DispatchIfOpen(Swipe{Direction: SwipeLeft})
	if !open || err != nil || countKind(effects, EffectSignal) != 1 {
		t.Fatalf("DispatchIfOpen with window = (%v, %v, %v), want a signal", effects, open, err)
	}

	// The window closes between a caller's state read and its dispatch.
	if !s.State().HasWindow() {
		t.Fatal("window should exist before close")
	}
	mustDispatch(t, s, WindowClosed{})
	effects, open, err = s.DispatchIfOpen(Swipe{Direction: SwipeLeft})
	if open || err != nil || effects != nil {
		t.Fatalf("DispatchIfOpen after close = (%v, %v, %v), want dropped", effects, open, err)
	}

	if _, _, err := s.DispatchIfOpen(unknownEvent{}); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("DispatchIfOpen(unknown) error = %v, want ErrUnknownEvent", err)
	}
}

type unknownEvent struct{}

func (unknownEvent) Name() string { return "bogus" }

func TestDispatchUnknownEvent(t *testing.T) {
	s := NewSession(testOptions())
	if _, err := s.Dispatch(unknownEvent{}); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("Dispatch(bogus) error = %v, want ErrUnknownEvent", err)
	}
	if _, err := s.Dispatch(nil); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("Dispatch(nil) error = %v, want ErrUnknownEvent", err)
	}
}

func TestResolveUpdateChoice(t *testing.T) {
	tests := []struct {
		label  string
		origin PromptOrigin
		want   UpdateChoice
	}{
		{ButtonUpdateNow, FromStartup, ChoiceInstall},
		{ButtonUpdateNow, FromMenu, ChoiceInstall},
		{ButtonLater, FromStartup, ChoiceNothing},
		{ButtonLater, FromMenu, ChoiceNothing},
		{ButtonClose, FromStartup, ChoiceQuit},
		{ButtonClose, FromMenu, ChoiceNothing},
		{"Yes", FromMenu, ChoiceInstall},
		{"No", FromStartup, ChoiceNothing},
		{"Cancel", FromStartup, ChoiceQuit},
		{"Cancel", FromMenu, ChoiceNothing},
		{"", FromStartup, ChoiceNothing},
		{"Dismissed", FromStartup, ChoiceNothing},
	}
	for _, tt := range tests {
		if got := ResolveUpdateChoice(tt.label, tt.origin); got != tt.want {
			t.Errorf("ResolveUpdateChoice(%q, %d) = %s, want %s", tt.label, tt.origin, got, tt.want)
		}
	}
}
