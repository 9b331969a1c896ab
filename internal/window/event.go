package window

// Event is an input to Session.Dispatch.
type Event interface {
	Name() string
}

// Open creates the window, or brings an existing one to the front.
type Open struct {
	UpdateAvailable bool
}

// LoadFinished is raised each time the content finishes loading.
// SavedZoom is the persisted zoom level, nil when none was stored.
type LoadFinished struct {
	SavedZoom *float64
}

// LoadFailed is raised when the content could not be loaded.
type LoadFailed struct {
	URL         string
	Code        int
	Description string
}

// WindowClosed is raised when the window has been closed by the user.
type WindowClosed struct{}

// NewWindowRequest is content asking to open URL in a new window.
type NewWindowRequest struct {
	URL string
}

// Direction is a swipe gesture direction.
type Direction string

const (
	SwipeLeft  Direction = "left"
	SwipeRight Direction = "right"
	SwipeUp    Direction = "up"
	SwipeDown  Direction = "down"
)

// Swipe is a touchpad swipe gesture over the window.
type Swipe struct {
	Direction Direction
}

// ChangeZoom adjusts the zoom level by Delta and persists the result.
type ChangeZoom struct {
	Delta float64
}

func (Open) Name() string             { return "open" }
func (LoadFinished) Name() string     { return "load-finished" }
func (LoadFailed) Name() string       { return "load-failed" }
func (WindowClosed) Name() string     { return "closed" }
func (NewWindowRequest) Name() string { return "new-window" }
func (Swipe) Name() string            { return "swipe" }
func (ChangeZoom) Name() string       { return "change-zoom" }
