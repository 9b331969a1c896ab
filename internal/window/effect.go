package window

import (
	"fmt"

	"ytm-desktop/internal/relay"
)

// EffectKind names a side effect the host performs on the real window.
type EffectKind int

const (
	EffectSizeToWorkArea EffectKind = iota + 1
	EffectInstallMenu
	EffectLoadURL
	EffectSetTitle
	EffectSetZoom
	EffectPersistZoom
	EffectInjectBridge
	EffectMinimize
	EffectShow
	EffectFocus
	EffectOpenExternal
	EffectSignal
	EffectPromptUpdate
	EffectRelease
)

var effectKindNames = map[EffectKind]string{
	EffectSizeToWorkArea: "size-to-work-area",
	EffectInstallMenu:    "install-menu",
	EffectLoadURL:        "load-url",
	EffectSetTitle:       "set-title",
	EffectSetZoom:        "set-zoom",
	EffectPersistZoom:    "persist-zoom",
	EffectInjectBridge:   "inject-bridge",
	EffectMinimize:       "minimize",
	EffectShow:           "show",
	EffectFocus:          "focus",
	EffectOpenExternal:   "open-external",
	EffectSignal:         "signal",
	EffectPromptUpdate:   "prompt-update",
	EffectRelease:        "release",
}

func (k EffectKind) String() string {
	if name, ok := effectKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("effect(%d)", int(k))
}

// Target says which side of the relay a signal effect is delivered to.
type Target int

const (
	ToShell Target = iota
	ToContent
)

// Effect is one side effect. Only the fields relevant to Kind are set.
type Effect struct {
	Kind   EffectKind
	URL    string
	Title  string
	Zoom   float64
	Signal relay.Signal
	Target Target
}

func (e Effect) String() string {
	switch e.Kind {
	case EffectLoadURL, EffectOpenExternal:
		return fmt.Sprintf("%s(%s)", e.Kind, e.URL)
	case EffectSetTitle:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Title)
	case EffectSetZoom, EffectPersistZoom:
		return fmt.Sprintf("%s(%g)", e.Kind, e.Zoom)
	case EffectSignal:
		target := "shell"
		if e.Target == ToContent {
			target = "content"
		}
		return fmt.Sprintf("%s(%s->%s)", e.Kind, e.Signal, target)
	default:
		return e.Kind.String()
	}
}
