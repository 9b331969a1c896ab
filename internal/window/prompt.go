package window

const (
	// DefaultURL is the content loaded into the window.
	DefaultURL = "https://music.youtube.com"
	// DefaultTitle is the window and tray title.
	DefaultTitle = "YouTube Music Desktop"
)

// Update prompt texts.
const (
	UpdatePromptTitle   = "Update Available"
	UpdatePromptMessage = "An update is available. Would you like to update now?"
	ButtonUpdateNow     = "Update now"
	ButtonLater         = "Later"
	ButtonClose         = "Close"

	NoUpdateTitle   = "No Updates"
	NoUpdateMessage = "You are using the latest version."
)

// UpdatePromptButtons lists the prompt buttons in display order.
var UpdatePromptButtons = []string{ButtonUpdateNow, ButtonLater, ButtonClose}

// PromptOrigin says where an update prompt was raised.
type PromptOrigin int

const (
	// FromStartup is the prompt shown while the window opens.
	FromStartup PromptOrigin = iota
	// FromMenu is the prompt shown by "Check for Updates" in the tray or menu.
	FromMenu
)

// UpdateChoice is the action chosen in an update prompt.
type UpdateChoice int

const (
	ChoiceNothing UpdateChoice = iota
	ChoiceInstall
	ChoiceQuit
)

func (c UpdateChoice) String() string {
	switch c {
	case ChoiceInstall:
		return "install"
	case ChoiceQuit:
		return "quit"
	default:
		return "nothing"
	}
}

// Labels returned by platform dialogs that cannot show custom buttons. They
// map positionally onto UpdatePromptButtons.
const (
	platformYes    = "Yes"
	platformNo     = "No"
	platformCancel = "Cancel"
)

// ResolveUpdateChoice maps the clicked button label to an action. "Close"
// quits the application only for the startup prompt; any unknown label,
// including a dismissed dialog, does nothing.
func ResolveUpdateChoice(label string, origin PromptOrigin) UpdateChoice {
	switch label {
	case ButtonUpdateNow, platformYes:
		return ChoiceInstall
	case ButtonClose, platformCancel:
		if origin == FromStartup {
			return ChoiceQuit
		}
	case ButtonLater, platformNo:
	}
	return ChoiceNothing
}
