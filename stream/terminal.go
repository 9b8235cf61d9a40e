package stream

// Control sequences written to clients. Terminals rely on these exact bytes.
const (
	EnterAltScreen = "\x1b[?1049h"
	ExitAltScreen  = "\x1b[?1049l"
	ClearScreen    = "\x1b[2J"
	CursorHome     = "\x1b[H"
	HideCursor     = "\x1b[?25l"
	ShowCursor     = "\x1b[?25h"
	EraseLine      = "\x1b[K"
	EraseBelow     = "\x1b[J"
)

// SetupSequence prepares the screen before the first frame.
func SetupSequence(altScreen bool) string {
	if altScreen {
		return EnterAltScreen + ClearScreen + CursorHome + HideCursor
	}
	return ClearScreen + CursorHome + HideCursor
}

// TeardownSequence restores the terminal after the last frame.
func TeardownSequence(altScreen bool) string {
	if altScreen {
		return ShowCursor + ExitAltScreen
	}
	return ShowCursor
}
