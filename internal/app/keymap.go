package app

// Key binding constants used in handleKey.
const (
	KeyQuit        = "q"
	KeyCtrlC       = "ctrl+c"
	KeySpace       = " "
	KeyTab         = "tab"
	KeyUp          = "up"
	KeyDown        = "down"
	KeyJ           = "j"
	KeyK           = "k"
	KeyEnter       = "enter"
	KeyEsc         = "esc"
	KeyBackspace   = "backspace"
	KeyLeft        = "left"
	KeyRight       = "right"
	KeyPickSource  = "s"
	KeyToggleSys   = "a"
	KeyToggleMic   = "m"
	KeySysGainDown = "["
	KeySysGainUp   = "]"
	KeyMicGainDown = "{"
	KeyMicGainUp   = "}"
	KeyRename      = "r"
	KeyDelete      = "d"
	KeyDuplicate   = "c"
	KeyConvert     = "v"
	KeyReveal      = "e"
	KeyOpen        = "o"
	KeyMoveUp      = "K"
	KeyMoveDown    = "J"
	KeyReload      = "ctrl+r"
	KeyMinimize    = "ctrl+z"
	KeyFullscreen  = "f"
	KeyConfirmYes  = "y"
)
