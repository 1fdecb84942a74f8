package main

// action is what the operator asked for with a key press
type action int

const (
	actionNone action = iota
	actionQuit
	actionRetry
	actionBack
)

const keyEsc = 27

// keyAction maps a key code from gocv.Window.WaitKey to an action.  Retry
// only applies to the error screens and back only to the preview.
func keyAction(key int) action {

	// WaitKey may return modifier bits above the key code
	if key >= 0 {
		key &= 0xFF
	}

	switch key {
	case 'q', 'Q', keyEsc:
		return actionQuit
	case 'r', 'R':
		return actionRetry
	case 'b', 'B':
		return actionBack
	default:
		return actionNone
	}
}
