package errors

import (
	"errors"
)

// Sentinel errors the command layer hands back to the host. The host decides
// how to render them to the player.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("bad command usage")
	ErrCallerNotFound = errors.New("caller is not connected")
	ErrPlayerNotFound = errors.New("no such player")
)
