package session

import "fmt"

// Messenger delivers chat lines to a connected player. Implementations touch
// game state and must only be called from the frame loop.
type Messenger interface {
	PrintToChat(slot int, message string)
}

// Authorizer is the host's permission oracle for staff commands.
type Authorizer interface {
	HasPermission(steamID, permission string) bool
}

// Executor runs server console commands. Same frame-loop contract as
// Messenger.
type Executor interface {
	ExecuteCommand(command string)
}

func KickCommand(userID int, reason string) string {
	return fmt.Sprintf("css_kick #%d %s", userID, reason)
}

func BanCommand(userID, minutes int, reason string) string {
	return fmt.Sprintf("css_ban #%d %d %s", userID, minutes, reason)
}
