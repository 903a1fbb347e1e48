package permissions

import "strings"

// Root satisfies every capability check.
const Root = "@css/root"

// Matches reports whether one granted capability satisfies the required one.
// A granted group like "@css" covers every flag under it.
func Matches(granted, required string) bool {
	if granted == "" || required == "" {
		return false
	}
	if granted == Root || granted == required {
		return true
	}
	return strings.HasPrefix(required, granted+"/")
}

// Satisfies reports whether any granted capability matches the required one.
func Satisfies(granted []string, required string) bool {
	for _, capability := range granted {
		if Matches(capability, required) {
			return true
		}
	}
	return false
}
