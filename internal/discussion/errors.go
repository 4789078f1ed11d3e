package discussion

import (
	"errors"
	"fmt"
)

// ErrBrokenThread reports a message whose reply_to points outside the
// set of messages loaded for its topic. The schema never produces
// this; seeing it means the store is inconsistent and the render must
// fail rather than silently promote the orphan to a root.
var ErrBrokenThread = errors.New("message thread is inconsistent")

// PermissionError is returned when a mode's gate rejects the caller.
// Missing capability and "not author, not moderator" are kept apart so
// the request layer can report them distinguishably.
type PermissionError struct {
	Username   string
	Capability Capability // set when a capability check failed
	Reason     string     // set for ownership/moderator rejections
}

func (e *PermissionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("permission denied for %q: %s", e.Username, e.Reason)
	}
	return fmt.Sprintf("permission denied for %q: missing %s", e.Username, e.Capability)
}

func missingCapability(username string, cap Capability) error {
	return &PermissionError{Username: username, Capability: cap}
}

func notModerator(username, what string) error {
	return &PermissionError{Username: username, Reason: "not author and not moderator, cannot " + what}
}
