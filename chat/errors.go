package chat

import "errors"

// Sentinel errors for chat turns.
var (
	// ErrBusy indicates another send is in progress.
	ErrBusy = errors.New("a chat request is already in progress")

	// ErrNoRoom indicates a request with neither a character nor a group.
	ErrNoRoom = errors.New("send request needs a character or a group")

	// ErrUnknownMember indicates a group member id that Lookup cannot resolve.
	ErrUnknownMember = errors.New("cannot find group member")
)
