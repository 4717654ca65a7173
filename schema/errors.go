package schema

import "errors"

var (
	// ErrMalformedFrame indicates a frame that cannot be split into text and payload.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrNoSelectionContent indicates a copy before the selection text arrived.
	ErrNoSelectionContent = errors.New("no content available yet")
	// ErrNotConnected indicates the transport is closed.
	ErrNotConnected = errors.New("not connected")
	// ErrInvalidConfig indicates an invalid configuration value.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUnknownHandle indicates a drag on a handle that does not exist.
	ErrUnknownHandle = errors.New("unknown selection handle")
	// ErrEmptySearch indicates a search without a phrase.
	ErrEmptySearch = errors.New("empty search phrase")
)
