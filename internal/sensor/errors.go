package sensor

import "errors"

// ErrUnknownRoom is returned when an operation names a room that is not in
// the static registry.
var ErrUnknownRoom = errors.New("unknown room")
