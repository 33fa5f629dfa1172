package service

import "errors"

// ErrInvalidInput is returned when a command carries an out-of-range or
// malformed value, such as a smoke level outside [0,100] or a
// non-positive threshold.
var ErrInvalidInput = errors.New("invalid input")
