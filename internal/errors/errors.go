package errors

import (
	"errors"
)

// ErrInvalidInput marks values rejected before they reach storage.
var ErrInvalidInput = errors.New("invalid input")
