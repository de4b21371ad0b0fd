package species

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid dialog transition")
	ErrInvalidID         = errors.New("invalid species id")
)
