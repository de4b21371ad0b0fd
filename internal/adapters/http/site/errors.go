package site

import (
	"errors"
)

// ErrTemplate is returned by New when an embedded page does not parse.
var ErrTemplate = errors.New("site template failed")
