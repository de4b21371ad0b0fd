package dataservice

import "errors"

var (
	ErrNotFound     = errors.New("species not found")
	ErrInvalidRow   = errors.New("data service returned an invalid row")
	ErrMultipleRows = errors.New("data service returned more than one row")
	ErrRequest      = errors.New("data service request failed")
)
