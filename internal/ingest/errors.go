package ingest

import "errors"

// Sentinel kinds for ingestion errors.
var (
	ErrFetch = errors.New("fetch csv failed")
	ErrParse = errors.New("parse csv failed")
)
