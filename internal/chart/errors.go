package chart

import "errors"

var (
	// ErrEmptyDataset is returned by the renderers when there is nothing to draw.
	ErrEmptyDataset = errors.New("empty dataset")
	ErrRender       = errors.New("render chart failed")
)
