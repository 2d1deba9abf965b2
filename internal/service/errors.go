package service

import "errors"

var (
	// ErrReversal is returned when de-identification of a dataset cannot be reversed.
	ErrReversal = errors.New("de-identification reversal failed")
	// ErrStorage is returned when a dataset could not be committed locally.
	ErrStorage = errors.New("storage commit failed")
	// ErrInvalidBox is returned when a box definition is incomplete.
	ErrInvalidBox = errors.New("invalid box")
)
