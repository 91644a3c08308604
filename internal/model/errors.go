package model

import "errors"

var (
	// ErrFormat marks malformed input: bad mapping specs, addresses, ports,
	// protocol names or missing tabular columns.
	ErrFormat = errors.New("format error")

	// ErrConflict marks duplicate or overlapping lookup table entries and
	// duplicate service names.
	ErrConflict = errors.New("conflict")
)
