//////////////////////////////////////////////////////////////////////////////
//
// TV input HAL errors
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package tvinput

import "errors"

var (
	// ErrBadValue indicates an invalid argument, e.g. a nil or torn-down
	// surface.
	ErrBadValue = errors.New("Bad value")

	// ErrNotFound indicates an operation on an unregistered device or
	// stream, or a stream id with no matching configuration.
	ErrNotFound = errors.New("Not found")

	// ErrUnknown indicates a device call that returned a non-success
	// status. Never retried here; retry is the caller's business.
	ErrUnknown = errors.New("Unknown device failure")

	// ErrTimeout indicates a bounded internal wait that elapsed without the
	// expected state change.
	ErrTimeout = errors.New("Timed out")
)
