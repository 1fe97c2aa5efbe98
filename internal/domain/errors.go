package domain

import "errors"

var (
	// ErrMalformedTimestamp marks a record whose timestamp does not match the
	// expected layout. The record is dropped; the run continues.
	ErrMalformedTimestamp = errors.New("malformed timestamp")

	// ErrNonNumericValue marks a record whose value is not a finite number.
	// The record is dropped; the run continues.
	ErrNonNumericValue = errors.New("non-numeric value")

	// ErrUnknownBucket is returned by Detect when an observation's bucket has
	// no statistics. It means the caller passed statistics computed from a
	// different observation set.
	ErrUnknownBucket = errors.New("unknown bucket")
)
