// Package glerr defines the fatal error kinds shared across graphlog's
// subsystems. Every error graphlog returns wraps one of the sentinels below
// so callers (and main) can classify failures with errors.Is.
package glerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks a bad CLI flag, out-of-range parameter, or a
	// graph whose vertex count overflows 32 bits.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrReader marks a malformed or directed input graph.
	ErrReader = errors.New("reader error")

	// ErrIO marks a file open/write failure.
	ErrIO = errors.New("i/o error")

	// ErrCompression marks a deflate init or step failure.
	ErrCompression = errors.New("compression error")

	// ErrAllocation marks a buffer allocation failure.
	ErrAllocation = errors.New("allocation failure")

	// ErrInvariant marks a broken invariant: duplicate edges in the input
	// that cannot be reconciled, a writer receiving blocks out of order,
	// and similar assertions that should never fire on correct input.
	ErrInvariant = errors.New("invariant violation")
)

// Wrap annotates a sentinel with a formatted detail message, preserving
// errors.Is(err, sentinel).
func Wrap(sentinel error, format string, args ...any) error {
	return &wrapped{sentinel: sentinel, detail: sprintf(format, args...)}
}

type wrapped struct {
	sentinel error
	detail   string
}

func (w *wrapped) Error() string { return w.sentinel.Error() + ": " + w.detail }
func (w *wrapped) Unwrap() error { return w.sentinel }

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
