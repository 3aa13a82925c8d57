// Package ferrors defines the small sentinel-error vocabulary the metadata
// engine uses instead of an exception hierarchy: every failure a caller can
// usefully distinguish is one of these, checkable with errors.Is.
package ferrors

import "errors"

var (
	// ErrNotFound is returned when a path segment, or a leaf name within a
	// resolved directory, has no matching entry.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned by Create/CreateDirectory when the leaf name
	// is already present in the parent directory.
	ErrExists = errors.New("already exists")

	// ErrDirFull is returned when a directory has no free entry slot.
	ErrDirFull = errors.New("directory full")

	// ErrNoSpace is returned when the free-map cannot satisfy a requested
	// allocation.
	ErrNoSpace = errors.New("no space on disk")

	// ErrNotEmpty is returned by Remove on a non-empty directory when the
	// caller did not ask for a recursive remove.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrBadDescriptor is returned by descriptor-table operations given an
	// id outside 1..19 or a slot that holds no open handle.
	ErrBadDescriptor = errors.New("bad file descriptor")
)
