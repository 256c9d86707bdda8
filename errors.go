package slicer

import "errors"

var (
	// ErrEntityNotFound is returned by an Accessor when no entity has the
	// requested ID.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrNoContent marks a file whose original bytes are unavailable.
	ErrNoContent = errors.New("file content unavailable")

	// ErrOutOfRange marks an entity or import span outside its file.
	ErrOutOfRange = errors.New("span out of range")
)
