package alloc

import "errors"

var (
	// ErrNoSpace indicates that no free block large enough exists. The
	// region is left untouched; the request can only succeed after the
	// caller frees memory.
	ErrNoSpace = errors.New("alloc: no free block large enough")

	// ErrBadRequest indicates a zero or negative size request.
	ErrBadRequest = errors.New("alloc: request size must be positive")

	// ErrTooLarge indicates a request above MaxRequest.
	ErrTooLarge = errors.New("alloc: request exceeds maximum size")

	// ErrBadRef indicates an out-of-bounds or misaligned reference.
	ErrBadRef = errors.New("alloc: bad payload reference")

	// ErrRegionTooSmall indicates the region cannot hold even one
	// minimum block plus the trailing sentinel.
	ErrRegionTooSmall = errors.New("alloc: region below minimum viable size")
)
