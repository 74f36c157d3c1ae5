package format

// Alignment utilities for the managed region. All payload sizes and
// references must sit on Alignment-byte boundaries.

// AlignUp returns n rounded up to the next Alignment boundary.
//
// Example:
//
//	AlignUp(1)  = 8
//	AlignUp(8)  = 8
//	AlignUp(9)  = 16
func AlignUp(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// AlignDown returns n rounded down to the previous Alignment boundary.
func AlignDown(n int) int {
	return n &^ (Alignment - 1)
}
