package malloc

import "github.com/Otamio/Dynamic-Memory-Allocator/unsafex"

// ViewString returns b's bytes as a string without copying. The
// returned string aliases b: mutating b after the call, or releasing
// it, invalidates the string the same way an interior pointer would.
// Intended for short-lived inspection (logging, Check failure
// messages) where a copy would defeat the point of not allocating.
func ViewString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafex.BinaryToString(b)
}
