package utils

import (
	"bytes"
	"unicode/utf8"
)

// sniffLength defines the maximum number of leading bytes inspected when detecting binary content.
const sniffLength = 8000

// IsBinary reports whether the leading bytes of data look like binary content:
// a NUL byte, or invalid UTF-8 inside the inspected window.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	window := data
	truncated := len(window) > sniffLength
	if truncated {
		window = window[:sniffLength]
	}
	if bytes.IndexByte(window, 0) >= 0 {
		return true
	}
	for len(window) > 0 {
		decodedRune, size := utf8.DecodeRune(window)
		if decodedRune == utf8.RuneError && size == 1 {
			// a rune cut by the window boundary is not evidence of binary data
			return !truncated || utf8.FullRune(window)
		}
		window = window[size:]
	}
	return false
}
