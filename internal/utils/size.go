package utils

import (
	"fmt"
	"strings"
)

var fileSizeUnits = []string{"b", "kb", "mb", "gb", "tb", "pb"}

// FormatFileSize converts a byte length into a human-readable lower-case unit string.
func FormatFileSize(byteCount int64) string {
	if byteCount < 0 {
		return "0b"
	}
	value := float64(byteCount)
	unitIndex := 0
	for value >= 1024 && unitIndex < len(fileSizeUnits)-1 {
		value /= 1024
		unitIndex++
	}
	switch {
	case unitIndex == 0:
		return fmt.Sprintf("%db", byteCount)
	case value < 10:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", value), ".0") + fileSizeUnits[unitIndex]
	default:
		return fmt.Sprintf("%.0f%s", value, fileSizeUnits[unitIndex])
	}
}
