package util

import (
	"strconv"
)

// MustParseUint converts a string to uint, returning 0 on parse failure.
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// FormatUint renders a uint the way row ids travel on the change feed.
func FormatUint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
