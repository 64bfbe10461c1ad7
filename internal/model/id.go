package model

import (
	"fmt"
	"strconv"
)

// ID prefixes per kind.
const (
	PrefixLost  = "L"
	PrefixFound = "F"
	PrefixMatch = "M"
)

// idDigits is the minimum zero-padded width of the numeric part.
const idDigits = 4

// FormatID builds a human-readable sequential ID such as L0001.
func FormatID(prefix string, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, idDigits, n)
}

// ParseID validates id against prefix and returns its sequence number.
func ParseID(prefix, id string) (int64, error) {
	if len(id) < len(prefix)+idDigits || id[:len(prefix)] != prefix {
		return 0, Validation("id", "malformed %s id %q", prefix, id)
	}
	digits := id[len(prefix):]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, Validation("id", "malformed %s id %q", prefix, id)
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return 0, Validation("id", "malformed %s id %q", prefix, id)
	}
	return n, nil
}

// PrefixFor returns the ID prefix used for kind.
func PrefixFor(kind string) string {
	switch kind {
	case KindLost:
		return PrefixLost
	case KindFound:
		return PrefixFound
	case KindMatch:
		return PrefixMatch
	}
	return ""
}
