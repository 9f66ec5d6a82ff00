// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// PageWindow parses 1-based page and page-size query values. Missing or
// malformed values fall back to page 1 and defSize; the size is capped at
// maxSize.
func PageWindow(page, size string, defSize, maxSize int) (int, int) {
	p := AtoiDefault(page, 1)
	if p < 1 {
		p = 1
	}
	return p, Clamp(AtoiDefault(size, defSize), 1, maxSize)
}

// OffsetWindow parses limit/offset query values the same way. A negative
// offset becomes 0.
func OffsetWindow(limit, offset string, defLimit, maxLimit int) (int, int) {
	l := Clamp(AtoiDefault(limit, defLimit), 1, maxLimit)
	o := AtoiDefault(offset, 0)
	if o < 0 {
		o = 0
	}
	return l, o
}

// TotalPages returns the number of pages of size needed for total items.
func TotalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
