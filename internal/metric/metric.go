// Package metric derives relative changes from resolved prices.
package metric

import "math"

// ChangePercent returns (current-reference)/reference*100, or nil when either
// input is missing or not finite, or reference is exactly zero.
// Negative and tiny references are not special-cased.
func ChangePercent(current, reference *float64) *float64 {
	if current == nil || reference == nil {
		return nil
	}
	c, r := *current, *reference
	if !finite(c) || !finite(r) || r == 0 {
		return nil
	}
	v := (c - r) / r * 100
	if !finite(v) {
		return nil
	}
	return &v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
