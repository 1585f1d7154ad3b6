package engine

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber renders a number for display. Formatting never feeds back into
// stored values.
//
// NaN renders as "0". Magnitudes at or above 1e12, and nonzero magnitudes
// below 1e-6, use exponential notation with 6 fractional digits. Everything
// else renders as a natural decimal string, rounded to 8 fixed decimals with
// trailing zeros stripped when the fraction runs longer than 8 digits.
func FormatNumber(num float64) string {
	if math.IsNaN(num) {
		return "0"
	}

	abs := math.Abs(num)
	if abs >= 1e12 || (abs < 1e-6 && num != 0) {
		return strconv.FormatFloat(num, 'e', 6, 64)
	}

	s := strconv.FormatFloat(num, 'f', -1, 64)
	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > 8 {
		s = strconv.FormatFloat(num, 'f', 8, 64)
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}
