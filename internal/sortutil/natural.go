// Package sortutil implements the natural (human) filename ordering used
// to sequence comic pages: embedded digit runs compare by numeric value,
// everything else compares case-insensitively.
package sortutil

import (
	"sort"
	"strings"
)

// NaturalCompare returns -1, 0 or 1 ordering a before, equal to, or
// after b. Strings are split into maximal runs of digits and non-digits;
// runs compare pairwise. Digit runs compare numerically without parsing
// to an integer (leading zeros stripped, then by length, then
// lexicographically) so arbitrarily long numbers cannot overflow.
// A digit run orders before a non-digit run, and a string whose runs are
// a strict prefix of the other's sorts first.
func NaturalCompare(a, b string) int {
	ia, ib := 0, 0
	for ia < len(a) && ib < len(b) {
		ra, digitA := nextRun(a, ia)
		rb, digitB := nextRun(b, ib)

		switch {
		case digitA && digitB:
			if c := compareNumericRuns(a[ia:ra], b[ib:rb]); c != 0 {
				return c
			}
		case digitA != digitB:
			// Numbers sort before text.
			if digitA {
				return -1
			}
			return 1
		default:
			ca := strings.ToLower(a[ia:ra])
			cb := strings.ToLower(b[ib:rb])
			if ca != cb {
				if ca < cb {
					return -1
				}
				return 1
			}
		}
		ia, ib = ra, rb
	}

	switch {
	case ia < len(a):
		return 1
	case ib < len(b):
		return -1
	}

	// Equal under natural rules ("01" vs "1", "A" vs "a"). Fall back to
	// a byte comparison so the order stays total and deterministic.
	return strings.Compare(a, b)
}

// nextRun returns the end index of the maximal digit or non-digit run
// starting at i, and whether it is a digit run.
func nextRun(s string, i int) (end int, digit bool) {
	digit = isDigit(s[i])
	end = i + 1
	for end < len(s) && isDigit(s[end]) == digit {
		end++
	}
	return end, digit
}

func compareNumericRuns(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// SortNatural sorts ss in place using NaturalCompare. The sort is
// stable: equal elements keep their input order.
func SortNatural(ss []string) {
	sort.SliceStable(ss, func(i, j int) bool {
		return NaturalCompare(ss[i], ss[j]) < 0
	})
}
