package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// BloodGroups is the enumerated set printed on cards.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// IntN is the slice of math/rand/v2's *Rand used by the generators.
type IntN interface {
	IntN(n int) int
}

// PickRandom returns a uniformly chosen member of set. It reports false for an
// empty set.
func PickRandom[T any](set []T, rng IntN) (T, bool) {
	var zero T
	if len(set) == 0 || rng == nil {
		return zero, false
	}
	return set[rng.IntN(len(set))], true
}

// StudentID derives a printed student number: the first three letters of the
// institution short name followed by six digits.
func StudentID(shortName string, rng IntN) string {
	var prefix strings.Builder
	for _, r := range shortName {
		if prefix.Len() >= 3 {
			break
		}
		if unicode.IsLetter(r) {
			prefix.WriteRune(unicode.ToUpper(r))
		}
	}
	return fmt.Sprintf("%s%06d", prefix.String(), 100000+rng.IntN(900000))
}
