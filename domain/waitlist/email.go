package waitlist

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeEmail trims surrounding whitespace and case-folds the address so
// that "A@x.io" and "a@x.io " land on the same entry.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}
