// utils/callsign.go
package utils

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)

	// US amateur call signs: 1-2 letter prefix, one digit, 1-3 letter suffix.
	callSignPattern = regexp.MustCompile(`^[AKNW][A-Z]?[0-9][A-Z]{1,3}$`)
	regionPattern   = regexp.MustCompile(`^[A-Z]{2}$`)
)

// NormalizeCallSign upper-cases a call sign and strips surrounding and inner
// whitespace, so " k1 abc" becomes "K1ABC".
func NormalizeCallSign(callSign string) string {
	return upper.String(strings.Join(strings.Fields(callSign), ""))
}

// LooksLikeCallSign reports whether a normalized call sign has the shape of
// a US amateur call sign. Lookups do not require it; it only drives hints.
func LooksLikeCallSign(callSign string) bool {
	return callSignPattern.MatchString(callSign)
}

// NormalizeRegion upper-cases a two-letter state/territory code.
func NormalizeRegion(region string) string {
	return upper.String(strings.TrimSpace(region))
}

// ValidRegion reports whether a normalized region is a two-letter code.
func ValidRegion(region string) bool {
	return regionPattern.MatchString(region)
}

// NamePattern builds a lower-cased LIKE pattern matching name anywhere in a
// column. LIKE wildcards in the input are escaped with '\'.
func NamePattern(name string) string {
	n := lower.String(strings.TrimSpace(name))
	n = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(n)
	return "%" + n + "%"
}
