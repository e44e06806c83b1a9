// Package phone converts raw, user-entered phone strings into the canonical
// key space used by the completion index.
//
// A canonical key is "+" followed by digits. Numbers without an explicit
// international prefix are assumed to belong to the domestic numbering plan and
// are rewritten with the domestic prefix (DefaultDomesticPrefix unless configured).
package phone

import "strings"

const (
	// DefaultDomesticPrefix marks a number as domestic with its country code
	// stripped or never typed.
	DefaultDomesticPrefix = "+01"

	// domesticLength is the digit count of a complete domestic number.
	domesticLength = 10

	// longDistanceDigit is the redundant trunk digit some callers type in front
	// of a domestic number.
	longDistanceDigit = '1'
)

// separators are removed anywhere in the input.
var separators = strings.NewReplacer("-", "", " ", "", ".", "", "(", "", ")", "")

// Clean strips separator characters and surrounding whitespace.
// It applies no validation; the result may be empty.
func Clean(raw string) string {
	return strings.TrimSpace(separators.Replace(raw))
}

// Normalizer turns raw phone strings into canonical keys.
// The zero value uses DefaultDomesticPrefix.
type Normalizer struct {
	// DomesticPrefix is prepended to domestic numbers.
	DomesticPrefix string
}

// Normalize returns the canonical key for raw and true, or "" and false when
// the number is too short, ambiguous or otherwise not confidently canonical.
// Numbers typed with "+" are kept as typed when only digits follow.
// Dropping such numbers is intentional: an unindexed number is preferred over
// one indexed under the wrong key.
func (n Normalizer) Normalize(raw string) (string, bool) {
	s := Clean(raw)
	if s == "" {
		return "", false
	}
	if s[0] == '+' {
		if !IsCanonical(s) {
			return "", false
		}
		return s, true
	}

	switch {
	case len(s) == domesticLength+1 && s[0] == longDistanceDigit:
		s = s[1:]
	case len(s) < domesticLength:
		return "", false
	case len(s) > domesticLength:
		// international number without "+": never guess its country code
		return "", false
	}

	if !isDigits(s) {
		return "", false
	}
	return n.prefix() + s, true
}

func (n Normalizer) prefix() string {
	if n.DomesticPrefix == "" {
		return DefaultDomesticPrefix
	}
	return n.DomesticPrefix
}

// Normalize normalizes raw with the default domestic prefix.
func Normalize(raw string) (string, bool) {
	return Normalizer{}.Normalize(raw)
}

// IsCanonical reports whether key is "+" followed by at least one digit.
func IsCanonical(key string) bool {
	return len(key) > 1 && key[0] == '+' && isDigits(key[1:])
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
