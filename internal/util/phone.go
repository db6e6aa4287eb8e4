package util

import (
	"regexp"
	"strings"
)

var nonPhoneChars = regexp.MustCompile(`[^\d\+]+`)

// NormalizePhone tries to normalize Chilean user input into E.164 (+56...).
// Numbers that already carry a country code are left as they are.
func NormalizePhone(raw string) string {
	s := nonPhoneChars.ReplaceAllString(strings.TrimSpace(raw), "")

	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "+"):
		return s
	case strings.HasPrefix(s, "00"):
		s = "+" + s[2:]
	case strings.HasPrefix(s, "56") && len(s) == 11:
		s = "+" + s
	case strings.HasPrefix(s, "9") && len(s) == 9: // mobile without country code
		s = "+56" + s
	case strings.HasPrefix(s, "2") && len(s) == 9: // Santiago landline
		s = "+56" + s
	}

	return s
}
