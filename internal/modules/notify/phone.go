package notify

import "strings"

// FormatPhone normalizes a phone number to +<country><national>. The second
// return is false when nothing usable remains.
func FormatPhone(raw, countryCode string) (string, bool) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", false
		}
	}
	p := b.String()
	switch {
	case p == "" || p == "+":
		return "", false
	case strings.HasPrefix(p, "+"):
	case strings.HasPrefix(p, countryCode):
		p = "+" + p
	case strings.HasPrefix(p, "0"):
		p = "+" + countryCode + p[1:]
	default:
		p = "+" + countryCode + p
	}
	if len(p) < 8 {
		return "", false
	}
	return p, true
}
