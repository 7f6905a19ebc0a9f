package inventory

import (
	"strings"

	"golang.org/x/text/width"

	"library-backend/internal/platform/apperr"
)

// NormalizeISBN folds full-width digits, drops hyphens and spaces, and
// upper-cases the ISBN-10 check character.
func NormalizeISBN(raw string) (string, error) {
	s := width.Narrow.String(strings.TrimSpace(raw))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '-' || r == ' ':
			continue
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		default:
			return "", apperr.ErrInvalid("isbn may contain digits, hyphens and X only")
		}
	}
	out := b.String()
	switch len(out) {
	case 10:
		if strings.IndexByte(out[:9], 'X') >= 0 {
			return "", apperr.ErrInvalid("isbn-10 may only end with X")
		}
	case 13:
		if strings.IndexByte(out, 'X') >= 0 {
			return "", apperr.ErrInvalid("isbn-13 must be all digits")
		}
	default:
		return "", apperr.ErrInvalid("isbn must have 10 or 13 digits")
	}
	return out, nil
}
