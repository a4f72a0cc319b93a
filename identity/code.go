package identity

import (
	"fmt"
	"regexp"
	"strings"
)

// CodeLength is the number of slugs in an identity code
const CodeLength = 4

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:_[a-z0-9]+)*$`)

// ParseCode normalises and checks an identity code: exactly four non-empty
// lowercase slugs. Surrounding whitespace is trimmed and letters lowercased.
func ParseCode(code []string) ([]string, error) {
	if len(code) != CodeLength {
		return nil, fmt.Errorf("code must have %d parts, got %d", CodeLength, len(code))
	}
	out := make([]string, len(code))
	for i, part := range code {
		slug := strings.ToLower(strings.TrimSpace(part))
		if slug == "" {
			return nil, fmt.Errorf("code part %d is empty", i+1)
		}
		if !slugPattern.MatchString(slug) {
			return nil, fmt.Errorf("code part %d %q is not a slug", i+1, part)
		}
		out[i] = slug
	}
	return out, nil
}

// ParseCodeString accepts a code written as "cat-sun-apple-car" or with spaces
func ParseCodeString(s string) ([]string, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == ' ' || r == ','
	})
	return ParseCode(parts)
}

// CodeKey is the path form of a code: the slugs joined with '-'
func CodeKey(code []string) string {
	return strings.Join(code, "-")
}
