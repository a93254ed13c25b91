// Package usercode normalises device user codes typed by people
package usercode

import (
	"fmt"
	"strings"
)

const (
	// Length is the number of significant characters in a user code
	Length = 8

	// Charset holds the characters the API issues user codes from. It
	// excludes vowels and look-alike characters.
	Charset = "BCDFGHJKLMNPQRSTVWXZ"
)

// ValidationError reports why a user code was rejected
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid user code %q: %s", e.Code, e.Message)
}

// Normalize converts a user code to canonical form: upper case, with
// spaces and hyphens removed
func Normalize(code string) string {
	code = strings.ToUpper(code)
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, code)
}

// Format converts a normalised code back to XXXX-XXXX display form
func Format(code string) string {
	if len(code) != Length {
		return code
	}
	mid := Length / 2
	return code[:mid] + "-" + code[mid:]
}

// Parse normalises and validates code, returning its display form
func Parse(code string) (string, error) {
	normalized := Normalize(code)

	if len(normalized) != Length {
		return "", &ValidationError{
			Code:    code,
			Message: fmt.Sprintf("must contain exactly %d characters", Length),
		}
	}

	for _, r := range normalized {
		if !strings.ContainsRune(Charset, r) {
			return "", &ValidationError{
				Code:    code,
				Message: fmt.Sprintf("character %q is not in %s", r, Charset),
			}
		}
	}

	return Format(normalized), nil
}
