package authgate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// normalizeIdentifier trims surrounding whitespace and accepts letters,
// digits and the characters . @ + - _ up to maxLen runes.
func normalizeIdentifier(identifier string, maxLen int) (string, error) {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return "", errors.New("identifier is required")
	}
	if !utf8.ValidString(id) {
		return "", errors.New("identifier is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(id); n > maxLen {
		return "", fmt.Errorf("identifier exceeds %d characters", maxLen)
	}
	for _, r := range id {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case r == '.', r == '@', r == '+', r == '-', r == '_':
		default:
			return "", fmt.Errorf("identifier contains invalid character %q", r)
		}
	}
	return id, nil
}

func (e *Engine) checkProfile(profile map[string]string) error {
	if len(profile) > e.config.Account.MaxProfileFields {
		return fmt.Errorf("profile has more than %d fields", e.config.Account.MaxProfileFields)
	}
	for k, v := range profile {
		if strings.TrimSpace(k) == "" {
			return errors.New("profile field name is empty")
		}
		if len(v) > e.config.Account.MaxProfileValueLen {
			return fmt.Errorf("profile field %q exceeds %d bytes", k, e.config.Account.MaxProfileValueLen)
		}
	}
	return nil
}
