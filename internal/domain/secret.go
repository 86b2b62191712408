package domain

import "strings"

// ValidateSecret accepts values that survive a first-line read unchanged.
func ValidateSecret(value string) error {
	if strings.TrimSpace(value) == "" || strings.ContainsAny(value, "\r\n") {
		return ErrInvalidSecret
	}
	return nil
}
