// utils/validation.go
package utils

import (
	"errors"
	"regexp"
	"strings"
)

var (
	nonDigit   = regexp.MustCompile(`\D`)
	e164       = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone turns a local or international number into E.164.
// A leading 0 is replaced with countryCode.
func NormalizePhone(phone, countryCode string) (string, error) {
	digits := nonDigit.ReplaceAllString(phone, "")
	if strings.HasPrefix(digits, "0") {
		digits = countryCode + digits[1:]
	}
	normalized := "+" + digits
	if !ValidatePhone(normalized) {
		return "", ErrInvalidPhone
	}
	return normalized, nil
}

// ValidatePhone checks if a phone number is in E.164 format.
func ValidatePhone(phone string) bool {
	return e164.MatchString(phone)
}

func ValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}
