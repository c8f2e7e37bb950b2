package validation

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

var (
	postalCodeRegex = regexp.MustCompile(`^[0-9]{2}-[0-9]{3}$`)
	phoneRegex      = regexp.MustCompile(`^\+?[0-9]{9,15}$`)
)

// ValidatePostalCode accepts Polish postal codes such as 30-001.
func ValidatePostalCode(code string) error {
	if !postalCodeRegex.MatchString(code) {
		return fmt.Errorf("postal code must have the form NN-NNN")
	}
	return nil
}

// ValidatePhone accepts 9 to 15 digits with an optional leading +. Empty is allowed.
func ValidatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("phone number must contain 9 to 15 digits")
	}
	return nil
}

// ValidateMaxLength checks a free-text field against a rune limit.
func ValidateMaxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s must not exceed %d characters", field, max)
	}
	return nil
}

// ValidateRequired rejects an empty value for field.
func ValidateRequired(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}
