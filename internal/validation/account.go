// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the shortest password accepted at signup.
	MinPasswordLength = 8
	maxPasswordLength = 128
	maxUsernameLength = 150
	maxEmailLength    = 254
)

var (
	usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}.@+_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var commonPasswords = map[string]struct{}{
	"password":  {},
	"password1": {},
	"12345678":  {},
	"123456789": {},
	"qwerty123": {},
	"iloveyou":  {},
	"11111111":  {},
	"abc12345":  {},
}

// ValidatePassword checks a signup password. username may be empty.
func ValidatePassword(password, username string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if n > maxPasswordLength {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLength)
	}

	allDigits := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	if allDigits {
		return fmt.Errorf("password cannot be entirely numeric")
	}

	if _, common := commonPasswords[strings.ToLower(password)]; common {
		return fmt.Errorf("password is too common")
	}

	if username != "" && strings.Contains(strings.ToLower(password), strings.ToLower(username)) {
		return fmt.Errorf("password is too similar to the username")
	}

	return nil
}

// ValidateUsername accepts letters, digits and @/./+/-/_ up to 150 characters.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return fmt.Errorf("username must not exceed %d characters", maxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username may contain only letters, numbers, and @/./+/-/_ characters")
	}
	if IsReservedPath(username) {
		return fmt.Errorf("username is reserved")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > maxEmailLength {
		return fmt.Errorf("email must not exceed %d characters", maxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}
