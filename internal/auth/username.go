package auth

import (
	"errors"
	"strings"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
)

var ErrInvalidUsername = errors.New("username must be 3-50 characters and contain only letters, digits or underscores")

// NormalizeUsername trims the input and checks it against the username rules.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return "", ErrInvalidUsername
	}
	for _, ch := range username {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '_':
		default:
			return "", ErrInvalidUsername
		}
	}
	return username, nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
