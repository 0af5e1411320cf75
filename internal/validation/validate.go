// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nameRegex  = regexp.MustCompile(`^[A-Za-z]{2,}$`)
)

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("Invalid email format")
	}
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	return nil
}

// ValidatePassword checks if a password meets the minimum length requirement
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("Password must be at least 8 characters long")
	}
	if len(password) > 128 {
		return fmt.Errorf("password must not exceed 128 characters")
	}
	return nil
}

// ValidateName checks that a first or last name is at least 2 letters with no digits or symbols
func ValidateName(name string) error {
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("Names must be at least 2 letters and contain only alphabets")
	}
	return nil
}

// AllowedMediaTypes lists the MIME types accepted for uploaded media.
var AllowedMediaTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
}

// ValidateMediaType checks an uploaded media MIME type and returns the file extension to use.
func ValidateMediaType(mimeType string) (string, error) {
	ext, ok := AllowedMediaTypes[strings.ToLower(strings.TrimSpace(mimeType))]
	if !ok {
		return "", fmt.Errorf("unsupported media type %q", mimeType)
	}
	return ext, nil
}
