// Package validation checks user-supplied identifiers before they reach the API.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Input length limits
const (
	MaxEmailLength = 320 // RFC 5321: 64 (local) + 1 (@) + 255 (domain)
	MaxTagLength   = 255
)

// ErrEmptyEmail is returned by Email for blank input.
var ErrEmptyEmail = errors.New("email is required")

var validate = validator.New()

// failedTag returns the validator tag that rejected the value.
func failedTag(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Tag()
	}
	return ""
}

// Email validates a bare subscriber address. Display-name forms such as
// "Jane <jane@example.com>" are rejected.
func Email(email string) error {
	if email == "" {
		return ErrEmptyEmail
	}
	if err := validate.Var(email, fmt.Sprintf("max=%d,email", MaxEmailLength)); err != nil {
		if failedTag(err) == "max" {
			return fmt.Errorf("invalid email %q: exceeds maximum length of %d characters", email, MaxEmailLength)
		}
		return fmt.Errorf("invalid email %q", email)
	}
	return nil
}

// Tag validates a single tag name.
func Tag(tag string) error {
	if strings.TrimSpace(tag) == "" {
		return errors.New("tag is required")
	}
	if err := validate.Var(tag, fmt.Sprintf("max=%d", MaxTagLength)); err != nil {
		return fmt.Errorf("tag exceeds maximum length of %d characters", MaxTagLength)
	}
	return nil
}

// AccountID validates an account identifier that is spliced into request paths.
func AccountID(id string) error {
	if id == "" {
		return errors.New("account id is required")
	}
	if strings.ContainsAny(id, "/?#% \t") {
		return fmt.Errorf("must be a plain account identifier, got %q", id)
	}
	return nil
}

// Endpoint validates an API base URL. Only http and https are accepted and a
// host is required.
func Endpoint(endpoint string) error {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: host is required", endpoint)
	}
	if u.User != nil {
		return fmt.Errorf("invalid endpoint %q: credentials are not allowed in the URL", endpoint)
	}
	return nil
}
