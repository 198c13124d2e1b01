package v1

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/duynhne/user-auth/internal/core/domain"
)

// Password length bounds, in characters.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 100
)

var validate = validator.New()

// ValidationError lists every input problem found in a request.
type ValidationError struct {
	Violations []domain.FieldError
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Messages(), "; ")
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Messages renders each violation as `"field" message`.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, fmt.Sprintf("%q %s", v.Field, v.Message))
	}
	return msgs
}

type checks struct {
	violations []domain.FieldError
}

func (c *checks) add(field, message string) {
	c.violations = append(c.violations, domain.FieldError{Field: field, Message: message})
}

func (c *checks) email(field, value string) {
	if value == "" {
		c.add(field, "is required")
		return
	}
	if err := validate.Var(value, "email"); err != nil {
		c.add(field, "must be a valid email")
	}
}

func (c *checks) password(field, value string) {
	n := utf8.RuneCountInString(value)
	switch {
	case value == "":
		c.add(field, "is required")
	case n < MinPasswordLength:
		c.add(field, fmt.Sprintf("length must be at least %d characters long", MinPasswordLength))
	case n > MaxPasswordLength:
		c.add(field, fmt.Sprintf("length must be less than or equal to %d characters long", MaxPasswordLength))
	}
}

func (c *checks) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.add(field, "is required")
	}
}

func (c *checks) err() error {
	if len(c.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: c.violations}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegister normalizes req in place and validates it.
func ValidateRegister(req *domain.RegisterRequest) error {
	req.Email = NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	var c checks
	c.email(FieldEmail, req.Email)
	c.required(FieldName, req.Name)
	c.password(FieldPassword, req.Password)
	return c.err()
}

// ValidateLogin normalizes req in place and validates it.
func ValidateLogin(req *domain.LoginRequest) error {
	req.Email = NormalizeEmail(req.Email)

	var c checks
	c.email(FieldEmail, req.Email)
	c.password(FieldPassword, req.Password)
	return c.err()
}

// ValidateForgotPassword normalizes req in place and validates it.
func ValidateForgotPassword(req *domain.ForgotPasswordRequest) error {
	req.Email = NormalizeEmail(req.Email)

	var c checks
	c.email(FieldEmail, req.Email)
	return c.err()
}

// ValidateChangePassword validates req.
func ValidateChangePassword(req *domain.ChangePasswordRequest) error {
	req.Token = strings.TrimSpace(req.Token)

	var c checks
	c.required(FieldToken, req.Token)
	c.password(FieldNewPassword, req.NewPassword)
	return c.err()
}
