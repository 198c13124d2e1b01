// Package v1 provides authentication business logic for API version 1.
//
// Error Handling:
// Expected business outcomes (duplicate email, unknown email, wrong password,
// expired reset token) are not errors. They are returned as field-scoped
// errors inside domain.UserResponse so the client can attach them to a form
// field. Go errors are reserved for two cases:
//
//   - Invalid input, rejected before any store access. These are
//     *ValidationError values and match ErrInvalidInput with errors.Is.
//   - Infrastructure failures (database, Redis, hashing). These are wrapped
//     with fmt.Errorf("%w") and should be reported as 500.
//
// Error Checking (in handlers):
//
//	var verr *logicv1.ValidationError
//	switch {
//	case errors.As(err, &verr):
//	    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": verr.Messages()})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
//	}
package v1

import "errors"

// Sentinel errors for authentication operations.
var (
	// ErrInvalidInput indicates the request failed validation.
	// HTTP Status: 400 Bad Request
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidHash indicates a stored password hash could not be parsed.
	// HTTP Status: 500 Internal Server Error
	ErrInvalidHash = errors.New("invalid password hash")

	// ErrEmptyPassword indicates an attempt to hash an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// Field-scoped messages returned inside domain.UserResponse.
const (
	MsgEmailExists       = "email already exist"
	MsgEmailNotFound     = "that email doesn't exist"
	MsgIncorrectPassword = "incorrect password"
	MsgTokenExpired      = "token expired"
	MsgUserGone          = "user no longer exists"
)

// Field names used in field-scoped errors.
const (
	FieldEmail       = "email"
	FieldName        = "name"
	FieldPassword    = "password"
	FieldToken       = "token"
	FieldNewPassword = "newPassword"
)
