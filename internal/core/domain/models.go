package domain

// RegisterRequest is the input of the register operation.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest is the input of the login operation.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest is the input of the forgot-password operation.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ChangePasswordRequest is the input of the change-password operation.
type ChangePasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// FieldError reports a business failure tied to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// UserResponse carries either a user or a list of field errors.
type UserResponse struct {
	Errors []FieldError `json:"errors"`
	User   *User        `json:"user"`
}

// Failed builds a response holding a single field error.
func Failed(field, message string) *UserResponse {
	return &UserResponse{Errors: []FieldError{{Field: field, Message: message}}}
}

// Succeeded builds a response holding the user.
func Succeeded(user *User) *UserResponse {
	return &UserResponse{User: user}
}
