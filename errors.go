package garage

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProviderFailure    = errors.New("identity provider failure")
)

// Messages shown to the user.
const (
	MsgInvalidCredentials = "These credentials do not match our records."
	MsgEmailTaken         = "The email has already been taken."
	MsgProviderFailure    = "Could not sign in with %s."
	MsgLoggedIn           = "You are now signed in."
	MsgRegistered         = "Registration successful! Welcome."
	MsgWelcome            = "Welcome, %s!"
	MsgLoggedOut          = "You have been signed out."
	MsgPasswordUpdated    = "Your password has been updated."
	MsgLoginRequired      = "Please sign in to continue."
)

// FieldErrors maps form field names to a message.
type FieldErrors map[string]string

// ValidationError is returned when submitted input is rejected. Fields
// holds one message per offending field.
type ValidationError struct {
	Fields FieldErrors
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: FieldErrors{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
