package utils

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinRoomNameLength    = 3
	MaxRoomNameLength    = 30
	MinDisplayNameLength = 3
	MaxDisplayNameLength = 20
	MaxDescriptionLength = 100
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator provides validation methods
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, &ValidationError{
		Field:   field,
		Message: message,
	})
}

// Errors returns all validation errors
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Required checks if a string is not empty
func (v *Validator) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
		return false
	}
	return true
}

// Length checks that value has between min and max runes.
func (v *Validator) Length(field, value string, min, max int) bool {
	length := utf8.RuneCountInString(value)
	if length < min || length > max {
		v.AddError(field, "must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max)+" characters")
		return false
	}
	return true
}

// MaxLength checks if a string doesn't exceed maximum length
func (v *Validator) MaxLength(field, value string, max int) bool {
	if utf8.RuneCountInString(value) > max {
		v.AddError(field, "must be at most "+strconv.Itoa(max)+" characters")
		return false
	}
	return true
}

// ValidateRoomName validates a trimmed room name
func (v *Validator) ValidateRoomName(field, value string) bool {
	if !v.Required(field, value) {
		return false
	}
	return v.Length(field, value, MinRoomNameLength, MaxRoomNameLength)
}

// ValidateDisplayName validates a trimmed display name
func (v *Validator) ValidateDisplayName(field, value string) bool {
	if !v.Required(field, value) {
		return false
	}
	return v.Length(field, value, MinDisplayNameLength, MaxDisplayNameLength)
}

// ValidateRoomPassword validates an optional room password. Empty means none.
func (v *Validator) ValidateRoomPassword(field, value string) bool {
	if value == "" {
		return true
	}
	if err := ValidatePassword(value); err != nil {
		v.AddError(field, "must be between "+strconv.Itoa(MinPasswordLength)+" and "+strconv.Itoa(MaxPasswordLength)+" characters")
		return false
	}
	return true
}

// ValidateMessageContent validates trimmed message content
func (v *Validator) ValidateMessageContent(field, value string, max int) bool {
	if !v.Required(field, value) {
		return false
	}
	return v.MaxLength(field, value, max)
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// SanitizeString removes potentially dangerous characters
func SanitizeString(s string) string {
	// Remove null bytes and control characters
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
