package api

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits for submissions and registration. Lengths are measured in
// runes so multibyte names are not penalized.
const (
	NameMinLen     = 2
	NameMaxLen     = 100
	MessageMinLen  = 10
	MessageMaxLen  = 1000
	PhoneMinLen    = 10
	PhoneMaxLen    = 20
	PasswordMinLen = 8
)

var (
	// emailPattern is intentionally permissive: one @ with non-empty
	// local part and a dotted domain. Deliverability is not checked.
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	// phonePattern allows digits plus common formatting characters.
	phonePattern = regexp.MustCompile(`^[\d\s\+\-\(\)]+$`)
)

// FieldError describes a single failed validation check.
type FieldError struct {
	Field   string
	Reason  string // ReasonMissingField or ReasonInvalidField
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks that an email is present and plausibly formed.
func ValidateEmail(email string) *FieldError {
	email = strings.TrimSpace(email)
	if email == "" {
		return &FieldError{Field: "email", Reason: ReasonMissingField, Message: "email is required"}
	}
	if !emailPattern.MatchString(email) {
		return &FieldError{Field: "email", Reason: ReasonInvalidField, Message: "email is not a valid address"}
	}
	return nil
}

// ValidateName checks the name length bounds shared by registration and
// enquiry submission.
func ValidateName(name string) *FieldError {
	name = strings.TrimSpace(name)
	if name == "" {
		return &FieldError{Field: "name", Reason: ReasonMissingField, Message: "name is required"}
	}
	if n := utf8.RuneCountInString(name); n < NameMinLen || n > NameMaxLen {
		return &FieldError{
			Field:   "name",
			Reason:  ReasonInvalidField,
			Message: fmt.Sprintf("name must be between %d and %d characters", NameMinLen, NameMaxLen),
		}
	}
	return nil
}

// ValidatePassword checks the minimum password length at registration.
func ValidatePassword(password string) *FieldError {
	if password == "" {
		return &FieldError{Field: "password", Reason: ReasonMissingField, Message: "password is required"}
	}
	if utf8.RuneCountInString(password) < PasswordMinLen {
		return &FieldError{
			Field:   "password",
			Reason:  ReasonInvalidField,
			Message: fmt.Sprintf("password must be at least %d characters", PasswordMinLen),
		}
	}
	return nil
}

// ValidateMessage checks the enquiry message length bounds.
func ValidateMessage(message string) *FieldError {
	message = strings.TrimSpace(message)
	if message == "" {
		return &FieldError{Field: "message", Reason: ReasonMissingField, Message: "message is required"}
	}
	if n := utf8.RuneCountInString(message); n < MessageMinLen || n > MessageMaxLen {
		return &FieldError{
			Field:   "message",
			Reason:  ReasonInvalidField,
			Message: fmt.Sprintf("message must be between %d and %d characters", MessageMinLen, MessageMaxLen),
		}
	}
	return nil
}

// ValidatePhone checks an optional phone number. Empty is accepted.
func ValidatePhone(phone string) *FieldError {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil
	}
	if n := len(phone); n < PhoneMinLen || n > PhoneMaxLen {
		return &FieldError{
			Field:   "phone",
			Reason:  ReasonInvalidField,
			Message: fmt.Sprintf("phone must be between %d and %d characters", PhoneMinLen, PhoneMaxLen),
		}
	}
	if !phonePattern.MatchString(phone) {
		return &FieldError{Field: "phone", Reason: ReasonInvalidField, Message: "phone contains invalid characters"}
	}
	return nil
}
