package customer

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^[0-9()+\-\s]{6,}$`)
)

// ValidateCreate checks a full payload against the directory field
// rules. Every field is evaluated; the returned *ValidationError
// carries one entry per violation.
func ValidateCreate(req CreateRequest) error {
	var fields []FieldError

	if strings.TrimSpace(req.FirstName) == "" {
		fields = append(fields, FieldError{Field: "first_name", Message: "is required"})
	}
	fields = appendEmailErrors(fields, req.Email, true)
	fields = appendPhoneErrors(fields, req.Phone, true)
	if req.Status != "" && req.Status != StatusActive && req.Status != StatusInactive {
		fields = append(fields, FieldError{Field: "status", Message: `must be "active" or "inactive"`})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ValidateUpdate checks only the fields present in a partial payload.
// A provided field may not clear a required value.
func ValidateUpdate(req UpdateRequest) error {
	var fields []FieldError

	if req.FirstName != nil && strings.TrimSpace(*req.FirstName) == "" {
		fields = append(fields, FieldError{Field: "first_name", Message: "is required"})
	}
	if req.Email != nil {
		fields = appendEmailErrors(fields, *req.Email, true)
	}
	if req.Phone != nil {
		fields = appendPhoneErrors(fields, *req.Phone, true)
	}
	if req.Status != nil && *req.Status != StatusActive && *req.Status != StatusInactive {
		fields = append(fields, FieldError{Field: "status", Message: `must be "active" or "inactive"`})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func appendEmailErrors(fields []FieldError, email string, required bool) []FieldError {
	email = strings.TrimSpace(email)
	switch {
	case email == "" && required:
		return append(fields, FieldError{Field: "email", Message: "is required"})
	case email != "" && !emailPattern.MatchString(email):
		return append(fields, FieldError{Field: "email", Message: "is not a valid email address"})
	}
	return fields
}

func appendPhoneErrors(fields []FieldError, phone string, required bool) []FieldError {
	phone = strings.TrimSpace(phone)
	switch {
	case phone == "" && required:
		return append(fields, FieldError{Field: "phone", Message: "is required"})
	case phone != "" && !phonePattern.MatchString(phone):
		return append(fields, FieldError{Field: "phone", Message: "must be at least 6 digits, spaces or ()+-"})
	}
	return fields
}

// NormalizeStatus maps the spellings accepted on CSV import onto a
// Status. The empty string defaults to active, matching the directory's
// create default.
func NormalizeStatus(raw string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "active", "activo", "1":
		return StatusActive, true
	case "inactive", "inactivo", "0":
		return StatusInactive, true
	default:
		return "", false
	}
}
