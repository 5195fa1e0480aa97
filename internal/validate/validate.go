package validate

import (
	"regexp"
	"strings"
	"unicode"
)

// ErrorKind classifies a field-level validation failure. Validation never
// reaches the network; a non-Valid result blocks submission in the flow.
type ErrorKind int

const (
	Valid ErrorKind = iota
	Required
	InvalidEmailFormat
	PasswordTooShort
	PasswordMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case Valid:
		return "valid"
	case Required:
		return "required"
	case InvalidEmailFormat:
		return "invalid_email_format"
	case PasswordTooShort:
		return "password_too_short"
	case PasswordMismatch:
		return "password_mismatch"
	default:
		return "unknown"
	}
}

// FieldError ties an ErrorKind to the field it was reported for.
type FieldError struct {
	Field string
	Kind  ErrorKind
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Kind.String()
}

// Check wraps a non-Valid kind into a *FieldError, nil otherwise.
func Check(field string, kind ErrorKind) error {
	if kind == Valid {
		return nil
	}
	return &FieldError{Field: field, Kind: kind}
}

// MinPasswordLength is the only hard gate; strength scoring is advisory.
const MinPasswordLength = 6

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Field checks a required free-text field.
func Field(value string) ErrorKind {
	if strings.TrimSpace(value) == "" {
		return Required
	}
	return Valid
}

// Email checks the local@domain.tld shape.
func Email(value string) ErrorKind {
	value = strings.TrimSpace(value)
	if value == "" {
		return Required
	}
	if !emailRegex.MatchString(value) {
		return InvalidEmailFormat
	}
	return Valid
}

// Password enforces the minimum-length gate.
func Password(value string) ErrorKind {
	if value == "" {
		return Required
	}
	if len(value) < MinPasswordLength {
		return PasswordTooShort
	}
	return Valid
}

// Confirm checks a confirmation field against its primary.
func Confirm(primary, confirmation string) ErrorKind {
	if primary != confirmation {
		return PasswordMismatch
	}
	return Valid
}

// Strength scores a password 0-5, one point per satisfied criterion:
// length>=6, length>=10, uppercase, digit, symbol.
func Strength(password string) int {
	score := 0
	if len(password) >= 6 {
		score++
	}
	if len(password) >= 10 {
		score++
	}

	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			hasSymbol = true
		}
	}

	if hasUpper {
		score++
	}
	if hasDigit {
		score++
	}
	if hasSymbol {
		score++
	}

	return score
}

type StrengthBucket string

const (
	StrengthWeak   StrengthBucket = "weak"
	StrengthMedium StrengthBucket = "medium"
	StrengthStrong StrengthBucket = "strong"
)

// Bucket maps a strength score onto the meter shown next to the password field.
func Bucket(score int) StrengthBucket {
	switch {
	case score <= 2:
		return StrengthWeak
	case score <= 4:
		return StrengthMedium
	default:
		return StrengthStrong
	}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
