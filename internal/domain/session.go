package domain

import "strings"

// Session mirrors the backend user as held by the client. At most one active
// session exists per client; it is created on login or registration, mutated
// on verification success or profile update, and destroyed on logout.
type Session struct {
	UserID          int64  `json:"userId"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

func (s *Session) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}
