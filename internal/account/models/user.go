package models

import (
	"strings"
	"time"

	"govportal/internal/session"
	id "govportal/pkg/domain"
	dErrors "govportal/pkg/domain-errors"
)

// User is a registered portal account. Email is stored trimmed and lowercased
// and is unique across accounts.
type User struct {
	ID           id.UserID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Address      *string
	City         *string
	Zip          *string
	CreatedAt    time.Time
}

// Profile is the registration input after normalization.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Address   *string
	City      *string
	Zip       *string
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser builds a user from a profile and a password hash.
func NewUser(userID id.UserID, p Profile, passwordHash string, now time.Time) (*User, error) {
	if p.Email == "" || p.FirstName == "" || p.LastName == "" || p.Phone == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user requires email, first name, last name and phone")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user requires a password hash")
	}
	return &User{
		ID:           userID,
		Email:        p.Email,
		PasswordHash: passwordHash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Phone:        p.Phone,
		Address:      p.Address,
		City:         p.City,
		Zip:          p.Zip,
		CreatedAt:    now,
	}, nil
}

// DisplayName is "First Last".
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// Authenticated is a user together with a freshly issued session.
type Authenticated struct {
	User    *User
	Session session.Issued
}
