package handler

import (
	"strings"

	"govportal/internal/account/models"
	dErrors "govportal/pkg/domain-errors"
)

const maxFieldLength = 255

// SignupRequest is the body of POST /api/auth/signup. The snake_case name
// fields are accepted for forms that post them that way.
type SignupRequest struct {
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	FirstNameSnake string  `json:"first_name"`
	LastNameSnake  string  `json:"last_name"`
	Phone          string  `json:"phone"`
	Address        *string `json:"address"`
	City           *string `json:"city"`
	Zip            *string `json:"zip"`
}

func (r *SignupRequest) Sanitize() {
	r.Email = models.NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.FirstName == "" {
		r.FirstName = strings.TrimSpace(r.FirstNameSnake)
	}
	if r.LastName == "" {
		r.LastName = strings.TrimSpace(r.LastNameSnake)
	}
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = trimOptional(r.Address)
	r.City = trimOptional(r.City)
	r.Zip = trimOptional(r.Zip)
}

func (r *SignupRequest) Validate() error {
	if r.Email == "" || r.Password == "" || r.FirstName == "" || r.LastName == "" || r.Phone == "" {
		return dErrors.New(dErrors.CodeValidation, "Missing required fields")
	}
	if !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "Invalid email address")
	}
	for _, v := range []string{r.Email, r.FirstName, r.LastName, r.Phone} {
		if len(v) > maxFieldLength {
			return dErrors.New(dErrors.CodeValidation, "Field too long")
		}
	}
	return nil
}

func (r *SignupRequest) Profile() models.Profile {
	return models.Profile{
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Address:   r.Address,
		City:      r.City,
		Zip:       r.Zip,
	}
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Sanitize() {
	r.Email = models.NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "Email and password required")
	}
	return nil
}

// trimOptional returns nil for absent or blank values.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
