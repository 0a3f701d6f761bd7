package handler

import (
	"time"

	"govportal/internal/account/models"
)

// UserResponse is the public view of an account. It never carries the password hash.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   *string   `json:"address"`
	City      *string   `json:"city"`
	Zip       *string   `json:"zip"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuthResponse struct {
	OK   bool          `json:"ok"`
	User *UserResponse `json:"user"`
}

type MeResponse struct {
	User *UserResponse `json:"user"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func toUserResponse(u *models.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Name:      u.DisplayName(),
		Phone:     u.Phone,
		Address:   u.Address,
		City:      u.City,
		Zip:       u.Zip,
		CreatedAt: u.CreatedAt,
	}
}
