package session

import (
	authmw "govportal/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *Claims) *authmw.SessionClaims {
	return &authmw.SessionClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		JTI:    claims.ID,
	}
}

// JWTServiceAdapter exposes the JWT service through the middleware's validator interface.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.SessionClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
