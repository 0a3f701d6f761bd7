package models

import (
	"strings"
	"time"
)

// RateLimitResult reports the outcome of one admission check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// LoginEmailKey identifies the bucket shared by every IP for one email.
func LoginEmailKey(email string) string {
	return "rl:login-email:" + strings.ToLower(strings.TrimSpace(email))
}

// LoginKey identifies a login attempt bucket by normalized email and client IP.
func LoginKey(email, clientIP string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if clientIP == "" {
		clientIP = "unknown"
	}
	return "rl:login:" + email + ":" + clientIP
}
