package service

import (
	"crypto/subtle"
	"fmt"
	"time"

	"weddingrsvp/internal/security"
)

// AdminAuthService checks the single admin's credentials and issues bearer tokens
type AdminAuthService struct {
	username     string
	passwordHash string
	tokens       *security.TokenIssuer
}

// NewAdminAuthService creates the admin auth service. A plain password is
// hashed once here when no hash is configured.
func NewAdminAuthService(username, password, passwordHash string, tokens *security.TokenIssuer) (*AdminAuthService, error) {
	if passwordHash == "" {
		if password == "" {
			return nil, fmt.Errorf("admin password or password hash is required")
		}
		hash, err := security.HashPassword(password)
		if err != nil {
			return nil, err
		}
		passwordHash = hash
	}
	return &AdminAuthService{
		username:     username,
		passwordHash: passwordHash,
		tokens:       tokens,
	}, nil
}

// Login verifies the credentials and returns a token with its expiry
func (s *AdminAuthService) Login(username, password string) (string, time.Time, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := security.CheckPassword(password, s.passwordHash)
	if !userOK || !passOK {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.tokens.Issue(username)
}

// Authenticate returns the admin username carried by a valid token
func (s *AdminAuthService) Authenticate(token string) (string, error) {
	subject, err := s.tokens.Verify(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	return subject, nil
}
