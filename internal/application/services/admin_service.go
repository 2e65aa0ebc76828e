package services

import "crypto/subtle"

// AdminService checks the shared admin secret
type AdminService struct {
	secret []byte
}

// NewAdminService creates an admin service. An empty secret rejects every
// password.
func NewAdminService(secret string) *AdminService {
	return &AdminService{secret: []byte(secret)}
}

// Verify reports whether password matches the configured secret
func (s *AdminService) Verify(password string) bool {
	if len(s.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), s.secret) == 1
}
