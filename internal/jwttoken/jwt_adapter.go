package jwttoken

import (
	"beacon/internal/platform/middleware"
)

// ServiceAdapter exposes the token service as the middleware's validator.
type ServiceAdapter struct {
	service *Service
}

// NewServiceAdapter wraps a token service for the auth middleware.
func NewServiceAdapter(service *Service) *ServiceAdapter {
	return &ServiceAdapter{service: service}
}

func (a *ServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		UserID:      claims.UserID,
		Role:        claims.Role,
		ResponderID: claims.ResponderID,
	}, nil
}
