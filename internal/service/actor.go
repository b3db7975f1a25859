package service

import "github.com/sefazor/coaching-backend/internal/models"

// Actor is the authenticated caller as seen by the services.
type Actor struct {
	ID   uint
	Role models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
