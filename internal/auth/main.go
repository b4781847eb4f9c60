package auth

import (
	"net/http"

	"calsync.casaflow.app/internal/models"
)

// Service guards the trigger and preview endpoints. The dashboard owns
// sign-in; this service only verifies the access token it planted.
type Service interface {
	Access(next http.HandlerFunc) http.HandlerFunc
	GetUser(accessToken string) (*models.User, error)
}
