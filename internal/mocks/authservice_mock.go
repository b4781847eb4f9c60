package mocks

import (
	"context"
	"net/http"

	"calsync.casaflow.app/internal/auth"
	"calsync.casaflow.app/internal/constants"
	"calsync.casaflow.app/internal/models"
)

func NewMockedAuthService(userID string) auth.Service {
	return &MockedAuthService{
		userID: userID,
	}
}

type MockedAuthService struct {
	userID string
}

func (m *MockedAuthService) Access(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Inject a mock user into the context
		user := models.User{
			ID:    m.userID,
			Email: "host@example.com",
		}

		ctx := context.WithValue(r.Context(), constants.UserContextKey, user)
		r = r.WithContext(ctx)

		next(w, r)
	}
}

func (m *MockedAuthService) GetUser(_ string) (*models.User, error) {
	return &models.User{
		ID:    m.userID,
		Email: "host@example.com",
	}, nil
}
