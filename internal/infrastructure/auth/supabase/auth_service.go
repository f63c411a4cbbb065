package supabase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	supabase "github.com/nedpals/supabase-go"

	"github.com/terrawatt/terrawatt/internal/domain/services"
)

// AuthService validates bearer credentials against Supabase Auth. This is
// the only place the external auth layer is touched; everything downstream
// works with the trusted actor identity.
type AuthService struct {
	client *supabase.Client
}

type Config struct {
	URL    string
	APIKey string
}

func NewAuthService(config Config) (*AuthService, error) {
	client := supabase.CreateClient(config.URL, config.APIKey)
	if client == nil {
		return nil, fmt.Errorf("failed to create Supabase client")
	}

	return &AuthService{
		client: client,
	}, nil
}

func (s *AuthService) ValidateToken(accessToken string) (*services.AuthUser, error) {
	ctx := context.Background()

	user, err := s.client.Auth.User(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("token does not resolve to a user")
	}

	id, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id in token: %w", err)
	}

	return &services.AuthUser{
		ID:    id,
		Email: user.Email,
	}, nil
}
