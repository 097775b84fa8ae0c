package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sitestack-erp/sitestack-erp/internal/shared"
)

// Service wraps authentication business rules. Login establishes the
// principal for the session; Principal resolves a bearer token; Logout
// tears the session down.
type Service struct {
	repo   Repository
	tokens *TokenStore
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenStore) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Login validates email/password credentials, issues a bearer token and
// registers the session.
func (s *Service) Login(ctx context.Context, email, password, ip, ua string) (*shared.Principal, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}

	principal := &shared.Principal{
		ID:          user.ID,
		DisplayName: user.Name,
		Role:        user.RoleName,
		Token:       uuid.NewString(),
	}
	if err := s.tokens.Put(ctx, principal); err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.tokens.TTL())
	if err := s.repo.CreateSession(ctx, principal.Token, user.ID, expiresAt, ip, ua); err != nil {
		_ = s.tokens.Delete(ctx, principal.Token)
		return nil, err
	}
	return principal, nil
}

// Principal resolves a bearer token to the authenticated actor.
func (s *Service) Principal(ctx context.Context, token string) (*shared.Principal, error) {
	return s.tokens.Get(ctx, token)
}

// Logout invalidates the token and removes the session record.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.tokens.Delete(ctx, token); err != nil {
		return err
	}
	return s.repo.DeleteSession(ctx, token)
}
