package service

import (
	"context"
	"fmt"
	"time"

	"github.com/convertia/backend/internal/domain"
	"github.com/convertia/backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
)

// AuthService handles external-identity login and bearer tokens.
type AuthService struct {
	jwtSecret string
	verifier  IdentityVerifier
	accounts  repository.AccountRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(jwtSecret string, verifier IdentityVerifier, accounts repository.AccountRepository) *AuthService {
	return &AuthService{
		jwtSecret: jwtSecret,
		verifier:  verifier,
		accounts:  accounts,
	}
}

// Login verifies the identity-provider credential, creates the account on
// first login, and returns a signed bearer token. Only the display name and
// picture are refreshed on subsequent logins.
func (s *AuthService) Login(ctx context.Context, credential string) (*domain.AuthResponse, error) {
	identity, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, domain.ErrUnauthorized("invalid identity credential")
	}

	account, err := s.accounts.FindBySubject(ctx, identity.Subject)
	if err != nil {
		return nil, domain.ErrInternal("failed to find account", err)
	}

	if account == nil {
		now := time.Now()
		account = &domain.Account{
			ID:          newID(),
			Subject:     identity.Subject,
			Email:       identity.Email,
			DisplayName: identity.Name,
			Picture:     identity.Picture,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			return nil, domain.ErrInternal("failed to create account", err)
		}
	} else if account.DisplayName != identity.Name || account.Picture != identity.Picture {
		if err := s.accounts.UpdateDisplayName(ctx, account.ID, identity.Name, identity.Picture); err != nil {
			return nil, domain.ErrInternal("failed to update account", err)
		}
		account.DisplayName = identity.Name
		account.Picture = identity.Picture
	}

	claims := jwt.MapClaims{
		"sub":   account.ID,
		"email": account.Email,
		"exp":   time.Now().Add(7 * 24 * time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, domain.ErrInternal("failed to sign token", err)
	}

	return &domain.AuthResponse{Token: signed, Account: account}, nil
}

// VerifyToken validates a bearer token and returns the claims.
func (s *AuthService) VerifyToken(tokenStr string) (*domain.JWTClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, domain.ErrUnauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrUnauthorized("invalid token claims")
	}

	return &domain.JWTClaims{
		Sub:   getClaimString(claims, "sub"),
		Email: getClaimString(claims, "email"),
	}, nil
}

// GetAccount returns an account profile by ID (for /api/auth/me).
func (s *AuthService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to find account", err)
	}
	if account == nil {
		return nil, domain.ErrNotFound("account not found")
	}
	return account, nil
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
