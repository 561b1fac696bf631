package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/convertia/backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVerifier struct {
	identity *Identity
	err      error
}

func (v *staticVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	return v.identity, v.err
}

func TestLoginCreatesAccountOnce(t *testing.T) {
	ctx := context.Background()
	verifier := &staticVerifier{identity: &Identity{
		Subject: "google-sub-1",
		Email:   "payer@example.com",
		Name:    "Test Payer",
	}}
	svc := NewAuthService("test-secret", verifier, repository.NewMemoryAccountRepository())

	first, err := svc.Login(ctx, "credential")
	require.NoError(t, err)
	assert.NotEmpty(t, first.Token)
	assert.Equal(t, "payer@example.com", first.Account.Email)

	// Same subject logs in again with a new display name; same account.
	verifier.identity.Name = "Renamed Payer"
	second, err := svc.Login(ctx, "credential")
	require.NoError(t, err)
	assert.Equal(t, first.Account.ID, second.Account.ID)
	assert.Equal(t, "Renamed Payer", second.Account.DisplayName)
}

func TestLoginRejectsBadCredential(t *testing.T) {
	verifier := &staticVerifier{err: errors.New("token audience mismatch")}
	svc := NewAuthService("test-secret", verifier, repository.NewMemoryAccountRepository())

	_, err := svc.Login(context.Background(), "credential")
	requireAppError(t, err, http.StatusUnauthorized, "")
}

func TestVerifyToken(t *testing.T) {
	verifier := &staticVerifier{identity: &Identity{
		Subject: "google-sub-1",
		Email:   "payer@example.com",
	}}
	svc := NewAuthService("test-secret", verifier, repository.NewMemoryAccountRepository())

	resp, err := svc.Login(context.Background(), "credential")
	require.NoError(t, err)

	claims, err := svc.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.Account.ID, claims.Sub)
	assert.Equal(t, "payer@example.com", claims.Email)

	_, err = svc.VerifyToken("not-a-token")
	assert.Error(t, err)

	// Token signed with a different secret.
	other := NewAuthService("other-secret", verifier, repository.NewMemoryAccountRepository())
	forged, err := other.Login(context.Background(), "credential")
	require.NoError(t, err)
	_, err = svc.VerifyToken(forged.Token)
	assert.Error(t, err)
}
