package domain

import "time"

// Account is a user identified by an external identity provider. Created on
// first login; only the display name ever changes afterwards.
type Account struct {
	ID          string    `json:"id"`
	Subject     string    `json:"-"` // identity provider subject
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Picture     string    `json:"picture,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GoogleAuthRequest carries the ID token issued by Google Sign-In.
type GoogleAuthRequest struct {
	Credential string `json:"credential" validate:"required"`
}

// AuthResponse is returned after a successful login.
type AuthResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"account"`
}

// JWTClaims are the claims we read back out of a bearer token.
type JWTClaims struct {
	Sub   string
	Email string
}
