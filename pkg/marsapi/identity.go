package marsapi

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoAccessToken is returned when an identity is requested without an access token.
var ErrNoAccessToken = errors.New("marsapi: no access token")

// AccessClaims are the claims the API puts in an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// IdentityFromAccessToken reads the user id and role from an access token
// without checking its signature. The API has already verified the token;
// this only decodes what it says about the caller.
func IdentityFromAccessToken(token string) (*User, error) {
	if token == "" {
		return nil, ErrNoAccessToken
	}

	var claims AccessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid access token subject: %w", err)
	}

	return &User{ID: id.String(), Role: claims.Role}, nil
}
