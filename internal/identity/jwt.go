package identity

import (
	"agency-portal/internal/domain/user"
	portal_errors "agency-portal/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the token shape minted by the external identity provider.
type Claims struct {
	jwt.RegisteredClaims
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Role      string `json:"role"`
}

// TokenVerifier validates provider-issued access tokens. The portal never
// mints tokens itself.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *TokenVerifier) Verify(tokenString string) (user.Identity, error) {
	if tokenString == "" {
		return user.Identity{}, portal_errors.ErrUnauthorized
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, portal_errors.ErrUnauthorized
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return user.Identity{}, portal_errors.ErrUnauthorized
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return user.Identity{}, portal_errors.ErrUnauthorized
	}

	return user.Identity{
		ID:        id,
		Name:      claims.Name,
		AvatarURL: claims.AvatarURL,
		Role:      claims.Role,
	}, nil
}
