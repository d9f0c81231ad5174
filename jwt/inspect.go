package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Inspect for tokens that are not JWS compact
// serializations. Opaque tokens are valid session tokens; they just carry no
// readable identity.
var ErrNotJWT = errors.New("token is not a JWT")

// Identity is the unverified identity carried by an access token.
type Identity struct {
	Subject   string    `json:"subject,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Issuer    string    `json:"issuer,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token carried an expiry that is before now.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Inspect decodes token claims without verifying the signature.
func Inspect(token string) (Identity, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, errors.Join(ErrNotJWT, err)
	}

	id := Identity{
		Subject: claims.Subject,
		UserID:  claims.UID,
		Email:   claims.Email,
		Issuer:  claims.Issuer,
	}
	if id.UserID == "" {
		id.UserID = claims.Subject
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return id, nil
}
