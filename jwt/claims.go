package jwt

import "github.com/golang-jwt/jwt/v5"

// Claims is the access-token payload understood by this package.
type Claims struct {
	UID   string `json:"uid,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
