// Package auth resolves caller identity from bearer credentials and issues
// the credentials it later verifies.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/emilythestrangee/forum-core/backend/internal/apperr"
)

// Verifier decodes a credential into a user identifier.
type Verifier interface {
	Verify(credential string) (string, error)
}

// IdentityContext turns a presented credential into the caller's user id.
type IdentityContext struct {
	verifier Verifier
}

func NewIdentityContext(v Verifier) *IdentityContext {
	return &IdentityContext{verifier: v}
}

// Resolve returns the caller's user id, or an error of kind
// missing_credential or invalid_credential.
func (ic *IdentityContext) Resolve(credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", apperr.New(apperr.KindMissingCredential, "no credential provided")
	}
	userID, err := ic.verifier.Verify(credential)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidCredential, err, "invalid or expired credential")
	}
	return userID, nil
}

// CredentialFromHeader extracts the token of an "Authorization: Bearer <token>" header.
func CredentialFromHeader(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// Claims carried by forum tokens. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

func (v *JWTVerifier) Verify(credential string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token is not valid")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// Issuer signs tokens for authenticated users.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(userID string) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
