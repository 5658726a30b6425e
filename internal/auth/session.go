// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks client tokens and extracts the caller identity. Token
// issuance belongs to the external auth service; this side only needs the
// public key, but a full keypair is generated for dev and tests.
type Verifier struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
}

// NewVerifier generates a fresh ed25519 keypair at runtime. Suitable for
// dev setups where the issuer runs in the same process tree.
func NewVerifier() (*Verifier, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key pair: %w", err)
	}
	return &Verifier{privateKey: priv, publicKey: pub}, nil
}

// NewVerifierFromPath reads ed25519 keys from files, matching the deployed
// issuer's keypair.
func NewVerifierFromPath(privatePath, publicPath string) (*Verifier, error) {
	privData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("read private key file: %w", err)
	}
	pubData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("read public key file: %w", err)
	}
	return &Verifier{
		privateKey: ed25519.PrivateKey(privData),
		publicKey:  ed25519.PublicKey(pubData),
	}, nil
}

// CreateToken signs a token with "sub" = clientID. Used by tests and dev
// tooling; production tokens come from the auth service.
func (v *Verifier) CreateToken(clientID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{
		"sub": clientID,
	})
	return token.SignedString(v.privateKey)
}

// VerifyToken validates a token string and returns the "sub" identity.
func (v *Verifier) VerifyToken(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}
	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
