// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims the gateway understands. The subject is the
// principal id; role and permissions are optional.
type Claims struct {
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 handshake tokens and maps them to Principals.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a token verifier. The secret must not be empty; a
// deployment without a secret simply never constructs a Verifier and runs
// anonymous-only.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("TOKEN_SECRET is required but was empty")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify validates tokenString and returns the Principal it names.
// Signature, expiry, and not-before are enforced; the signing algorithm is
// pinned to HMAC to rule out algorithm confusion. Errors here mean "treat
// the connection as anonymous", never "reject the connection" - that
// policy belongs to the caller.
func (v *Verifier) Verify(tokenString string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	role := claims.Role
	if role == "" {
		role = "user"
	}
	permissions := claims.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	return &Principal{
		ID:          claims.Subject,
		Role:        role,
		Permissions: permissions,
	}, nil
}

// TokenFromRequest extracts the handshake token from an upgrade request:
// the token query parameter first, then an Authorization bearer header.
// Returns "" when the request carries no token. Browsers cannot set
// headers on WebSocket dials, hence the query parameter is primary.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
