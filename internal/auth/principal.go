// Heliograph - Realtime Event Gateway for Extension Catalogs
// Copyright 2026 The Heliograph Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/heliograph/heliograph

// Package auth verifies handshake tokens and guards the ops endpoints.
//
// The gateway never issues tokens. The catalog's web tier signs short-lived
// HS256 tokens with the shared secret; this package only verifies them. A
// connection whose token fails verification is not rejected: it proceeds
// without a principal and can use the public channels.
package auth

import "slices"

// Principal is the authenticated identity attached to a connection for its
// whole lifetime. A nil *Principal means the connection is anonymous.
type Principal struct {
	// ID is the stable subject identifier from the token.
	ID string

	// Role is the coarse role, "user" unless the token says otherwise.
	Role string

	// Permissions lists fine-grained grants. Empty for most users.
	Permissions []string
}

// HasPermission reports whether the principal carries the named grant.
func (p *Principal) HasPermission(name string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Permissions, name)
}
