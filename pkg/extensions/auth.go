// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned by AuthProvider implementations when a
// token is missing, malformed, expired, or revoked.
var ErrUnauthorized = errors.New("unauthorized")

// LocalUserID is the identity assigned by NopAuthProvider. Local
// single-user deployments keep all financial records under this ID.
const LocalUserID = "local-user"

// AuthInfo describes an authenticated caller. Handlers use UserID to
// scope every record read and write, so two users never see each
// other's accounts, transactions, or conversations.
type AuthInfo struct {
	// UserID is the stable unique identifier for the user.
	UserID string

	// Email is the user's email address, when the provider knows it.
	Email string

	// Roles lists the user's assigned roles (e.g. "admin").
	Roles []string
}

// HasRole reports whether the user holds the given role.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates authentication tokens.
//
// Implementations must be safe for concurrent use. A deployment backed
// by a real identity provider validates the bearer token and returns
// the resolved identity; failures return ErrUnauthorized, possibly
// wrapped with detail:
//
//	func (p *OIDCProvider) Validate(ctx context.Context, token string) (*AuthInfo, error) {
//	    claims, err := p.verifier.Verify(ctx, token)
//	    if err != nil {
//	        return nil, fmt.Errorf("oidc validation failed: %w", ErrUnauthorized)
//	    }
//	    return &AuthInfo{UserID: claims.Subject, Email: claims.Email}, nil
//	}
type AuthProvider interface {
	// Validate checks the token and returns the caller's identity.
	// token is the bare credential, without the "Bearer " prefix.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider authenticates every request as the local user with
// admin rights. This is the open-source default: the service runs with
// no authentication infrastructure at all, and the host application is
// expected to sit in front of it.
type NopAuthProvider struct{}

// Validate always succeeds, ignoring the token.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: LocalUserID,
		Roles:  []string{"admin"},
	}, nil
}

// Compile-time interface check.
var _ AuthProvider = (*NopAuthProvider)(nil)
