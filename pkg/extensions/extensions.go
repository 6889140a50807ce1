// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines the advisor service's extension points.
//
// LedgerLocal works as a fully functional local utility out of the box:
// every extension point ships with a no-op default. Deployments that
// front the service with real identity providers, compliance logging,
// or stricter content policies inject implementations of these
// interfaces via ServiceOptions.
//
// The package is organized by concern:
//
//   - auth.go: Authentication (AuthProvider)
//   - audit.go: Audit logging (AuditLogger)
//   - filter.go: Message redaction and blocking (MessageFilter)
//
// All implementations must be safe for concurrent use.
package extensions

// ServiceOptions groups the extension points injected into the advisor
// service. All fields are optional; nil values fall back to no-op
// defaults via DefaultOptions.
type ServiceOptions struct {
	// AuthProvider validates bearer tokens on incoming requests.
	// Default: NopAuthProvider (every request is the local user).
	AuthProvider AuthProvider

	// AuditLogger records security-relevant events.
	// Default: NopAuditLogger (discards events).
	AuditLogger AuditLogger

	// MessageFilter transforms user questions before prompt composition
	// and answers before they are returned.
	// Default: RedactingFilter (masks card and SSN-like numbers).
	MessageFilter MessageFilter
}

// DefaultOptions returns ServiceOptions with local-deployment defaults.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider:  &NopAuthProvider{},
		AuditLogger:   &NopAuditLogger{},
		MessageFilter: NewRedactingFilter(),
	}
}

// Normalize fills nil fields with the defaults so callers never have to
// nil-check individual extension points.
func (opts ServiceOptions) Normalize() ServiceOptions {
	defaults := DefaultOptions()
	if opts.AuthProvider == nil {
		opts.AuthProvider = defaults.AuthProvider
	}
	if opts.AuditLogger == nil {
		opts.AuditLogger = defaults.AuditLogger
	}
	if opts.MessageFilter == nil {
		opts.MessageFilter = defaults.MessageFilter
	}
	return opts
}

// WithAuth returns a copy of opts with the given AuthProvider.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithAudit returns a copy of opts with the given AuditLogger.
func (opts ServiceOptions) WithAudit(logger AuditLogger) ServiceOptions {
	opts.AuditLogger = logger
	return opts
}

// WithFilter returns a copy of opts with the given MessageFilter.
func (opts ServiceOptions) WithFilter(filter MessageFilter) ServiceOptions {
	opts.MessageFilter = filter
	return opts
}
