// Package auth provides token issuance, password verification, and login
// identity resolution.
package auth

import "errors"

// Common authentication service errors.
var (
	// ErrInvalidToken indicates the token format is invalid or the signature doesn't match.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future).
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrInvalidRefreshToken indicates the refresh token is malformed or its signature doesn't match.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrExpiredRefreshToken indicates the refresh token has expired.
	ErrExpiredRefreshToken = errors.New("refresh token has expired")

	// ErrWrongTokenType indicates an access token was presented where a
	// refresh token was expected, or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")
)

// Login failure taxonomy. Invalid credentials and inactive accounts must
// stay distinguishable to the caller; ambiguity is a data-integrity guard
// that should never fire under the store's uniqueness constraints.
var (
	// ErrInvalidCredentials indicates the identifier resolved to no account
	// or the password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInactiveAccount indicates the credentials were correct but the
	// account is deactivated.
	ErrInactiveAccount = errors.New("account is not active")

	// ErrAmbiguousIdentity indicates the identifier matched more than one
	// account.
	ErrAmbiguousIdentity = errors.New("identifier matched multiple accounts")
)
