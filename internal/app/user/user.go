/*
Package user contains the credential store used by the gateway to register and
authenticate chat participants.

Users live only in memory for the lifetime of the process. Secrets are never stored in
plaintext: the store keeps a salted one-way hash produced by a pluggable Hasher.
*/
package user

import "errors"

var (
	// ErrAlreadyExists is returned by Register when the username is taken.
	ErrAlreadyExists = errors.New("username already exists")

	// ErrNotFound is returned by Verify when no such username is registered.
	ErrNotFound = errors.New("user not found")

	// ErrWrongSecret is returned by Verify when the secret does not match.
	ErrWrongSecret = errors.New("wrong secret")
)

// User represents a registered chat participant.
// Created on registration and never mutated afterwards.
type User struct {
	// Username is the unique key of the user.
	Username string

	// SecretHash is the encoded output of the Hasher that registered the user.
	SecretHash string
}
