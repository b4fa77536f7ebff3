// Package auth implements the single-owner authority gate.
package auth

import "errors"

// ErrUnauthorized indicates a non-owner attempted an owner-gated operation.
var ErrUnauthorized = errors.New("caller is not the owner")

// Authority holds the privileged principal fixed at system creation.
// There is no transfer-of-ownership operation.
type Authority struct {
	owner string
}

// NewAuthority creates an authority for the given owner identity.
func NewAuthority(owner string) *Authority {
	return &Authority{owner: owner}
}

// Owner returns the privileged identity.
func (a *Authority) Owner() string {
	return a.owner
}

// RequireOwner returns ErrUnauthorized when caller is not the owner.
func (a *Authority) RequireOwner(caller string) error {
	if caller != a.owner {
		return ErrUnauthorized
	}
	return nil
}
