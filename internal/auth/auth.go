// Package auth answers the one privileged question in the system: is this
// identity the resolver? Market creation and resolution are the only
// operations that consult it; the resolver has no special power anywhere
// else and cannot touch pools, positions, or custody outside the normal
// claim path.
package auth

// Authorizer decides whether an identity may create and resolve markets.
// Kept as a one-method capability so a single key can later be swapped for
// multi-signature or policy-based resolution without touching ledger logic.
type Authorizer interface {
	IsResolver(identity string) bool
}

// SingleKey authorizes exactly one identity, fixed at construction.
type SingleKey struct {
	resolver string
}

// NewSingleKey returns an Authorizer recognizing only the given identity.
func NewSingleKey(resolver string) *SingleKey {
	return &SingleKey{resolver: resolver}
}

func (a *SingleKey) IsResolver(identity string) bool {
	return identity != "" && identity == a.resolver
}
