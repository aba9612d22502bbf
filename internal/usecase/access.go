package usecase

import "github.com/mhmdrz22/enginner/internal/core/domain"

// AccessPolicy decides whether an identity may use an operation requiring a capability.
type AccessPolicy struct{}

// Evaluate checks authentication before authorization: a nil identity is always
// ErrUnauthenticated, even for admin-only capabilities.
func (AccessPolicy) Evaluate(identity *domain.Identity, required domain.Capability) error {
	if required == domain.CapabilityPublic {
		return nil
	}
	if identity == nil {
		return ErrUnauthenticated
	}
	if !identity.Role.Grants(required) {
		return ErrForbidden
	}
	return nil
}
