package simpleblog

import "github.com/google/uuid"

// Guard decides whether a mutating operation is permitted. It is a pure
// predicate with no side effects; read operations are never gated by it.
type Guard struct{}

// NewGuard creates an ownership guard.
func NewGuard() Guard {
	return Guard{}
}

// CanMutate reports whether actorID may mutate a resource owned by ownerID.
// A missing actor identity denies.
func (Guard) CanMutate(actorID, ownerID uuid.UUID) bool {
	if actorID == uuid.Nil {
		return false
	}
	return actorID == ownerID
}
