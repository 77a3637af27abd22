package core

import "github.com/google/uuid"

// Principal is the authenticated caller on whose behalf an operation runs.
// It is constructed per request, read-only during query building, and never
// persisted. ClientID injects tenant-scope predicates; UserID populates
// audit columns.
type Principal struct {
	UserID   int64
	ClientID int64
	// ClientIDs lists additional tenants the caller may read when policy
	// permits multi-tenant visibility. ClientID is always included.
	ClientIDs []int64
	Roles     []string
	// RequestID correlates every statement of one logical call in logs.
	RequestID uuid.UUID
}

// NewPrincipal builds a principal with a fresh request id.
func NewPrincipal(userID, clientID int64) *Principal {
	return &Principal{
		UserID:    userID,
		ClientID:  clientID,
		RequestID: uuid.New(),
	}
}

// ScopeIDs returns the deduplicated set of tenant ids the caller may see.
func (p *Principal) ScopeIDs() []int64 {
	if p == nil {
		return nil
	}
	ids := make([]int64, 0, len(p.ClientIDs)+1)
	seen := make(map[int64]bool, len(p.ClientIDs)+1)
	if p.ClientID != 0 {
		ids = append(ids, p.ClientID)
		seen[p.ClientID] = true
	}
	for _, id := range p.ClientIDs {
		if id != 0 && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	return ids
}

// InScope reports whether the tenant id falls inside the caller's scope.
func (p *Principal) InScope(clientID int64) bool {
	for _, id := range p.ScopeIDs() {
		if id == clientID {
			return true
		}
	}
	return false
}

// HasRole reports whether the principal carries the named role tag.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
