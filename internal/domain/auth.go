package domain

import (
	"context"
	"time"
)

// Principal represents the authenticated caller of an area.
type Principal struct {
	UserID    string
	Name      string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

// Is reports whether the principal acts in the given role.
func (p *Principal) Is(role Role) bool {
	return p != nil && p.Role == role
}

type principalCtxKey struct{}

// WithPrincipal returns a context carrying the acting principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom returns the acting principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(*Principal)
	return p, ok && p != nil
}
