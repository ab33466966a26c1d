// Package gate is a small Gate/Policy authorization registry.
// Each Policy holds the rules for one resource type and the Gate routes
// checks to it. U is the subject type, usually the user id.
package gate

import (
	"context"
	"fmt"
	"sync"
)

// Gate is the central authorization checkpoint.
// U must be comparable so the zero value can mean "anonymous".
type Gate[U comparable] struct {
	mu       sync.RWMutex
	policies map[string]Policy[U]
}

// NewGate creates an empty Gate ready to register policies.
func NewGate[U comparable]() *Gate[U] {
	return &Gate[U]{policies: make(map[string]Policy[U])}
}

// Register adds a policy for a resource type (e.g. "quote"), replacing any
// existing one.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.policies[resourceType] = p
}

// Authorize returns nil when user may perform action on resource.
// An anonymous user or a denied action yields an error wrapping
// ErrUnauthorized; an unknown resource type yields ErrNoPolicyDefined.
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	var zero U
	if user == zero {
		return fmt.Errorf("%w: anonymous %s on %s", ErrUnauthorized, action, resourceType)
	}

	g.mu.RLock()
	p, ok := g.policies[resourceType]
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPolicyDefined, resourceType)
	}

	if !p.Can(ctx, user, action, resource) {
		return fmt.Errorf("%w: %s on %s", ErrUnauthorized, action, resourceType)
	}
	return nil
}

// Can is Authorize as a bool.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}
