package policy

import (
	"context"

	"github.com/diewo77/go-quotes/gate"
)

// Ownable is implemented by resources that have an owner.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy lets a user act only on resources they own.
type OwnershipPolicy struct{}

// NewOwnershipPolicy creates a new ownership policy.
func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can checks ownership. Without a resource only list and create are allowed,
// since every other action targets a specific document.
func (p *OwnershipPolicy) Can(_ context.Context, userID uint, action gate.Action, resource any) bool {
	if resource == nil {
		return action == gate.ActionList || action == gate.ActionCreate
	}

	// resources without an owner are never accessible
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetUserID() == userID
}

// NewQuoteGate returns a gate with the ownership policy registered for quotes.
func NewQuoteGate() *gate.Gate[uint] {
	g := gate.NewGate[uint]()
	g.Register(ResourceQuote, NewOwnershipPolicy())
	return g
}

// ResourceQuote is the gate resource type for quotes and their versions.
const ResourceQuote = "quote"
