package policy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/go-quotes/gate"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/policy"
)

// mockNonOwnable is a test resource that does NOT implement Ownable.
type mockNonOwnable struct {
	ID uint
}

func TestOwnershipPolicy_NilResource(t *testing.T) {
	p := policy.NewOwnershipPolicy()
	ctx := context.Background()

	tests := []struct {
		action gate.Action
		want   bool
	}{
		{gate.ActionList, true},
		{gate.ActionCreate, true},
		{gate.ActionView, false},
		{gate.ActionRestore, false},
		{gate.ActionDelete, false},
	}
	for _, tt := range tests {
		if got := p.Can(ctx, 1, tt.action, nil); got != tt.want {
			t.Errorf("Can(%s, nil) = %v, want %v", tt.action, got, tt.want)
		}
	}
}

func TestOwnershipPolicy_Quote(t *testing.T) {
	p := policy.NewOwnershipPolicy()
	ctx := context.Background()
	quote := &models.Quote{UserID: 42}

	actions := []gate.Action{gate.ActionView, gate.ActionUpdate, gate.ActionDelete, gate.ActionRestore, gate.ActionCompare}
	for _, action := range actions {
		if !p.Can(ctx, 42, action, quote) {
			t.Errorf("expected owner to be allowed %s", action)
		}
		if p.Can(ctx, 99, action, quote) {
			t.Errorf("expected non-owner to be denied %s", action)
		}
	}
}

func TestOwnershipPolicy_NonOwnableResource(t *testing.T) {
	p := policy.NewOwnershipPolicy()
	if p.Can(context.Background(), 1, gate.ActionView, &mockNonOwnable{ID: 1}) {
		t.Error("Expected non-Ownable resource to be denied")
	}
}

func TestNewQuoteGate(t *testing.T) {
	g := policy.NewQuoteGate()
	ctx := context.Background()

	if err := g.Authorize(ctx, 5, gate.ActionView, policy.ResourceQuote, &models.Quote{UserID: 5}); err != nil {
		t.Errorf("owner view: %v", err)
	}
	err := g.Authorize(ctx, 6, gate.ActionRestore, policy.ResourceQuote, &models.Quote{UserID: 5})
	if !errors.Is(err, gate.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
