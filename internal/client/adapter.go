package client

import (
	"context"

	"github.com/repurposely/api/internal/config"
	"github.com/repurposely/api/internal/model"
)

// DeliveryReceipt is what an adapter returns on a successful delivery.
type DeliveryReceipt struct {
	PostID  string
	PostURL string
}

// TargetAdapter delivers a job's bundle to one platform. Adapters are
// independently failable; an error from one never affects another.
type TargetAdapter interface {
	Kind() model.TargetKind
	Deliver(ctx context.Context, bundle *model.ArtifactBundle) (*DeliveryReceipt, error)
	IsConfigured() bool
}

// AdapterRegistry holds one adapter per target kind.
type AdapterRegistry struct {
	adapters map[model.TargetKind]TargetAdapter
}

// NewAdapterRegistry builds the registry with all supported platforms.
func NewAdapterRegistry(cfg *config.Config) *AdapterRegistry {
	r := &AdapterRegistry{adapters: make(map[model.TargetKind]TargetAdapter)}
	r.Register(NewTwitterClient(&cfg.Twitter))
	r.Register(NewLinkedInClient(&cfg.LinkedIn))
	r.Register(NewFacebookClient(&cfg.Facebook))
	r.Register(NewInstagramClient())
	r.Register(NewEmailClient(&cfg.Email))
	return r
}

// Register adds or replaces the adapter for its kind.
func (r *AdapterRegistry) Register(adapter TargetAdapter) {
	r.adapters[adapter.Kind()] = adapter
}

// For returns the adapter for kind, or nil if none is registered.
func (r *AdapterRegistry) For(kind model.TargetKind) TargetAdapter {
	return r.adapters[kind]
}

// Kinds returns the registered target kinds.
func (r *AdapterRegistry) Kinds() []model.TargetKind {
	kinds := make([]model.TargetKind, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	return kinds
}
