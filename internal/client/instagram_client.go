package client

import (
	"context"
	"fmt"

	"github.com/repurposely/api/internal/model"
)

// InstagramClient simulates Instagram posting. The content publishing API
// needs a business account plus media hosting, so this adapter only runs in
// demo mode for now.
type InstagramClient struct{}

func NewInstagramClient() *InstagramClient { return &InstagramClient{} }

func (c *InstagramClient) Kind() model.TargetKind { return model.TargetInstagram }

func (c *InstagramClient) IsConfigured() bool { return false }

func (c *InstagramClient) Deliver(ctx context.Context, bundle *model.ArtifactBundle) (*DeliveryReceipt, error) {
	post := bundle.PostFor(model.TargetInstagram)
	if post == nil {
		return nil, fmt.Errorf("no instagram content in bundle")
	}
	return simulateReceipt(model.TargetInstagram, "https://instagram.com/p/"), nil
}
