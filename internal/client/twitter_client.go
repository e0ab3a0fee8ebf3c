package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/repurposely/api/internal/config"
	"github.com/repurposely/api/internal/model"
)

// TwitterClient posts tweets via the Twitter API v2.
type TwitterClient struct {
	httpClient  *http.Client
	baseURL     string
	bearerToken string
}

func NewTwitterClient(cfg *config.TwitterConfig) *TwitterClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.twitter.com/2"
	}
	return &TwitterClient{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     baseURL,
		bearerToken: cfg.BearerToken,
	}
}

func (c *TwitterClient) Kind() model.TargetKind { return model.TargetTwitter }

func (c *TwitterClient) IsConfigured() bool { return c.bearerToken != "" }

// Deliver posts the bundle's twitter variant as a tweet. Without a
// configured token it simulates the post (demo mode).
func (c *TwitterClient) Deliver(ctx context.Context, bundle *model.ArtifactBundle) (*DeliveryReceipt, error) {
	post := bundle.PostFor(model.TargetTwitter)
	if post == nil {
		return nil, fmt.Errorf("no twitter content in bundle")
	}

	if !c.IsConfigured() {
		return simulateReceipt(model.TargetTwitter, "https://twitter.com/i/status/"), nil
	}

	payload, err := json.Marshal(map[string]string{"text": post.Text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("twitter API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var tweetResp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &tweetResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &DeliveryReceipt{
		PostID:  tweetResp.Data.ID,
		PostURL: "https://twitter.com/i/status/" + tweetResp.Data.ID,
	}, nil
}

// simulateReceipt fabricates a receipt for unconfigured adapters so the
// pipeline stays usable in development.
func simulateReceipt(kind model.TargetKind, urlPrefix string) *DeliveryReceipt {
	id := fmt.Sprintf("demo_%s_%d", kind, time.Now().UnixNano())
	return &DeliveryReceipt{PostID: id, PostURL: urlPrefix + id}
}
