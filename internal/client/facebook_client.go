package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/repurposely/api/internal/config"
	"github.com/repurposely/api/internal/model"
)

// FacebookClient posts to a Facebook page feed via the Graph API.
type FacebookClient struct {
	httpClient      *http.Client
	baseURL         string
	pageAccessToken string
	pageID          string
}

func NewFacebookClient(cfg *config.FacebookConfig) *FacebookClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v19.0"
	}
	return &FacebookClient{
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		baseURL:         baseURL,
		pageAccessToken: cfg.PageAccessToken,
		pageID:          cfg.PageID,
	}
}

func (c *FacebookClient) Kind() model.TargetKind { return model.TargetFacebook }

func (c *FacebookClient) IsConfigured() bool {
	return c.pageAccessToken != "" && c.pageID != ""
}

func (c *FacebookClient) Deliver(ctx context.Context, bundle *model.ArtifactBundle) (*DeliveryReceipt, error) {
	post := bundle.PostFor(model.TargetFacebook)
	if post == nil {
		return nil, fmt.Errorf("no facebook content in bundle")
	}

	if !c.IsConfigured() {
		return simulateReceipt(model.TargetFacebook, "https://facebook.com/posts/"), nil
	}

	form := url.Values{}
	form.Set("message", post.Text)
	form.Set("access_token", c.pageAccessToken)

	endpoint := fmt.Sprintf("%s/%s/feed", c.baseURL, c.pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var feedResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &feedResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &DeliveryReceipt{
		PostID:  feedResp.ID,
		PostURL: "https://facebook.com/" + feedResp.ID,
	}, nil
}
