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

// LinkedInClient posts shares via the LinkedIn v2 API.
type LinkedInClient struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

func NewLinkedInClient(cfg *config.LinkedInConfig) *LinkedInClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.linkedin.com/v2"
	}
	return &LinkedInClient{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     baseURL,
		accessToken: cfg.AccessToken,
	}
}

func (c *LinkedInClient) Kind() model.TargetKind { return model.TargetLinkedIn }

func (c *LinkedInClient) IsConfigured() bool { return c.accessToken != "" }

func (c *LinkedInClient) Deliver(ctx context.Context, bundle *model.ArtifactBundle) (*DeliveryReceipt, error) {
	post := bundle.PostFor(model.TargetLinkedIn)
	if post == nil {
		return nil, fmt.Errorf("no linkedin content in bundle")
	}

	if !c.IsConfigured() {
		return simulateReceipt(model.TargetLinkedIn, "https://linkedin.com/posts/"), nil
	}

	personID, err := c.personID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve linkedin person id: %w", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"owner": "urn:li:person:" + personID,
		"text":  map[string]string{"text": post.Text},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal share: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shares", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("linkedin API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var shareResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &shareResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &DeliveryReceipt{
		PostID:  shareResp.ID,
		PostURL: "https://www.linkedin.com/feed/update/" + shareResp.ID,
	}, nil
}

func (c *LinkedInClient) personID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("linkedin API error (status %d): %s", resp.StatusCode, string(body))
	}

	var meResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meResp); err != nil {
		return "", err
	}
	return meResp.ID, nil
}
