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

// EmailClient sends the bundle's newsletter snippet via the SendGrid v3 API.
type EmailClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	fromEmail  string
	toEmail    string
}

func NewEmailClient(cfg *config.EmailConfig) *EmailClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com/v3"
	}
	return &EmailClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     cfg.SendGridAPIKey,
		fromEmail:  cfg.FromEmail,
		toEmail:    cfg.ToEmail,
	}
}

func (c *EmailClient) Kind() model.TargetKind { return model.TargetEmail }

func (c *EmailClient) IsConfigured() bool {
	return c.apiKey != "" && c.fromEmail != "" && c.toEmail != ""
}

func (c *EmailClient) Deliver(ctx context.Context, bundle *model.ArtifactBundle) (*DeliveryReceipt, error) {
	if len(bundle.EmailSnippets) == 0 {
		return nil, fmt.Errorf("no email content in bundle")
	}
	snippet := bundle.EmailSnippets[0]

	if !c.IsConfigured() {
		return simulateReceipt(model.TargetEmail, "mailto:demo@example.com?id="), nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": c.toEmail}}},
		},
		"from":    map[string]string{"email": c.fromEmail},
		"subject": snippet.Subject,
		"content": []map[string]string{
			{"type": "text/html", "value": snippet.Content},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mail/send", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sendgrid error (status %d): %s", resp.StatusCode, string(body))
	}

	return &DeliveryReceipt{PostID: resp.Header.Get("X-Message-Id")}, nil
}
