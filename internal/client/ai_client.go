package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/repurposely/api/internal/config"
	"github.com/repurposely/api/internal/model"
)

// ArtifactProducer turns raw content into an ArtifactBundle. Implemented by
// AIClient; tests substitute their own.
type ArtifactProducer interface {
	Produce(ctx context.Context, title, rawContent string) (*model.ArtifactBundle, error)
	IsConfigured() bool
}

// AIClient talks to an OpenAI-compatible chat completion endpoint
// (HuggingFace router by default) to analyze and repurpose content.
type AIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// ChatMessage represents a message in the chat completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest represents the request body for chat completion
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse represents the response from chat completion
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewAIClient creates a new artifact producer client
func NewAIClient(cfg *config.AIConfig) *AIClient {
	return &AIClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *AIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Produce analyzes the content and generates the full artifact bundle.
func (c *AIClient) Produce(ctx context.Context, title, rawContent string) (*model.ArtifactBundle, error) {
	analysis, err := c.analyze(ctx, title, rawContent)
	if err != nil {
		return nil, fmt.Errorf("content analysis failed: %w", err)
	}

	posts, err := c.generateSocialPosts(ctx, rawContent, analysis)
	if err != nil {
		return nil, fmt.Errorf("social post generation failed: %w", err)
	}

	snippets, article, err := c.generateLongForms(ctx, rawContent, analysis)
	if err != nil {
		return nil, fmt.Errorf("long-form generation failed: %w", err)
	}

	return &model.ArtifactBundle{
		Analysis:      *analysis,
		SocialPosts:   posts,
		EmailSnippets: snippets,
		ShortArticle:  article,
		Infographic: &model.InfographicData{
			Title: "Key Facts About " + analysis.MainTheme,
			Statistics: []model.Statistic{
				{Label: "Main Focus", Value: analysis.MainTheme, Icon: "target"},
				{Label: "Tone", Value: analysis.Tone, Icon: "chart"},
			},
			Sections: []model.InfoBlock{
				{Title: "Overview", Description: analysis.SummaryShort},
			},
			CTA: "Learn More",
		},
		GeneratedAt: time.Now(),
	}, nil
}

func (c *AIClient) analyze(ctx context.Context, title, content string) (*model.AnalysisResult, error) {
	prompt := fmt.Sprintf(`Analyze this content and respond with JSON only:
{
  "mainTheme": "...", "keywords": ["..."], "sentiment": "positive|neutral|negative",
  "tone": "...", "targetAudience": "...", "keyTakeaways": ["..."],
  "summaryShort": "...", "summaryMedium": "...", "summaryLong": "..."
}

TITLE: %s
CONTENT: %s`, title, content)

	raw, err := c.chatCompletion(ctx, "You are a content analyst. Always respond with valid JSON only.", prompt, 0.3)
	if err != nil {
		return nil, err
	}

	var analysis model.AnalysisResult
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}
	return &analysis, nil
}

func (c *AIClient) generateSocialPosts(ctx context.Context, content string, analysis *model.AnalysisResult) ([]model.SocialPost, error) {
	prompt := fmt.Sprintf(`Create social media posts for LinkedIn, Twitter, Facebook, and Instagram.

CONTENT: %s
THEME: %s
KEYWORDS: %s
TONE: %s

Respond with JSON only:
{
  "linkedin": {"text": "...", "hashtags": ["..."]},
  "twitter": {"text": "...", "hashtags": ["..."]},
  "facebook": {"text": "...", "hashtags": ["..."]},
  "instagram": {"text": "...", "hashtags": ["..."]}
}`, content, analysis.MainTheme, strings.Join(analysis.Keywords, ", "), analysis.Tone)

	raw, err := c.chatCompletion(ctx, "You are a social media expert. Always respond with valid JSON only.", prompt, 0.8)
	if err != nil {
		return nil, err
	}

	var postsData map[string]struct {
		Text     string   `json:"text"`
		Hashtags []string `json:"hashtags"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &postsData); err != nil {
		return nil, fmt.Errorf("failed to parse social posts response: %w", err)
	}

	var posts []model.SocialPost
	for _, kind := range []model.TargetKind{model.TargetLinkedIn, model.TargetTwitter, model.TargetFacebook, model.TargetInstagram} {
		data, ok := postsData[string(kind)]
		if !ok || data.Text == "" {
			continue
		}
		posts = append(posts, model.SocialPost{
			Platform:       kind,
			Text:           data.Text,
			Hashtags:       data.Hashtags,
			CharacterCount: len(data.Text),
		})
	}
	return posts, nil
}

func (c *AIClient) generateLongForms(ctx context.Context, content string, analysis *model.AnalysisResult) ([]model.EmailSnippet, *model.ShortArticle, error) {
	prompt := fmt.Sprintf(`Create an email newsletter teaser and a short article.

CONTENT: %s
THEME: %s
SUMMARY: %s

Respond with JSON only:
{
  "email": {"subject": "...", "content": "...", "cta": "..."},
  "article": {"headline": "...", "introduction": "...", "mainContent": "...", "conclusion": "..."}
}`, content, analysis.MainTheme, analysis.SummaryMedium)

	raw, err := c.chatCompletion(ctx, "You are a content marketer. Always respond with valid JSON only.", prompt, 0.7)
	if err != nil {
		return nil, nil, err
	}

	var longForms struct {
		Email struct {
			Subject string `json:"subject"`
			Content string `json:"content"`
			CTA     string `json:"cta"`
		} `json:"email"`
		Article struct {
			Headline     string `json:"headline"`
			Introduction string `json:"introduction"`
			MainContent  string `json:"mainContent"`
			Conclusion   string `json:"conclusion"`
		} `json:"article"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &longForms); err != nil {
		return nil, nil, fmt.Errorf("failed to parse long-form response: %w", err)
	}

	snippets := []model.EmailSnippet{{
		Type:      "newsletter_teaser",
		Subject:   longForms.Email.Subject,
		Content:   longForms.Email.Content,
		CTA:       longForms.Email.CTA,
		WordCount: len(strings.Fields(longForms.Email.Content)),
	}}

	body := longForms.Article.Introduction + " " + longForms.Article.MainContent + " " + longForms.Article.Conclusion
	article := &model.ShortArticle{
		Headline:     longForms.Article.Headline,
		Introduction: longForms.Article.Introduction,
		MainContent:  longForms.Article.MainContent,
		Conclusion:   longForms.Article.Conclusion,
		WordCount:    len(strings.Fields(body)),
		ReadingTime:  readingTime(body),
	}
	return snippets, article, nil
}

// chatCompletion sends a chat completion request
func (c *AIClient) chatCompletion(ctx context.Context, system, user string, temperature float64) (string, error) {
	reqBody := ChatCompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   1500,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("inference API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func readingTime(text string) string {
	words := len(strings.Fields(text))
	minutes := words / 200
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}
