package model

import "time"

// ArtifactBundle is the full set of derived content pieces produced from one
// job. It is assigned once, atomically with the completed status, and is
// shared read-only by every delivery attempt afterwards.
type ArtifactBundle struct {
	Analysis      AnalysisResult   `json:"analysis"`
	SocialPosts   []SocialPost     `json:"socialPosts"`
	EmailSnippets []EmailSnippet   `json:"emailSnippets"`
	ShortArticle  *ShortArticle    `json:"shortArticle,omitempty"`
	Infographic   *InfographicData `json:"infographic,omitempty"`
	GeneratedAt   time.Time        `json:"generatedAt"`
}

// AnalysisResult holds the content analysis produced before repurposing.
type AnalysisResult struct {
	MainTheme      string   `json:"mainTheme"`
	Keywords       []string `json:"keywords"`
	Sentiment      string   `json:"sentiment"`
	Tone           string   `json:"tone"`
	TargetAudience string   `json:"targetAudience"`
	KeyTakeaways   []string `json:"keyTakeaways"`
	SummaryShort   string   `json:"summaryShort"`
	SummaryMedium  string   `json:"summaryMedium"`
	SummaryLong    string   `json:"summaryLong"`
}

// SocialPost is one platform-specific post variant.
type SocialPost struct {
	Platform       TargetKind `json:"platform"`
	Text           string     `json:"text"`
	Hashtags       []string   `json:"hashtags"`
	CharacterCount int        `json:"characterCount"`
}

// EmailSnippet is one email variant (newsletter teaser etc.).
type EmailSnippet struct {
	Type      string `json:"type"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
	CTA       string `json:"cta,omitempty"`
	WordCount int    `json:"wordCount"`
}

// ShortArticle is a condensed article derived from the source content.
type ShortArticle struct {
	Headline     string `json:"headline"`
	Introduction string `json:"introduction"`
	MainContent  string `json:"mainContent"`
	Conclusion   string `json:"conclusion"`
	WordCount    int    `json:"wordCount"`
	ReadingTime  string `json:"readingTime,omitempty"`
}

// InfographicData describes a visual summary of the content.
type InfographicData struct {
	Title      string      `json:"title"`
	Statistics []Statistic `json:"statistics"`
	Sections   []InfoBlock `json:"sections"`
	CTA        string      `json:"cta,omitempty"`
}

// Statistic is one labeled value on an infographic.
type Statistic struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Icon  string `json:"icon,omitempty"`
}

// InfoBlock is one titled section on an infographic.
type InfoBlock struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PostFor returns the social post generated for the given platform, or nil
// if the bundle has none.
func (b *ArtifactBundle) PostFor(kind TargetKind) *SocialPost {
	for i := range b.SocialPosts {
		if b.SocialPosts[i].Platform == kind {
			return &b.SocialPosts[i]
		}
	}
	return nil
}

// ArtifactCount returns the number of derived pieces in the bundle.
func (b *ArtifactBundle) ArtifactCount() int {
	n := len(b.SocialPosts) + len(b.EmailSnippets)
	if b.ShortArticle != nil {
		n++
	}
	if b.Infographic != nil {
		n++
	}
	return n
}
