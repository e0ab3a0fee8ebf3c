package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/repurposely/api/internal/client"
	"github.com/repurposely/api/internal/model"
	"github.com/repurposely/api/internal/service"
	"github.com/repurposely/api/internal/websocket"
)

// GenerateWorker runs the generation pipeline for one job: analyze the raw
// content, produce the artifact bundle, and terminate the job exactly once.
type GenerateWorker struct {
	content  *service.ContentService
	producer client.ArtifactProducer
	hub      *websocket.Hub
	timeout  time.Duration

	// StepDelay paces the local fallback pipeline; tests shrink it.
	StepDelay time.Duration
}

func NewGenerateWorker(content *service.ContentService, producer client.ArtifactProducer, hub *websocket.Hub, timeout time.Duration) *GenerateWorker {
	return &GenerateWorker{
		content:   content,
		producer:  producer,
		hub:       hub,
		timeout:   timeout,
		StepDelay: 800 * time.Millisecond,
	}
}

// ProcessTask handles one generation task.
func (w *GenerateWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.GenerateTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	jobID := payload.JobID

	if err := w.content.MarkProcessing(ctx, jobID); err != nil {
		if errors.Is(err, service.ErrAlreadyDispatched) {
			log.Printf("Generation for job %s already dispatched, skipping", jobID)
			return nil
		}
		return err
	}
	log.Printf("Starting generation for job %s", jobID)

	job, err := w.content.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	genCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	w.updateProgress(ctx, jobID, 0.1, "Dispatching generation pipeline")

	var bundle *model.ArtifactBundle
	if w.producer == nil || !w.producer.IsConfigured() {
		bundle, err = w.processLocally(genCtx, jobID, job)
	} else {
		bundle, err = w.processWithProducer(genCtx, jobID, job)
	}
	if err != nil {
		cause := model.CauseProducerError
		if genCtx.Err() == context.DeadlineExceeded {
			cause = model.CauseTimeout
		}
		w.failJob(ctx, jobID, cause, err.Error())
		return err
	}

	if err := w.content.Complete(ctx, jobID, bundle); err != nil {
		w.failJob(ctx, jobID, model.CauseProducerError, "Failed to save result")
		return err
	}

	w.hub.BroadcastComplete(jobID, bundle)
	log.Printf("Generation for job %s completed with %d artifacts", jobID, bundle.ArtifactCount())
	return nil
}

func (w *GenerateWorker) processWithProducer(ctx context.Context, jobID string, job *model.ContentJob) (*model.ArtifactBundle, error) {
	w.updateProgress(ctx, jobID, 0.3, "Analyzing content")

	bundle, err := w.producer.Produce(ctx, job.Title, job.RawContent)
	if err != nil {
		return nil, err
	}

	w.updateProgress(ctx, jobID, 0.85, "Formatting artifacts")
	return bundle, nil
}

// processLocally builds a deterministic bundle without the inference API.
// This is the demo path for unconfigured deployments.
func (w *GenerateWorker) processLocally(ctx context.Context, jobID string, job *model.ContentJob) (*model.ArtifactBundle, error) {
	steps := []struct {
		progress float64
		step     string
	}{
		{0.3, "Analyzing content"},
		{0.6, "Analysis complete"},
		{0.85, "Generating platform variants"},
	}

	for _, s := range steps {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(w.StepDelay):
		}
		w.updateProgress(ctx, jobID, s.progress, s.step)
	}

	return localBundle(job), nil
}

func (w *GenerateWorker) updateProgress(ctx context.Context, jobID string, progress float64, step string) {
	if err := w.content.UpdateProgress(ctx, jobID, progress, step); err != nil {
		log.Printf("Failed to update progress for job %s: %v", jobID, err)
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusProcessing, step)
}

func (w *GenerateWorker) failJob(ctx context.Context, jobID string, cause model.FailureCause, detail string) {
	if err := w.content.Fail(ctx, jobID, cause, detail); err != nil {
		log.Printf("Failed to mark job %s as failed: %v", jobID, err)
	}
	w.hub.BroadcastError(jobID, "GENERATION_FAILED", detail)
}

// localBundle derives every artifact from the raw content itself.
func localBundle(job *model.ContentJob) *model.ArtifactBundle {
	theme := job.Title
	short := truncate(job.RawContent, 100)
	medium := truncate(job.RawContent, 200)
	long := truncate(job.RawContent, 300)

	posts := []model.SocialPost{
		post(model.TargetLinkedIn, fmt.Sprintf("Sharing insights about %s. %s", theme, short), []string{"professional", "insights"}),
		post(model.TargetTwitter, fmt.Sprintf("Key points about %s: %s", theme, truncate(job.RawContent, 80)), []string{"content"}),
		post(model.TargetFacebook, fmt.Sprintf("Exploring %s. %s What are your thoughts?", theme, short), []string{"discussion"}),
		post(model.TargetInstagram, fmt.Sprintf("Deep dive into %s! %s", theme, short), []string{"insights", "learning"}),
	}

	emailBody := fmt.Sprintf("We've been exploring %s and wanted to share some key insights with you. %s", theme, short)
	articleBody := fmt.Sprintf("The examination of %s reveals several important considerations. %s", theme, truncate(job.RawContent, 400))

	return &model.ArtifactBundle{
		Analysis: model.AnalysisResult{
			MainTheme:      theme,
			Keywords:       keywords(job.RawContent, 5),
			Sentiment:      "neutral",
			Tone:           "professional",
			TargetAudience: "General audience",
			KeyTakeaways:   []string{"Content provides valuable information"},
			SummaryShort:   short,
			SummaryMedium:  medium,
			SummaryLong:    long,
		},
		SocialPosts: posts,
		EmailSnippets: []model.EmailSnippet{{
			Type:      "newsletter_teaser",
			Subject:   "New insights on " + theme,
			Content:   emailBody,
			CTA:       "Read More",
			WordCount: len(strings.Fields(emailBody)),
		}},
		ShortArticle: &model.ShortArticle{
			Headline:     fmt.Sprintf("Understanding %s: Key Insights and Takeaways", theme),
			Introduction: fmt.Sprintf("In today's rapidly evolving landscape, %s has become increasingly important. %s", theme, short),
			MainContent:  articleBody,
			Conclusion:   fmt.Sprintf("These insights about %s provide valuable understanding for moving forward.", theme),
			WordCount:    len(strings.Fields(articleBody)),
			ReadingTime:  "2 min read",
		},
		Infographic: &model.InfographicData{
			Title: "Key Facts About " + theme,
			Statistics: []model.Statistic{
				{Label: "Main Focus", Value: theme, Icon: "target"},
				{Label: "Content Type", Value: "Analysis", Icon: "chart"},
			},
			Sections: []model.InfoBlock{
				{Title: "Overview", Description: short},
				{Title: "Key Points", Description: "Important aspects of " + theme},
			},
			CTA: "Learn More",
		},
		GeneratedAt: time.Now(),
	}
}

func post(kind model.TargetKind, text string, hashtags []string) model.SocialPost {
	return model.SocialPost{
		Platform:       kind,
		Text:           text,
		Hashtags:       hashtags,
		CharacterCount: len(text),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func keywords(content string, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, word := range strings.Fields(strings.ToLower(content)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if len(word) < 6 || seen[word] {
			continue
		}
		seen[word] = true
		out = append(out, word)
		if len(out) == limit {
			break
		}
	}
	if len(out) == 0 {
		out = []string{"content", "information"}
	}
	return out
}
