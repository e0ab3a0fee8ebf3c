package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/repurposely/api/internal/client"
	"github.com/repurposely/api/internal/config"
	"github.com/repurposely/api/internal/handler"
	"github.com/repurposely/api/internal/middleware"
	"github.com/repurposely/api/internal/service"
	"github.com/repurposely/api/internal/store"
	"github.com/repurposely/api/internal/worker"
	ws "github.com/repurposely/api/internal/websocket"
)

const testJWTSecret = "test-secret-for-e2e"

// dispatcher runs enqueued tasks in-process instead of through Redis, so
// the full submit→generate→distribute→deliver flow works in tests.
type dispatcher struct {
	mu       sync.Mutex
	handlers map[string]func(context.Context, *asynq.Task) error
}

func newDispatcher() *dispatcher {
	return &dispatcher{handlers: make(map[string]func(context.Context, *asynq.Task) error)}
}

func (d *dispatcher) Handle(taskType string, h func(context.Context, *asynq.Task) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[taskType] = h
}

func (d *dispatcher) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	d.mu.Lock()
	h := d.handlers[task.Type()]
	d.mu.Unlock()
	if h == nil {
		return nil, fmt.Errorf("no handler for task type %s", task.Type())
	}
	go h(context.Background(), task)
	return &asynq.TaskInfo{}, nil
}

// testApp holds all components needed for testing
type testApp struct {
	app *fiber.App
}

// setupApp builds a Fiber app mirroring main.go with in-memory stores, an
// in-process task dispatcher, and unconfigured external clients so the
// pipeline runs its demo paths.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	jobStore := store.NewMemoryJobStore()
	attemptStore := store.NewMemoryAttemptStore()

	disp := newDispatcher()
	contentService := service.NewContentService(jobStore, disp)
	distributionService := service.NewDistributionService(jobStore, attemptStore, disp)

	// Unconfigured adapters → demo-mode receipts
	adapters := client.NewAdapterRegistry(&config.Config{})

	generateWorker := worker.NewGenerateWorker(contentService, nil, hub, 10*time.Second)
	generateWorker.StepDelay = 50 * time.Millisecond
	deliveryWorker := worker.NewDeliveryWorker(distributionService, contentService, adapters, time.Second)

	disp.Handle(service.TaskTypeGenerate, generateWorker.ProcessTask)
	disp.Handle(service.TaskTypeDeliver, deliveryWorker.ProcessTask)

	contentHandler := handler.NewContentHandler(contentService, validate, 10*time.Second)
	distributionHandler := handler.NewDistributionHandler(distributionService, validate, 10*time.Second)
	analyticsHandler := handler.NewAnalyticsHandler(distributionService)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	content := api.Group("/content")
	content.Post("/", contentHandler.Submit)
	content.Get("/", contentHandler.List)
	content.Get("/:jobId", contentHandler.Status)
	content.Post("/:jobId/distribute", distributionHandler.Distribute)
	content.Get("/:jobId/attempts", distributionHandler.Attempts)

	analytics := api.Group("/analytics")
	analytics.Get("/overview", analyticsHandler.Overview)
	analytics.Get("/posts/:target", analyticsHandler.Posts)

	return &testApp{app: app}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	m := middleware.NewAuthMiddleware(testJWTSecret)
	token, err := m.GenerateToken("test-user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// submitAndAwait submits content and polls until the job is terminal.
func submitAndAwait(t *testing.T, ta *testApp) (string, map[string]interface{}) {
	t.Helper()

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/", validSubmitBody())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	jobID := parseJSON(t, resp)["jobId"].(string)

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/content/"+jobID+"?wait=true", "")
	if err != nil {
		t.Fatalf("status poll failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	return jobID, parseJSON(t, resp)
}

func validSubmitBody() string {
	return `{
		"title": "Remote Work Productivity Study",
		"content": "A recent study of 2,000 knowledge workers found that distributed teams maintain output while reporting higher satisfaction. Companies adopting flexible policies saw retention improve by 25%."
	}`
}
