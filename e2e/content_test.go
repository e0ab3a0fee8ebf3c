package e2e

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func TestSubmit_Success(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/", validSubmitBody())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusAccepted)

	result := parseJSON(t, resp)
	if result["jobId"] == nil || result["jobId"] == "" {
		t.Error("expected 'jobId' in response")
	}
	if result["status"] != "pending" {
		t.Errorf("expected status 'pending', got %v", result["status"])
	}
}

func TestSubmit_NoAuth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/content/", validSubmitBody(), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestSubmit_EmptyTitle(t *testing.T) {
	ta := setupApp(t)

	body := `{"title": "", "content": "some content"}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)

	result := parseJSON(t, resp)
	errObj := result["error"].(map[string]interface{})
	if errObj["code"] != "VALIDATION_ERROR" {
		t.Errorf("expected error code VALIDATION_ERROR, got %v", errObj["code"])
	}
}

func TestSubmit_MissingContent(t *testing.T) {
	ta := setupApp(t)

	body := `{"title": "A title"}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestStatus_PendingImmediately(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/", validSubmitBody())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	jobID := parseJSON(t, resp)["jobId"].(string)

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/content/"+jobID, "")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["jobId"] != jobID {
		t.Errorf("expected jobId %s, got %v", jobID, result["jobId"])
	}
	status := result["status"]
	if status != "pending" && status != "processing" && status != "completed" {
		t.Errorf("unexpected status %v", status)
	}
}

func TestStatus_WaitUntilCompleted(t *testing.T) {
	ta := setupApp(t)

	_, result := submitAndAwait(t, ta)

	if result["status"] != "completed" {
		t.Fatalf("expected completed, got %v", result["status"])
	}
	if result["progress"] != 1.0 {
		t.Errorf("expected progress 1.0, got %v", result["progress"])
	}

	bundle, ok := result["bundle"].(map[string]interface{})
	if !ok {
		t.Fatal("expected bundle on completed job")
	}
	posts, ok := bundle["socialPosts"].([]interface{})
	if !ok || len(posts) == 0 {
		t.Error("expected social posts in bundle")
	}
	if bundle["analysis"] == nil {
		t.Error("expected analysis in bundle")
	}
}

func TestStatus_NotFound(t *testing.T) {
	ta := setupApp(t)

	fakeJobID := uuid.New().String()
	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/content/"+fakeJobID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)

	result := parseJSON(t, resp)
	errObj := result["error"].(map[string]interface{})
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("expected error code NOT_FOUND, got %v", errObj["code"])
	}
}

func TestList_ReturnsSubmittedJobs(t *testing.T) {
	ta := setupApp(t)

	for i := 0; i < 3; i++ {
		resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/", validSubmitBody())
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		assertStatus(t, resp, http.StatusAccepted)
		readBody(t, resp)
	}

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/content/", "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["total"] != 3.0 {
		t.Errorf("expected total 3, got %v", result["total"])
	}
	jobs, ok := result["jobs"].([]interface{})
	if !ok || len(jobs) != 3 {
		t.Errorf("expected 3 jobs in page, got %v", result["jobs"])
	}
}
