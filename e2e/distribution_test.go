package e2e

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func TestDistribute_FullFlow(t *testing.T) {
	ta := setupApp(t)

	jobID, result := submitAndAwait(t, ta)
	if result["status"] != "completed" {
		t.Fatalf("generation did not complete: %v", result["status"])
	}

	body := `{"targets": ["twitter", "linkedin", "email"]}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/"+jobID+"/distribute", body)
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)

	distResult := parseJSON(t, resp)
	attemptIDs, ok := distResult["attemptIds"].([]interface{})
	if !ok || len(attemptIDs) != 3 {
		t.Fatalf("expected 3 attempt ids, got %v", distResult["attemptIds"])
	}

	// Poll until all attempts are resolved (demo-mode adapters simulate
	// receipts, so they should all land on posted).
	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/content/"+jobID+"/attempts?wait=true", "")
	if err != nil {
		t.Fatalf("attempts poll failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	attemptsResult := parseJSON(t, resp)
	if attemptsResult["resolved"] != true {
		t.Fatal("expected all attempts resolved")
	}
	attempts := attemptsResult["attempts"].([]interface{})
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(attempts))
	}
	for _, raw := range attempts {
		a := raw.(map[string]interface{})
		if a["status"] != "posted" {
			t.Errorf("expected posted, got %v for %v", a["status"], a["targetKind"])
		}
		if a["postId"] == nil || a["postUrl"] == nil {
			t.Errorf("expected receipt fields on posted attempt: %v", a)
		}
	}
}

func TestDistribute_PendingJobRejected(t *testing.T) {
	ta := setupApp(t)

	// Submit but do not wait for completion; race is possible, so submit a
	// job and immediately distribute. The generate pipeline sleeps between
	// steps, so the job cannot be completed yet.
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/", validSubmitBody())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	jobID := parseJSON(t, resp)["jobId"].(string)

	body := `{"targets": ["twitter"]}`
	resp, err = doAuthRequest(t, ta.app, http.MethodPost, "/api/content/"+jobID+"/distribute", body)
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}

	assertStatus(t, resp, http.StatusConflict)

	result := parseJSON(t, resp)
	errObj := result["error"].(map[string]interface{})
	if errObj["code"] != "INVALID_STATE" {
		t.Errorf("expected error code INVALID_STATE, got %v", errObj["code"])
	}
}

func TestDistribute_UnknownJob(t *testing.T) {
	ta := setupApp(t)

	body := `{"targets": ["twitter"]}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/"+uuid.New().String()+"/distribute", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestDistribute_UnknownTarget(t *testing.T) {
	ta := setupApp(t)

	jobID, _ := submitAndAwait(t, ta)

	body := `{"targets": ["myspace"]}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/"+jobID+"/distribute", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestDistribute_EmptyTargets(t *testing.T) {
	ta := setupApp(t)

	jobID, _ := submitAndAwait(t, ta)

	body := `{"targets": []}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/"+jobID+"/distribute", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestAttempts_FilterByTarget(t *testing.T) {
	ta := setupApp(t)

	jobID, _ := submitAndAwait(t, ta)

	body := `{"targets": ["twitter", "email"]}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/"+jobID+"/distribute", body)
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	readBody(t, resp)

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/content/"+jobID+"/attempts?target=email&wait=true", "")
	if err != nil {
		t.Fatalf("attempts request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	attempts := result["attempts"].([]interface{})
	if len(attempts) != 1 {
		t.Fatalf("expected 1 email attempt, got %d", len(attempts))
	}
	a := attempts[0].(map[string]interface{})
	if a["targetKind"] != "email" {
		t.Errorf("expected email attempt, got %v", a["targetKind"])
	}
}

func TestAttempts_UnknownJob(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/content/"+uuid.New().String()+"/attempts", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestAttempts_EmptyBeforeDistribution(t *testing.T) {
	ta := setupApp(t)

	jobID, _ := submitAndAwait(t, ta)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/content/"+jobID+"/attempts", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	attempts, ok := result["attempts"].([]interface{})
	if ok && len(attempts) != 0 {
		t.Errorf("expected no attempts before distribution, got %d", len(attempts))
	}
}
