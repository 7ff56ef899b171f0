package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quiz-admin-service/internal/app"
	"quiz-admin-service/internal/domain"
	"quiz-admin-service/internal/infra/memory"
)

type noopNotifier struct{}

func (noopNotifier) Notify(app.CertificateEmail) {}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	attempts := memory.NewAttemptStore()
	answers := memory.NewAnswerStore()
	certs := memory.NewCertificateStore()
	settings := memory.NewSettingsCache(memory.NewStaticSettingsLoader(map[string]domain.CertificateSettings{
		"quiz-1": {QuizID: "quiz-1", QuizTitle: "Go Basics", Enabled: true, TemplateRaw: `{"expiry":"1y"}`},
	}), 5*time.Minute)
	recipients := memory.NewStaticRecipients(map[string]domain.Recipient{
		"u1": {UserID: "u1", Email: "alice@example.com", Name: "Alice"},
	})
	bus := app.NewEventBus()

	issuer := app.NewCertificateIssuer(certs, settings, recipients, noopNotifier{})
	lifecycle := app.NewLifecycleService(attempts, answers, issuer, bus)
	analytics := app.NewAggregator(memory.NewAnalyticsStore(attempts, answers))

	srv := httptest.NewServer(NewHandler(lifecycle, analytics, bus).Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp, raw
}

func TestAttemptLifecycleFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/attempts", `{"quizId":"quiz-1","userId":"u1"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", resp.StatusCode, raw)
	}
	var created domain.Attempt
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatalf("decode attempt: %v", err)
	}
	if created.ID == "" || created.Status != domain.StatusInProgress {
		t.Fatalf("unexpected created attempt: %s", raw)
	}

	resp, raw = doJSON(t, http.MethodPost, srv.URL+"/attempts/"+created.ID+"/answers",
		`[{"questionId":"q1","answer":"b","isCorrect":true,"pointsEarned":2,"timeSpentS":30}]`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("answers status %d: %s", resp.StatusCode, raw)
	}

	resp, raw = doJSON(t, http.MethodPut, srv.URL+"/attempts/"+created.ID,
		`{"status":"submitted","scorePct":90,"passed":true,"timeTakenS":95}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status %d: %s", resp.StatusCode, raw)
	}
	var updated struct {
		domain.Attempt
		Certificate *domain.Certificate `json:"certificate"`
	}
	if err := json.Unmarshal(raw, &updated); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if updated.Status != domain.StatusSubmitted || updated.SubmittedAt == nil {
		t.Fatalf("unexpected updated attempt: %s", raw)
	}
	if updated.Certificate == nil {
		t.Fatalf("expected certificate in response: %s", raw)
	}
	if updated.Certificate.ExpiresAt == nil {
		t.Fatalf("1y template should set an expiry: %s", raw)
	}

	resp, raw = doJSON(t, http.MethodGet, srv.URL+"/attempts/"+created.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("detail status %d: %s", resp.StatusCode, raw)
	}
	var detail app.AttemptDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Attempt == nil || len(detail.Answers) != 1 {
		t.Fatalf("unexpected detail: %s", raw)
	}

	resp, raw = doJSON(t, http.MethodGet, srv.URL+"/results", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("results status %d: %s", resp.StatusCode, raw)
	}
	var rows []resultRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(rows) != 1 || rows[0].TimeTaken != "1m 35s" {
		t.Fatalf("unexpected results: %s", raw)
	}

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/attempts/"+created.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
}

func TestCreateAttemptValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/attempts", `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid JSON status %d", resp.StatusCode)
	}

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/attempts", `{"quizId":"quiz-1"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing userId status %d", resp.StatusCode)
	}
	if !strings.Contains(string(raw), "required") {
		t.Fatalf("unexpected error body: %s", raw)
	}
}

func TestRecordAnswersRejectsNonArray(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{`{"questionId":"q1"}`, `null`, `"answers"`} {
		resp, raw := doJSON(t, http.MethodPost, srv.URL+"/attempts/a1/answers", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status %d, want 400", body, resp.StatusCode)
		}
		if !strings.Contains(string(raw), "JSON array") {
			t.Fatalf("body %q: unexpected error %s", body, raw)
		}
	}

	// An empty array is list-shaped and records nothing.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/attempts/a1/answers", `[]`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("empty array status %d, want 201", resp.StatusCode)
	}
}

func TestUpdateAttemptErrors(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/attempts/missing", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty patch status %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/attempts/missing", `{"status":"submitted"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown attempt status %d, want 404", resp.StatusCode)
	}
}

func TestAttemptDetailMissingIsNull(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/attempts/no-such-id", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
	var detail struct {
		Attempt *domain.Attempt       `json:"attempt"`
		Answers []domain.AnswerDetail `json:"answers"`
	}
	if err := json.Unmarshal(raw, &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.Attempt != nil {
		t.Fatalf("expected null attempt: %s", raw)
	}
	if detail.Answers == nil {
		t.Fatalf("answers should be an empty array, not null: %s", raw)
	}
}

func TestResultStatsEmptyIsNull(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/results/stats", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if strings.TrimSpace(string(raw)) != "null" {
		t.Fatalf("expected null body, got %s", raw)
	}
}

func TestAnalyticsSlugs(t *testing.T) {
	srv := newTestServer(t)

	for _, slug := range []string{"admin-stats", "score-distribution", "performance", "question-performance", "signups", "popular-quizzes"} {
		resp, raw := doJSON(t, http.MethodGet, srv.URL+"/analytics/"+slug, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("slug %s: status %d: %s", slug, resp.StatusCode, raw)
		}
	}

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/analytics/nope", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown slug status %d, want 404", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/attempts")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /attempts status %d, want 405", resp.StatusCode)
	}
}

func TestScoreDistributionSumsToAttemptCount(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 5; i++ {
		_, raw := doJSON(t, http.MethodPost, srv.URL+"/attempts", `{"quizId":"quiz-1","userId":"u1"}`)
		var created domain.Attempt
		if err := json.Unmarshal(raw, &created); err != nil {
			t.Fatalf("decode: %v", err)
		}
		body := fmt.Sprintf(`{"status":"submitted","scorePct":%d,"passed":false}`, i*25)
		if resp, raw := doJSON(t, http.MethodPut, srv.URL+"/attempts/"+created.ID, body); resp.StatusCode != http.StatusOK {
			t.Fatalf("submit %d: status %d: %s", i, resp.StatusCode, raw)
		}
	}

	_, raw := doJSON(t, http.MethodGet, srv.URL+"/analytics/score-distribution?quizId=quiz-1", "")
	var buckets []domain.ScoreBucket
	if err := json.Unmarshal(raw, &buckets); err != nil {
		t.Fatalf("decode buckets: %v", err)
	}
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	if total != 5 {
		t.Fatalf("bucket counts sum to %d, want 5: %s", total, raw)
	}
}
