package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quiz-admin-service/internal/domain"

	"github.com/gorilla/websocket"
)

func TestLiveStreamDeliversSubmissionEvents(t *testing.T) {
	srv := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/analytics/live"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The handshake returns before the handler subscribes; give it a beat
	// so the submission below is not published into an empty bus.
	time.Sleep(100 * time.Millisecond)

	// A qualifying submission through the REST surface must show up on
	// the stream.
	_, raw := doJSON(t, http.MethodPost, srv.URL+"/attempts", `{"quizId":"quiz-1","userId":"u1"}`)
	var created domain.Attempt
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatalf("decode attempt: %v", err)
	}
	resp, raw := doJSON(t, http.MethodPut, srv.URL+"/attempts/"+created.ID, `{"status":"submitted","scorePct":88,"passed":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status %d: %s", resp.StatusCode, raw)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev domain.AttemptEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.AttemptID != created.ID || ev.QuizID != "quiz-1" || !ev.Passed {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if !ev.CertificateIssued {
		t.Fatalf("expected certificateIssued on a passing submission: %+v", ev)
	}
}

func TestLiveStreamWithoutBus(t *testing.T) {
	srv := httptest.NewServer((&Handler{}).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/analytics/live")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", resp.StatusCode)
	}
}
