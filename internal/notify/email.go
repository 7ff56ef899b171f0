// Package notify delivers certificate-ready emails through an HTTP email
// provider. Sends never return Go errors: every outcome, including a
// missing credential, is a Result the caller can log and forget.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quiz-admin-service/internal/app"
)

// Result reports a send outcome. OK is false for skips and failures; the
// Reason distinguishes them.
type Result struct {
	OK     bool
	ID     string
	Reason string
}

// Sender posts messages to a provider exposing `POST {base}/emails` with
// bearer auth, accepting {from,to,subject,html} and answering {id}.
type Sender struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

func NewSender(baseURL, apiKey, from string) *Sender {
	return &Sender{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		from:    from,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type providerRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type providerResponse struct {
	ID string `json:"id"`
}

// Send composes and delivers one certificate email.
func (s *Sender) Send(ctx context.Context, email app.CertificateEmail) Result {
	if s.apiKey == "" {
		return Result{OK: false, Reason: "no_api_key"}
	}

	subject, html := Compose(email)
	body, err := json.Marshal(providerRequest{
		From:    s.from,
		To:      email.To,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return Result{OK: false, Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return Result{OK: false, Reason: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{OK: false, Reason: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{OK: false, Reason: fmt.Sprintf("provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}
	var parsed providerResponse
	_ = json.Unmarshal(raw, &parsed)
	return Result{OK: true, ID: parsed.ID}
}

// Compose builds the subject and HTML body. It is a pure function of the
// inputs; unavailable values degrade to placeholders instead of failing.
func Compose(email app.CertificateEmail) (subject, html string) {
	name := email.Name
	if name == "" {
		name = "there"
	}
	score := "—"
	if email.ScorePct != nil {
		score = fmt.Sprintf("%.0f%%", *email.ScorePct)
	}
	issued := email.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	color := email.PrimaryColor
	if color == "" {
		color = "#6366f1"
	}

	subject = fmt.Sprintf("Your certificate for %q is ready", email.QuizTitle)
	html = fmt.Sprintf(
		`<div style="font-family:sans-serif">`+
			`<h2 style="color:%s">Congratulations, %s!</h2>`+
			`<p>You passed <strong>%s</strong> with a score of %s.</p>`+
			`<p>Certificate %s, issued %s.</p>`+
			`</div>`,
		color, name, email.QuizTitle, score, email.CertificateID, issued.Format("January 2, 2006"))
	return subject, html
}
