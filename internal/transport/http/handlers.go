package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"quiz-admin-service/internal/app"
	"quiz-admin-service/internal/domain"

	"github.com/go-chi/chi/v5"
)

// Handler wires the lifecycle service and aggregator into the REST surface.
type Handler struct {
	lifecycle *app.LifecycleService
	analytics *app.Aggregator
	bus       *app.EventBus
}

func NewHandler(lifecycle *app.LifecycleService, analytics *app.Aggregator, bus *app.EventBus) *Handler {
	return &Handler{lifecycle: lifecycle, analytics: analytics, bus: bus}
}

// Router builds the chi mux. Unmatched methods on known routes get 405
// from chi's method router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/attempts", func(r chi.Router) {
		r.Post("/", h.createAttempt)
		r.Post("/{id}/answers", h.recordAnswers)
		r.Put("/{id}", h.updateAttempt)
		r.Get("/{id}", h.attemptDetail)
		r.Delete("/{id}", h.deleteAttempt)
	})

	r.Get("/results", h.listResults)
	r.Get("/results/stats", h.resultStats)

	r.Get("/analytics/live", h.live)
	r.Get("/analytics/{slug}", h.analyticsBySlug)

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) createAttempt(w http.ResponseWriter, r *http.Request) {
	var in app.CreateAttemptInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if in.QuizID == "" || in.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "quizId and userId are required"})
		return
	}
	attempt, err := h.lifecycle.CreateAttempt(r.Context(), in)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

func (h *Handler) recordAnswers(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "id")

	// The body must be a JSON array; anything else is a 400. An empty
	// array is fine, recording nothing.
	var answers []app.AnswerInput
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must be a JSON array of answers"})
		return
	}
	if answers == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must be a JSON array of answers"})
		return
	}

	if err := h.lifecycle.RecordAnswers(r.Context(), attemptID, answers); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

// updateResponse flattens the attempt alongside the certificate field,
// which is null unless one exists for (user, quiz).
type updateResponse struct {
	*domain.Attempt
	Certificate *domain.Certificate `json:"certificate"`
}

func (h *Handler) updateAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "id")

	var patch app.AttemptPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	attempt, cert, err := h.lifecycle.UpdateAttempt(r.Context(), attemptID, patch)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyPatch):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrAttemptNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Attempt: attempt, Certificate: cert})
}

func (h *Handler) attemptDetail(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "id")
	detail, err := h.lifecycle.GetAttemptDetail(r.Context(), attemptID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	// A missing attempt is a null payload, not a 404; callers check for null.
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) deleteAttempt(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.DeleteAttempt(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resultRow is the display-normalized listing shape for the results screen.
type resultRow struct {
	ID            string  `json:"id"`
	QuizID        string  `json:"quizId"`
	UserID        string  `json:"userId"`
	AttemptNumber int     `json:"attemptNumber"`
	Status        string  `json:"status"`
	Score         float64 `json:"score"`
	Points        float64 `json:"points"`
	TotalPoints   float64 `json:"totalPoints"`
	Passed        bool    `json:"passed"`
	Flagged       bool    `json:"flagged"`
	FlagReason    string  `json:"flagReason"`
	TabSwitches   int     `json:"tabSwitches"`
	TimeTaken     string  `json:"timeTaken"`
	SubmittedAt   string  `json:"submittedAt"`
}

func (h *Handler) listResults(w http.ResponseWriter, r *http.Request) {
	filter := domain.AttemptFilter{
		QuizID: r.URL.Query().Get("quizId"),
		UserID: r.URL.Query().Get("userId"),
	}
	if raw := r.URL.Query().Get("flagged"); raw != "" {
		flagged := raw == "true" || raw == "1"
		filter.Flagged = &flagged
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	attempts, err := h.lifecycle.ListAttempts(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	rows := make([]resultRow, 0, len(attempts))
	for _, a := range attempts {
		row := resultRow{
			ID:            a.ID,
			QuizID:        a.QuizID,
			UserID:        a.UserID,
			AttemptNumber: a.AttemptNumber,
			Status:        a.Status,
			Score:         a.ScorePct,
			Points:        a.PointsEarned,
			TotalPoints:   a.TotalPoints,
			Passed:        a.Passed,
			Flagged:       a.Flagged,
			FlagReason:    a.FlagReason,
			TabSwitches:   a.TabSwitches,
			TimeTaken:     app.FormatDuration(a.TimeTakenS),
		}
		if a.SubmittedAt != nil {
			row.SubmittedAt = a.SubmittedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) resultStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.ResultStats(r.Context(), r.URL.Query().Get("quizId"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	// stats is nil when no qualifying rows exist; that serializes to null.
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) analyticsBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		payload any
		err     error
	)
	switch chi.URLParam(r, "slug") {
	case "admin-stats":
		payload, err = h.analytics.AdminStats(ctx)
	case "score-distribution":
		payload, err = h.analytics.ScoreDistribution(ctx, r.URL.Query().Get("quizId"))
	case "performance":
		days := 7
		if raw := r.URL.Query().Get("days"); raw != "" {
			if n, convErr := strconv.Atoi(raw); convErr == nil {
				days = n
			}
		}
		payload, err = h.analytics.PerformanceOverTime(ctx, days)
	case "question-performance":
		payload, err = h.analytics.QuestionPerformance(ctx, r.URL.Query().Get("quizId"))
	case "signups":
		payload, err = h.analytics.SignupOverTime(ctx)
	case "popular-quizzes":
		limit := 5
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, convErr := strconv.Atoi(raw); convErr == nil {
				limit = n
			}
		}
		payload, err = h.analytics.PopularQuizzes(ctx, limit)
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown analytics report"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
