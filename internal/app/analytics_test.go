package app_test

import (
	"context"
	"testing"
	"time"

	"quiz-admin-service/internal/app"
	"quiz-admin-service/internal/domain"
)

type fakeAnalyticsStore struct {
	attempts []domain.AttemptFact
	answers  []domain.AnswerFact
	users    int
	quizzes  int
	signups  []time.Time
	titles   map[string]string
}

func (f *fakeAnalyticsStore) AttemptFacts(_ context.Context, quizID string, since time.Time) ([]domain.AttemptFact, error) {
	out := []domain.AttemptFact{}
	for _, a := range f.attempts {
		if quizID != "" && a.QuizID != quizID {
			continue
		}
		if !since.IsZero() && a.SubmittedAt.Before(since) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAnalyticsStore) AnswerFacts(_ context.Context, _ string) ([]domain.AnswerFact, error) {
	return f.answers, nil
}

func (f *fakeAnalyticsStore) CountUsers(_ context.Context) (int, error) { return f.users, nil }

func (f *fakeAnalyticsStore) CountPublishedQuizzes(_ context.Context) (int, error) {
	return f.quizzes, nil
}

func (f *fakeAnalyticsStore) SignupDates(_ context.Context) ([]time.Time, error) {
	return f.signups, nil
}

func (f *fakeAnalyticsStore) QuizTitles(_ context.Context, ids []string) (map[string]string, error) {
	return f.titles, nil
}

func boolPtr(b bool) *bool { return &b }

func TestScoreDistributionCoversAllScores(t *testing.T) {
	scores := []float64{0, 5, 9.9, 10, 55, 89.99, 90, 99, 100, 100}
	store := &fakeAnalyticsStore{}
	for _, s := range scores {
		store.attempts = append(store.attempts, domain.AttemptFact{QuizID: "q", ScorePct: s, SubmittedAt: time.Now()})
	}

	buckets, err := app.NewAggregator(store).ScoreDistribution(context.Background(), "q")
	if err != nil {
		t.Fatalf("score distribution: %v", err)
	}
	if len(buckets) != 10 {
		t.Fatalf("expected 10 buckets, got %d", len(buckets))
	}
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	if total != len(scores) {
		t.Fatalf("bucket counts sum to %d, want %d", total, len(scores))
	}
	if buckets[0].Range != "0-10" || buckets[9].Range != "90-100" {
		t.Fatalf("unexpected bucket labels: %s .. %s", buckets[0].Range, buckets[9].Range)
	}
	// 100 belongs in the top bucket, never an eleventh.
	if buckets[9].Count != 4 {
		t.Fatalf("top bucket = %d, want 4 (90, 99, 100, 100)", buckets[9].Count)
	}
	if buckets[0].Count != 3 {
		t.Fatalf("bottom bucket = %d, want 3 (0, 5, 9.9)", buckets[0].Count)
	}
}

func TestAdminStatsWindowAndAverage(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeAnalyticsStore{
		users:   42,
		quizzes: 7,
		attempts: []domain.AttemptFact{
			{ScorePct: 80, SubmittedAt: now.Add(-1 * time.Hour)},
			{ScorePct: 60, SubmittedAt: now.Add(-23 * time.Hour)},
			{ScorePct: 100, SubmittedAt: now.Add(-48 * time.Hour)},
		},
	}
	agg := app.NewAggregator(store).WithClock(func() time.Time { return now })

	stats, err := agg.AdminStats(context.Background())
	if err != nil {
		t.Fatalf("admin stats: %v", err)
	}
	if stats.TotalUsers != 42 || stats.PublishedQuizzes != 7 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.AttemptsLast24h != 2 {
		t.Fatalf("attempts last 24h = %d, want 2", stats.AttemptsLast24h)
	}
	if stats.AvgScore != 80 {
		t.Fatalf("avg score = %v, want 80", stats.AvgScore)
	}
}

func TestAdminStatsEmpty(t *testing.T) {
	stats, err := app.NewAggregator(&fakeAnalyticsStore{}).AdminStats(context.Background())
	if err != nil {
		t.Fatalf("admin stats: %v", err)
	}
	if stats.AvgScore != 0 || stats.AttemptsLast24h != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestPerformanceOverTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	day := func(offset int, hour int) time.Time {
		return time.Date(2026, 3, 10+offset, hour, 0, 0, 0, time.UTC)
	}
	store := &fakeAnalyticsStore{attempts: []domain.AttemptFact{
		{ScorePct: 70, SubmittedAt: day(-2, 9)},
		{ScorePct: 90, SubmittedAt: day(-2, 14)},
		{ScorePct: 55, SubmittedAt: day(0, 10)},
	}}
	agg := app.NewAggregator(store).WithClock(func() time.Time { return now })

	days, err := agg.PerformanceOverTime(context.Background(), 7)
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 day rows, got %d", len(days))
	}
	if days[0].Date != "Mar 8" || days[0].Attempts != 2 || days[0].AvgScore != 80 {
		t.Fatalf("unexpected first row: %+v", days[0])
	}
	if days[1].Date != "Mar 10" || days[1].Attempts != 1 || days[1].AvgScore != 55 {
		t.Fatalf("unexpected second row: %+v", days[1])
	}
}

func TestPerformanceOverTimeUsesLocalCalendarDay(t *testing.T) {
	zone := time.FixedZone("UTC+10", 10*60*60)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, zone)
	// 01:00 local on Mar 10 is still Mar 9 in UTC; the label must follow
	// the timestamp's own calendar day.
	store := &fakeAnalyticsStore{attempts: []domain.AttemptFact{
		{ScorePct: 60, SubmittedAt: time.Date(2026, 3, 10, 1, 0, 0, 0, zone)},
	}}
	agg := app.NewAggregator(store).WithClock(func() time.Time { return now })

	days, err := agg.PerformanceOverTime(context.Background(), 7)
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("expected 1 day row, got %d", len(days))
	}
	if days[0].Date != "Mar 10" {
		t.Fatalf("date label = %q, want Mar 10", days[0].Date)
	}
}

func TestQuestionPerformanceDiscriminationBounds(t *testing.T) {
	store := &fakeAnalyticsStore{answers: []domain.AnswerFact{
		{QuestionID: "q1", IsCorrect: boolPtr(true), TimeSpentS: 30},
		{QuestionID: "q1", IsCorrect: boolPtr(true), TimeSpentS: 50},
		{QuestionID: "q2", IsCorrect: boolPtr(false), TimeSpentS: 10},
		{QuestionID: "q2", IsCorrect: nil, TimeSpentS: 20},
		{QuestionID: "q3", IsCorrect: boolPtr(true), TimeSpentS: 12},
		{QuestionID: "q3", IsCorrect: boolPtr(false), TimeSpentS: 8},
	}}

	stats, err := app.NewAggregator(store).QuestionPerformance(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("question performance: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(stats))
	}
	for _, s := range stats {
		if s.Discrimination < -0.5 || s.Discrimination > 0.5 {
			t.Fatalf("discrimination %v out of [-0.5, 0.5] for %s", s.Discrimination, s.QuestionID)
		}
	}
	if stats[0].QuestionID != "q1" || stats[0].Discrimination != 0.5 || stats[0].AvgTimeS != 40 {
		t.Fatalf("unexpected q1 stats: %+v", stats[0])
	}
	// An ungraded answer counts toward total but not correct.
	if stats[1].Total != 2 || stats[1].Correct != 0 || stats[1].Discrimination != -0.5 {
		t.Fatalf("unexpected q2 stats: %+v", stats[1])
	}
	if stats[2].Discrimination != 0 {
		t.Fatalf("unexpected q3 discrimination: %v", stats[2].Discrimination)
	}
}

func TestSignupOverTime(t *testing.T) {
	store := &fakeAnalyticsStore{signups: []time.Time{
		time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}}

	months, err := app.NewAggregator(store).SignupOverTime(context.Background())
	if err != nil {
		t.Fatalf("signups: %v", err)
	}
	if len(months) != 2 {
		t.Fatalf("expected 2 months, got %d", len(months))
	}
	if months[0].Month != "Jan 2026" || months[0].Count != 2 {
		t.Fatalf("unexpected first month: %+v", months[0])
	}
	if months[1].Month != "Feb 2026" || months[1].Count != 1 {
		t.Fatalf("unexpected second month: %+v", months[1])
	}
}

func TestPopularQuizzes(t *testing.T) {
	store := &fakeAnalyticsStore{
		titles: map[string]string{"a": "Alpha", "b": "Beta", "c": "Gamma"},
	}
	add := func(quiz string, n int) {
		for i := 0; i < n; i++ {
			store.attempts = append(store.attempts, domain.AttemptFact{QuizID: quiz, SubmittedAt: time.Now()})
		}
	}
	add("a", 2)
	add("b", 5)
	add("c", 2)

	top, err := app.NewAggregator(store).PopularQuizzes(context.Background(), 2)
	if err != nil {
		t.Fatalf("popular quizzes: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(top))
	}
	if top[0].QuizID != "b" || top[0].Attempts != 5 || top[0].Title != "Beta" {
		t.Fatalf("unexpected leader: %+v", top[0])
	}
	// Ties break on quiz id.
	if top[1].QuizID != "a" {
		t.Fatalf("expected tie to break to a, got %s", top[1].QuizID)
	}
}

func TestResultStats(t *testing.T) {
	store := &fakeAnalyticsStore{attempts: []domain.AttemptFact{
		{QuizID: "q", ScorePct: 90, Passed: true, TimeTakenS: 120, SubmittedAt: time.Now()},
		{QuizID: "q", ScorePct: 40, Passed: false, TimeTakenS: 65, SubmittedAt: time.Now()},
		{QuizID: "q", ScorePct: 75, Passed: true, TimeTakenS: 100, SubmittedAt: time.Now()},
	}}

	stats, err := app.NewAggregator(store).ResultStats(context.Background(), "q")
	if err != nil {
		t.Fatalf("result stats: %v", err)
	}
	if stats == nil {
		t.Fatalf("expected stats, got nil")
	}
	if stats.Total != 3 || stats.Passed != 2 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.AvgScore != 68.3 {
		t.Fatalf("avg score = %v, want 68.3", stats.AvgScore)
	}
	if stats.PassRate != 66.7 {
		t.Fatalf("pass rate = %v, want 66.7", stats.PassRate)
	}
	if stats.AvgTime != "1m 35s" {
		t.Fatalf("avg time = %q, want 1m 35s", stats.AvgTime)
	}
}

func TestResultStatsEmptyIsNil(t *testing.T) {
	stats, err := app.NewAggregator(&fakeAnalyticsStore{}).ResultStats(context.Background(), "q")
	if err != nil {
		t.Fatalf("result stats: %v", err)
	}
	if stats != nil {
		t.Fatalf("expected nil for no qualifying attempts, got %+v", stats)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "0m 0s"},
		{59, "0m 59s"},
		{60, "1m 0s"},
		{155, "2m 35s"},
		{-5, "0m 0s"},
	}
	for _, c := range cases {
		if got := app.FormatDuration(c.seconds); got != c.want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", c.seconds, got, c.want)
		}
	}
}
