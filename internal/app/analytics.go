package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"quiz-admin-service/internal/domain"
)

// AnalyticsStore supplies the raw read-side facts the aggregator works
// over. Implementations only return committed rows with status submitted
// or graded; aggregation math stays here so every backend shares it.
type AnalyticsStore interface {
	AttemptFacts(ctx context.Context, quizID string, since time.Time) ([]domain.AttemptFact, error)
	AnswerFacts(ctx context.Context, quizID string) ([]domain.AnswerFact, error)
	CountUsers(ctx context.Context) (int, error)
	CountPublishedQuizzes(ctx context.Context) (int, error)
	SignupDates(ctx context.Context) ([]time.Time, error)
	QuizTitles(ctx context.Context, ids []string) (map[string]string, error)
}

// Aggregator derives dashboard statistics from attempt and answer rows.
// Every query is side-effect-free and safe to run concurrently with
// lifecycle writes.
type Aggregator struct {
	store AnalyticsStore
	now   func() time.Time
}

func NewAggregator(store AnalyticsStore) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// WithClock is test-only for deterministic day/month bucketing.
func (g *Aggregator) WithClock(now func() time.Time) *Aggregator {
	g.now = now
	return g
}

func (g *Aggregator) AdminStats(ctx context.Context) (domain.AdminStats, error) {
	users, err := g.store.CountUsers(ctx)
	if err != nil {
		return domain.AdminStats{}, err
	}
	quizzes, err := g.store.CountPublishedQuizzes(ctx)
	if err != nil {
		return domain.AdminStats{}, err
	}
	facts, err := g.store.AttemptFacts(ctx, "", time.Time{})
	if err != nil {
		return domain.AdminStats{}, err
	}

	cutoff := g.now().Add(-24 * time.Hour)
	recent := 0
	sum := 0.0
	for _, f := range facts {
		if f.SubmittedAt.After(cutoff) {
			recent++
		}
		sum += f.ScorePct
	}
	avg := 0.0
	if len(facts) > 0 {
		avg = sum / float64(len(facts))
	}
	return domain.AdminStats{
		TotalUsers:       users,
		PublishedQuizzes: quizzes,
		AttemptsLast24h:  recent,
		AvgScore:         avg,
	}, nil
}

// ScoreDistribution buckets qualifying scores into ten fixed deciles.
// Scores of exactly 100 land in the top bucket, so the bucket counts
// always sum to the number of qualifying attempts.
func (g *Aggregator) ScoreDistribution(ctx context.Context, quizID string) ([]domain.ScoreBucket, error) {
	facts, err := g.store.AttemptFacts(ctx, quizID, time.Time{})
	if err != nil {
		return nil, err
	}
	counts := make([]int, 10)
	for _, f := range facts {
		idx := int(math.Floor(f.ScorePct / 10))
		if idx > 9 {
			idx = 9
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}
	buckets := make([]domain.ScoreBucket, 10)
	for i := range buckets {
		buckets[i] = domain.ScoreBucket{
			Range: fmt.Sprintf("%d-%d", i*10, (i+1)*10),
			Count: counts[i],
		}
	}
	return buckets, nil
}

// PerformanceOverTime groups submissions from the last `days` days by
// calendar day; the per-day average is rounded to the nearest integer.
func (g *Aggregator) PerformanceOverTime(ctx context.Context, days int) ([]domain.DailyPerformance, error) {
	if days <= 0 {
		days = 7
	}
	since := g.now().AddDate(0, 0, -days)
	facts, err := g.store.AttemptFacts(ctx, "", since)
	if err != nil {
		return nil, err
	}

	type dayAgg struct {
		day   time.Time
		count int
		sum   float64
	}
	byDay := map[string]*dayAgg{}
	for _, f := range facts {
		// Calendar day in the timestamp's own location, not a UTC-epoch
		// 24h window.
		y, m, d := f.SubmittedAt.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, f.SubmittedAt.Location())
		key := day.Format("2006-01-02")
		agg, ok := byDay[key]
		if !ok {
			agg = &dayAgg{day: day}
			byDay[key] = agg
		}
		agg.count++
		agg.sum += f.ScorePct
	}

	aggs := make([]*dayAgg, 0, len(byDay))
	for _, agg := range byDay {
		aggs = append(aggs, agg)
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].day.Before(aggs[j].day) })

	out := make([]domain.DailyPerformance, 0, len(aggs))
	for _, agg := range aggs {
		out = append(out, domain.DailyPerformance{
			Date:     agg.day.Format("Jan 2"),
			Attempts: agg.count,
			AvgScore: int(math.Round(agg.sum / float64(agg.count))),
		})
	}
	return out, nil
}

// QuestionPerformance aggregates correctness and timing per question.
func (g *Aggregator) QuestionPerformance(ctx context.Context, quizID string) ([]domain.QuestionStats, error) {
	facts, err := g.store.AnswerFacts(ctx, quizID)
	if err != nil {
		return nil, err
	}

	type qAgg struct {
		total, correct, timeSum int
	}
	byQuestion := map[string]*qAgg{}
	order := []string{}
	for _, f := range facts {
		agg, ok := byQuestion[f.QuestionID]
		if !ok {
			agg = &qAgg{}
			byQuestion[f.QuestionID] = agg
			order = append(order, f.QuestionID)
		}
		agg.total++
		if f.IsCorrect != nil && *f.IsCorrect {
			agg.correct++
		}
		agg.timeSum += f.TimeSpentS
	}
	sort.Strings(order)

	out := make([]domain.QuestionStats, 0, len(order))
	for _, qid := range order {
		agg := byQuestion[qid]
		ratio := float64(agg.correct) / float64(agg.total)
		out = append(out, domain.QuestionStats{
			QuestionID:     qid,
			Total:          agg.total,
			Correct:        agg.correct,
			AvgTimeS:       int(math.Round(float64(agg.timeSum) / float64(agg.total))),
			Discrimination: math.Round((ratio-0.5)*100) / 100,
		})
	}
	return out, nil
}

// SignupOverTime counts profile creations per calendar month.
func (g *Aggregator) SignupOverTime(ctx context.Context) ([]domain.MonthlySignups, error) {
	dates, err := g.store.SignupDates(ctx)
	if err != nil {
		return nil, err
	}

	type monthAgg struct {
		month time.Time
		count int
	}
	byMonth := map[string]*monthAgg{}
	for _, d := range dates {
		month := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
		key := month.Format("2006-01")
		agg, ok := byMonth[key]
		if !ok {
			agg = &monthAgg{month: month}
			byMonth[key] = agg
		}
		agg.count++
	}

	aggs := make([]*monthAgg, 0, len(byMonth))
	for _, agg := range byMonth {
		aggs = append(aggs, agg)
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].month.Before(aggs[j].month) })

	out := make([]domain.MonthlySignups, 0, len(aggs))
	for _, agg := range aggs {
		out = append(out, domain.MonthlySignups{
			Month: agg.month.Format("Jan 2006"),
			Count: agg.count,
		})
	}
	return out, nil
}

// PopularQuizzes ranks quizzes by qualifying attempt count, descending.
func (g *Aggregator) PopularQuizzes(ctx context.Context, limit int) ([]domain.QuizPopularity, error) {
	if limit <= 0 {
		limit = 5
	}
	facts, err := g.store.AttemptFacts(ctx, "", time.Time{})
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, f := range facts {
		counts[f.QuizID]++
	}
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}

	titles, err := g.store.QuizTitles(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuizPopularity, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.QuizPopularity{
			QuizID:   id,
			Title:    titles[id],
			Attempts: counts[id],
		})
	}
	return out, nil
}

// ResultStats summarizes qualifying attempts, optionally for one quiz.
// Returns nil when no qualifying rows exist.
func (g *Aggregator) ResultStats(ctx context.Context, quizID string) (*domain.ResultStats, error) {
	facts, err := g.store.AttemptFacts(ctx, quizID, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, nil
	}
	passed := 0
	scoreSum := 0.0
	timeSum := 0
	for _, f := range facts {
		if f.Passed {
			passed++
		}
		scoreSum += f.ScorePct
		timeSum += f.TimeTakenS
	}
	n := len(facts)
	return &domain.ResultStats{
		Total:    n,
		Passed:   passed,
		AvgScore: math.Round(scoreSum/float64(n)*10) / 10,
		AvgTime:  FormatDuration(timeSum / n),
		PassRate: math.Round(float64(passed)/float64(n)*1000) / 10,
	}, nil
}

// FormatDuration renders seconds as the display string "{m}m {s}s".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}
