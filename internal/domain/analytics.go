package domain

import "time"

// AttemptFact is the flat read-side projection of one qualifying attempt
// (status submitted or graded) that the aggregator consumes.
type AttemptFact struct {
	QuizID      string
	UserID      string
	ScorePct    float64
	Passed      bool
	TimeTakenS  int
	SubmittedAt time.Time
}

// AnswerFact is the read-side projection of one answer row.
type AnswerFact struct {
	QuestionID string
	IsCorrect  *bool
	TimeSpentS int
}

// AdminStats backs the admin dashboard header cards.
type AdminStats struct {
	TotalUsers       int     `json:"totalUsers"`
	PublishedQuizzes int     `json:"publishedQuizzes"`
	AttemptsLast24h  int     `json:"attemptsLast24h"`
	AvgScore         float64 `json:"avgScore"`
}

// ScoreBucket is one fixed-width decile of the score histogram.
type ScoreBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// DailyPerformance is one calendar day of submission activity.
type DailyPerformance struct {
	Date     string `json:"date"`
	Attempts int    `json:"attempts"`
	AvgScore int    `json:"avgScore"`
}

// QuestionStats aggregates answers per question. Discrimination is the
// fraction-correct minus 0.5, a rough item-quality proxy in [-0.5, 0.5],
// not the formal point-biserial correlation.
type QuestionStats struct {
	QuestionID     string  `json:"questionId"`
	Total          int     `json:"total"`
	Correct        int     `json:"correct"`
	AvgTimeS       int     `json:"avgTime"`
	Discrimination float64 `json:"discriminationIndex"`
}

// MonthlySignups is one calendar month of profile creations.
type MonthlySignups struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// QuizPopularity ranks a quiz by qualifying attempt count.
type QuizPopularity struct {
	QuizID   string `json:"quizId"`
	Title    string `json:"title"`
	Attempts int    `json:"attempts"`
}

// ResultStats summarizes qualifying attempts for the results screen.
type ResultStats struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	AvgScore float64 `json:"avgScore"`
	AvgTime  string  `json:"avgTime"`
	PassRate float64 `json:"passRate"`
}
