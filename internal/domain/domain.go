package domain

import "time"

// Category is one of the fixed quiz subject areas.
type Category string

const (
	CategoryDevOps         Category = "devOps"
	CategoryCurrentAffairs Category = "current_affairs"
	CategoryAWS            Category = "aws"
	CategoryAzure          Category = "azure"
)

// Categories lists every supported category in display order.
var Categories = []Category{
	CategoryDevOps,
	CategoryCurrentAffairs,
	CategoryAWS,
	CategoryAzure,
}

// ValidCategory reports whether c belongs to the fixed category set.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Account represents a registered user. Accounts are created on
// registration and never mutated or deleted.
type Account struct {
	AccountID    string
	Username     string
	PasswordHash string
	Email        string
	Country      string
	Education    string
	Career       string
}

// Dump is a quiz-dump listing entry shown on the /dumps page.
type Dump struct {
	Title       string
	Description string
	NumDumps    string
	Category    string
}

// Quiz is the per-category quiz metadata shown on the selection page.
type Quiz struct {
	QuizID      string
	Category    Category
	Title       string
	Description string
}

// Question models an MCQ question. CorrectOption is one of Options.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correct_option"`
}

// RoundState is the in-session state of one quiz round. Answers is
// index-aligned with Questions; a nil entry means unanswered.
type RoundState struct {
	Questions      []Question `json:"questions"`
	Answers        []*string  `json:"user_answers"`
	TotalQuestions int        `json:"total_questions"`
}

// QuestionResult is the per-question line of a scored round.
type QuestionResult struct {
	Number        int
	Question      string
	Options       []string
	CorrectOption string
	UserGuess     *string
	IsCorrect     bool
}

// RoundResult is a scored round.
type RoundResult struct {
	Username     string
	Category     Category
	Score        int
	TotalCorrect int
	TotalWrong   int
	Total        int
	CompletedAt  time.Time
	Breakdown    []QuestionResult
}
