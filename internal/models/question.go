package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionCategory groups practice problems by topic.
type QuestionCategory string

const (
	QuestionCategoryAccounting QuestionCategory = "accounting"
	QuestionCategoryValuation  QuestionCategory = "valuation"
	QuestionCategoryLBO        QuestionCategory = "lbo"
	QuestionCategoryMarkets    QuestionCategory = "markets"
)

// Question represents one quiz or practice problem.
type Question struct {
	ID        uuid.UUID        `json:"id"`
	Category  QuestionCategory `json:"category"`
	Prompt    string           `json:"prompt"`
	Answer    string           `json:"answer"`
	Points    int              `json:"points"`
	CreatedAt time.Time        `json:"created_at"`
}

// QuizSubmission records one answer a user handed in for a question.
type QuizSubmission struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	QuestionID  uuid.UUID `json:"question_id"`
	Answer      string    `json:"answer"`
	Correct     bool      `json:"correct"`
	SubmittedAt time.Time `json:"submitted_at"`
}
