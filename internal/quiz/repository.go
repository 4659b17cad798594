package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/finquest/finquest/internal/models"
)

// ErrNotFound indicates the requested question does not exist.
var ErrNotFound = errors.New("question not found")

// Repository implements quiz data access operations over Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new quiz repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetQuestion retrieves a question by ID.
func (r *Repository) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	const q = `
		SELECT id, category, prompt, answer, points, created_at
		FROM questions
		WHERE id = $1`

	question, err := scanQuestion(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

// CountQuestions returns the number of questions in the pool.
func (r *Repository) CountQuestions(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return n, nil
}

// QuestionAtOffset returns the question at a stable position in the pool.
// Ordering by id keeps the position deterministic across queries.
func (r *Repository) QuestionAtOffset(ctx context.Context, offset int64) (*models.Question, error) {
	const q = `
		SELECT id, category, prompt, answer, points, created_at
		FROM questions
		ORDER BY id
		OFFSET $1
		LIMIT 1`

	question, err := scanQuestion(r.db.QueryRowContext(ctx, q, offset))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get question at offset: %w", err)
	}
	return question, nil
}

// ListQuestionsByCategory returns practice problems for a category.
func (r *Repository) ListQuestionsByCategory(ctx context.Context, category models.QuestionCategory, limit int) ([]models.Question, error) {
	const q = `
		SELECT id, category, prompt, answer, points, created_at
		FROM questions
		WHERE category = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var question models.Question
		if err := rows.Scan(
			&question.ID,
			&question.Category,
			&question.Prompt,
			&question.Answer,
			&question.Points,
			&question.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

// CreateSubmission records an answer a user handed in.
func (r *Repository) CreateSubmission(ctx context.Context, sub models.QuizSubmission) (*models.QuizSubmission, error) {
	const q = `
		INSERT INTO quiz_submissions (id, user_id, question_id, answer, correct, submitted_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING submitted_at`

	sub.ID = uuid.New()
	if err := r.db.QueryRowContext(ctx, q,
		sub.ID, sub.UserID, sub.QuestionID, sub.Answer, sub.Correct,
	).Scan(&sub.SubmittedAt); err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	return &sub, nil
}

// HasSubmission reports whether the user already answered the question.
func (r *Repository) HasSubmission(ctx context.Context, userID, questionID uuid.UUID) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM quiz_submissions
			WHERE user_id = $1 AND question_id = $2
		)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, q, userID, questionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check submission: %w", err)
	}
	return exists, nil
}

// ListSubmissions returns the user's submission history, newest first.
func (r *Repository) ListSubmissions(ctx context.Context, userID uuid.UUID, limit int) ([]models.QuizSubmission, error) {
	const q = `
		SELECT id, user_id, question_id, answer, correct, submitted_at
		FROM quiz_submissions
		WHERE user_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []models.QuizSubmission
	for rows.Next() {
		var sub models.QuizSubmission
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.QuestionID, &sub.Answer, &sub.Correct, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanQuestion(row *sql.Row) (*models.Question, error) {
	var q models.Question
	if err := row.Scan(&q.ID, &q.Category, &q.Prompt, &q.Answer, &q.Points, &q.CreatedAt); err != nil {
		return nil, err
	}
	return &q, nil
}
