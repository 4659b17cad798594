package quiz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/leaderboard"
	"github.com/finquest/finquest/internal/models"
)

// QuizRepository defines what the app layer needs from the repository
type QuizRepository interface {
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	CountQuestions(ctx context.Context) (int64, error)
	QuestionAtOffset(ctx context.Context, offset int64) (*models.Question, error)
	ListQuestionsByCategory(ctx context.Context, category models.QuestionCategory, limit int) ([]models.Question, error)
	CreateSubmission(ctx context.Context, sub models.QuizSubmission) (*models.QuizSubmission, error)
	HasSubmission(ctx context.Context, userID, questionID uuid.UUID) (bool, error)
	ListSubmissions(ctx context.Context, userID uuid.UUID, limit int) ([]models.QuizSubmission, error)
}

// ScoreSubmitter feeds correct answers into the leaderboard.
type ScoreSubmitter interface {
	SubmitScore(ctx context.Context, board string, userID uuid.UUID, delta int64) (int64, error)
}

// App handles quiz business logic
type App struct {
	repo   QuizRepository
	scores ScoreSubmitter
	now    func() time.Time
}

// NewApp creates a new quiz App
func NewApp(repo QuizRepository, scores ScoreSubmitter) *App {
	return &App{
		repo:   repo,
		scores: scores,
		now:    time.Now,
	}
}

// DailyQuestion returns today's question. Selection is deterministic: the
// day number indexes into the id-ordered question pool, so every caller
// sees the same question until the next UTC midnight.
func (a *App) DailyQuestion(ctx context.Context) (*models.Question, error) {
	count, err := a.repo.CountQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pick daily question: %w", err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	day := a.now().UTC().Unix() / (24 * 60 * 60)
	question, err := a.repo.QuestionAtOffset(ctx, day%count)
	if err != nil {
		return nil, fmt.Errorf("failed to pick daily question: %w", err)
	}
	return question, nil
}

// PracticeProblems lists problems for a category.
func (a *App) PracticeProblems(ctx context.Context, category models.QuestionCategory, limit int) ([]models.Question, error) {
	switch category {
	case models.QuestionCategoryAccounting,
		models.QuestionCategoryValuation,
		models.QuestionCategoryLBO,
		models.QuestionCategoryMarkets:
	default:
		return nil, fmt.Errorf("unknown category %q", category)
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	questions, err := a.repo.ListQuestionsByCategory(ctx, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list practice problems: %w", err)
	}
	return questions, nil
}

// SubmitAnswer records the user's answer, grades it against the stored
// answer, and feeds correct first attempts into the daily leaderboard.
func (a *App) SubmitAnswer(ctx context.Context, userID, questionID uuid.UUID, answer string) (*models.QuizSubmission, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("answer cannot be empty")
	}

	question, err := a.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question: %w", err)
	}

	answered, err := a.repo.HasSubmission(ctx, userID, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check prior submissions: %w", err)
	}

	correct := strings.EqualFold(answer, strings.TrimSpace(question.Answer))
	sub, err := a.repo.CreateSubmission(ctx, models.QuizSubmission{
		UserID:     userID,
		QuestionID: questionID,
		Answer:     answer,
		Correct:    correct,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}

	// Only the first correct attempt scores, retries do not stack points.
	if correct && !answered {
		board := leaderboard.DailyBoard(a.now())
		if _, err := a.scores.SubmitScore(ctx, board, userID, int64(question.Points)); err != nil {
			log.Error().Err(err).
				Str("user_id", userID.String()).
				Str("question_id", questionID.String()).
				Msg("failed to credit quiz points")
		}
		if _, err := a.scores.SubmitScore(ctx, leaderboard.BoardAllTime, userID, int64(question.Points)); err != nil {
			log.Error().Err(err).
				Str("user_id", userID.String()).
				Msg("failed to credit all-time points")
		}
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("question_id", questionID.String()).
		Bool("correct", correct).
		Msg("quiz answer submitted")
	return sub, nil
}

// SubmissionHistory returns the user's recent submissions.
func (a *App) SubmissionHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.QuizSubmission, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	subs, err := a.repo.ListSubmissions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}
