package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/models"
)

// Well-known boards. Daily boards are keyed by UTC date.
const (
	BoardAllTime     = "alltime"
	dailyBoardPrefix = "daily"
)

// DailyBoard returns the board name for the given day.
func DailyBoard(t time.Time) string {
	return fmt.Sprintf("%s:%s", dailyBoardPrefix, t.UTC().Format("2006-01-02"))
}

// ScoreStore defines what the app layer needs from the durable repository.
type ScoreStore interface {
	AddScore(ctx context.Context, board string, userID uuid.UUID, delta int64) (int64, error)
	TopEntries(ctx context.Context, board string, limit int) ([]models.LeaderboardEntry, error)
	AllScores(ctx context.Context, board string) ([]ScoredMember, error)
	DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// App handles leaderboard business logic. Postgres holds the truth, Redis
// serves ranked reads and is rebuilt from Postgres whenever a board's ZSET
// is missing.
type App struct {
	store ScoreStore
	cache Cache
}

// NewApp creates a new leaderboard App.
func NewApp(store ScoreStore, cache Cache) *App {
	return &App{store: store, cache: cache}
}

// SubmitScore adds delta to the user's score on the board. The durable row
// commits first; the cache update is best-effort since the ZSET can always
// be rebuilt.
func (a *App) SubmitScore(ctx context.Context, board string, userID uuid.UUID, delta int64) (int64, error) {
	if delta <= 0 {
		return 0, fmt.Errorf("score delta must be positive, got %d", delta)
	}

	total, err := a.store.AddScore(ctx, board, userID, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to submit score: %w", err)
	}

	if err := a.cache.SetScore(ctx, board, userID, total); err != nil {
		log.Warn().Err(err).
			Str("board", board).
			Str("user_id", userID.String()).
			Msg("leaderboard cache update failed, will rebuild on next read")
		if dropErr := a.cache.Drop(ctx, board); dropErr != nil {
			log.Warn().Err(dropErr).Str("board", board).Msg("failed to drop stale board cache")
		}
	}

	return total, nil
}

// GetTop returns the highest-ranked entries of a board.
func (a *App) GetTop(ctx context.Context, board string, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	if err := a.ensureBoard(ctx, board); err != nil {
		// Cache unavailable, answer from Postgres directly.
		log.Warn().Err(err).Str("board", board).Msg("falling back to durable leaderboard reads")
		return a.store.TopEntries(ctx, board, limit)
	}

	members, err := a.cache.GetTop(ctx, board, limit)
	if err != nil {
		return a.store.TopEntries(ctx, board, limit)
	}

	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	names, err := a.store.DisplayNames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve display names: %w", err)
	}

	entries := make([]models.LeaderboardEntry, len(members))
	for i, m := range members {
		entries[i] = models.LeaderboardEntry{
			UserID:      m.UserID,
			DisplayName: names[m.UserID],
			Score:       m.Score,
			Rank:        int64(i + 1),
		}
	}
	return entries, nil
}

// GetRank returns the user's 1-indexed rank on a board, or -1 if unranked.
func (a *App) GetRank(ctx context.Context, board string, userID uuid.UUID) (int64, error) {
	if err := a.ensureBoard(ctx, board); err != nil {
		return 0, fmt.Errorf("failed to load board: %w", err)
	}
	rank, err := a.cache.GetRank(ctx, board, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get rank: %w", err)
	}
	return rank, nil
}

// ensureBoard rebuilds the board's ZSET from Postgres if it is missing.
func (a *App) ensureBoard(ctx context.Context, board string) error {
	exists, err := a.cache.Exists(ctx, board)
	if err != nil {
		return fmt.Errorf("failed to check board cache: %w", err)
	}
	if exists {
		return nil
	}

	members, err := a.store.AllScores(ctx, board)
	if err != nil {
		return fmt.Errorf("failed to load scores for rebuild: %w", err)
	}
	for _, m := range members {
		if err := a.cache.SetScore(ctx, board, m.UserID, m.Score); err != nil {
			return fmt.Errorf("failed to rebuild board cache: %w", err)
		}
	}

	log.Info().Str("board", board).Int("members", len(members)).Msg("rebuilt leaderboard cache")
	return nil
}
