package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/gamesession"
	"github.com/finquest/finquest/internal/gateway"
	"github.com/finquest/finquest/internal/identity"
	"github.com/finquest/finquest/internal/invites"
	"github.com/finquest/finquest/internal/leaderboard"
	"github.com/finquest/finquest/internal/outbox"
	"github.com/finquest/finquest/internal/quiz"
	"github.com/finquest/finquest/internal/scenarios"
	"github.com/finquest/finquest/internal/users"
)

type Services struct {
	Users       *users.Service
	Games       *gamesession.Service
	Quiz        *quiz.Service
	Leaderboard *leaderboard.Service
	Scenarios   *scenarios.Service
	Invites     invites.Admin

	Gateway  *gateway.Service
	Outbox   *outbox.Listener
	Resolver identity.Resolver
}

func setupServices(database *sql.DB, dsn string, nc *nats.Conn, redisClient *redis.Client, cfg *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer

	// Invites gate signup
	inviteRepo := invites.NewRepository(database)
	inviteApp := invites.NewApp(inviteRepo)

	// Users and identity
	userRepo := users.NewRepository(database)
	userApp := users.NewApp(userRepo, inviteApp)
	userService := users.NewService(userApp)
	resolver := users.NewTokenResolver(userRepo)

	// Leaderboard
	lbRepo := leaderboard.NewRepository(database)
	lbCache := leaderboard.NewCache(redisClient)
	lbApp := leaderboard.NewApp(lbRepo, lbCache)
	lbService := leaderboard.NewService(lbApp)

	// Quiz
	quizRepo := quiz.NewRepository(database)
	quizApp := quiz.NewApp(quizRepo, lbApp)
	quizService := quiz.NewService(quizApp)

	// Scenarios
	scenarioRepo := scenarios.NewRepository(database)
	scenarioService := scenarios.NewService(scenarioRepo)

	// Game sessions
	gameRepo := gamesession.NewRepository(database)
	gameApp := gamesession.NewApp(gameRepo)
	gameApp.OnCompleted(func(ctx context.Context, details *gamesession.GameDetails) {
		// Final scores feed the all-time board.
		for _, m := range details.Members {
			if m.Score <= 0 {
				continue
			}
			if _, err := lbApp.SubmitScore(ctx, leaderboard.BoardAllTime, m.UserID, int64(m.Score)); err != nil {
				log.Error().Err(err).
					Str("game_id", details.Session.ID.String()).
					Str("user_id", m.UserID.String()).
					Msg("failed to credit game score")
			}
		}
	})
	gameService := gamesession.NewService(gameApp)

	// Outbox relay: Postgres NOTIFY → NATS
	listenerCfg := outbox.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dsn
	publisher := outbox.NewNATSPublisher(nc)
	listener, err := outbox.NewListener(database, publisher, listenerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox listener: %w", err)
	}

	// Gateway: NATS → WebSocket fanout
	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.ConsumerConfig.URL = cfg.natsURL()
	gatewaySvc, err := gateway.NewService(gatewayCfg, gateway.NewAppStateProvider(gameApp), resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	return &Services{
		Users:       userService,
		Games:       gameService,
		Quiz:        quizService,
		Leaderboard: lbService,
		Scenarios:   scenarioService,
		Invites:     inviteApp,
		Gateway:     gatewaySvc,
		Outbox:      listener,
		Resolver:    resolver,
	}, nil
}
