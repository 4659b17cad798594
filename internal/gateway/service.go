package gateway

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/identity"
)

// Service is the game gateway: it owns the WebSocket pools and the NATS
// consumer feeding them.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
}

// Config holds configuration for the gateway service.
type Config struct {
	ConnectionConfig ConnectionConfig
	ConsumerConfig   ConsumerConfig
}

// DefaultConfig returns default configuration for the gateway.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		ConsumerConfig:   DefaultConsumerConfig(),
	}
}

// NewService creates a new gateway service.
func NewService(config Config, stateProvider StateProvider, resolver identity.Resolver) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	wsHandler := NewWebSocketHandler(connectionManager, stateProvider, resolver)

	// A client that suspects it missed updates asks for a re-sync; the
	// answer is always the full snapshot.
	connectionManager.OnRefresh(func(conn *Connection) {
		wsHandler.sendSnapshot(context.Background(), conn)
	})

	eventConsumer, err := NewEventConsumer(connectionManager, config.ConsumerConfig)
	if err != nil {
		return nil, err
	}

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         wsHandler,
		eventConsumer:     eventConsumer,
	}, nil
}

// Handler exposes the WebSocket HTTP handler for route registration.
func (s *Service) Handler() *WebSocketHandler {
	return s.wsHandler
}

// Start begins the gateway service and blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting game gateway service")

	go s.connectionManager.Start(ctx)

	go func() {
		if err := s.eventConsumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("game gateway service shutting down")
	return nil
}
