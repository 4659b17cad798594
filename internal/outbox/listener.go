package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel name to LISTEN on
	FallbackInterval time.Duration // How often to poll for missed events
	PingInterval     time.Duration
	BatchSize        int32 // Max events to fetch per batch
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		DatabaseURL:      "",
		NotifyChannel:    "game_outbox_events",
		FallbackInterval: 30 * time.Second,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// Listener relays outbox rows to the publisher. The happy path is a NOTIFY
// per row; the fallback poll sweeps anything a dropped connection missed,
// so delivery is at-least-once.
type Listener struct {
	repo      *Repository
	listener  *pq.Listener
	publisher Publisher
	cfg       ListenerConfig
}

func NewListener(db *sql.DB, publisher Publisher, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for notifications")

	return &Listener{
		repo:      NewRepository(db),
		listener:  l,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("outbox listener started")

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	// Sweep whatever accumulated before we were up.
	if err := l.publishUnsent(ctx); err != nil {
		log.Error().Err(err).Msg("initial outbox sweep failed")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox listener shutting down")
			return l.Stop()

		case note := <-l.listener.Notify:
			if note == nil {
				// nil notification means the connection was lost and
				// re-established; sweep for anything missed meanwhile.
				if err := l.publishUnsent(ctx); err != nil {
					log.Error().Err(err).Msg("post-reconnect sweep failed")
				}
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Str("payload", note.Extra).Msg("failed to handle notification")
			}

		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("listener ping failed")
			}

		case <-fallbackTicker.C:
			if err := l.publishUnsent(ctx); err != nil {
				log.Error().Err(err).Msg("fallback sweep failed")
			}
		}
	}
}

func (l *Listener) Stop() error {
	return l.listener.Close()
}

// handleNotification publishes the single row named by the NOTIFY payload.
// An unparsable payload degrades to a full sweep rather than being dropped.
func (l *Listener) handleNotification(ctx context.Context, payload string) error {
	id, err := uuid.Parse(payload)
	if err != nil {
		log.Warn().Str("payload", payload).Msg("notification payload is not an event id, sweeping instead")
		return l.publishUnsent(ctx)
	}

	ev, err := l.repo.FetchByID(ctx, id)
	if err != nil {
		return err
	}
	if ev.SentAt != nil {
		return nil
	}

	if err := l.publisher.Publish(ctx, *ev); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", ev.ID, err)
	}
	return l.repo.MarkSent(ctx, []uuid.UUID{ev.ID})
}

// publishUnsent relays every unsettled row in write order.
func (l *Listener) publishUnsent(ctx context.Context) error {
	for {
		batch, err := l.repo.FetchUnsent(ctx, l.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		sent := make([]uuid.UUID, 0, len(batch))
		for _, ev := range batch {
			if err := l.publisher.Publish(ctx, ev); err != nil {
				// Settle what did go out, retry the rest next sweep.
				if markErr := l.repo.MarkSent(ctx, sent); markErr != nil {
					log.Error().Err(markErr).Msg("failed to mark partial batch sent")
				}
				return fmt.Errorf("failed to publish event %s: %w", ev.ID, err)
			}
			sent = append(sent, ev.ID)
		}
		if err := l.repo.MarkSent(ctx, sent); err != nil {
			return err
		}
		if int32(len(batch)) < l.cfg.BatchSize {
			return nil
		}
	}
}
