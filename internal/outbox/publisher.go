package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/events"
)

// Publisher is the downstream an outbox event is relayed to.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NATSPublisher relays change events onto per-game NATS subjects
// (game.events.<game_id>), where the gateway's consumer picks them up.
type NATSPublisher struct {
	nc *nats.Conn
}

func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	ev := events.ChangeEvent{
		ID:        event.ID,
		GameID:    event.GameID,
		Table:     event.Table,
		Operation: events.Operation(event.Operation),
		RowBefore: event.RowBefore,
		RowAfter:  event.RowAfter,
		CreatedAt: event.CreatedAt,
	}

	data, err := json.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := p.nc.Publish(ev.Subject(), data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", ev.Subject(), err)
	}

	log.Debug().
		Str("event_id", event.ID.String()).
		Str("game_id", event.GameID.String()).
		Str("operation", event.Operation).
		Msg("change event published")
	return nil
}
