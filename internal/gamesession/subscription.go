package gamesession

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/events"
)

// ChangeHandler receives live updates for one subscribed game. A nil event
// means the feed cannot vouch for continuity (reconnect, malformed payload)
// and the handler must do one authoritative GetGameDetails refresh instead
// of trusting anything it remembers.
type ChangeHandler func(ev *events.ChangeEvent)

// Subscriber manages at most one live push channel per game id, fed by the
// change events published to NATS. Re-subscribing to the same id tears down
// the prior channel first so no handler sees duplicate delivery.
type Subscriber struct {
	nc *nats.Conn

	mu   sync.Mutex
	subs map[uuid.UUID]*gameSubscription
}

type gameSubscription struct {
	sub     *nats.Subscription
	handler ChangeHandler
}

// NewSubscriber connects to NATS with aggressive reconnect settings. On
// every reconnect each active handler is told to refresh, since delivery is
// at-least-once only while the connection is up.
func NewSubscriber(url string) (*Subscriber, error) {
	s := &Subscriber{subs: make(map[uuid.UUID]*gameSubscription)}

	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
			s.requestRefreshAll()
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	s.nc = nc
	return s, nil
}

// Subscribe opens the push channel for one game. Any prior channel for the
// same id is torn down first.
func (s *Subscriber) Subscribe(gameID uuid.UUID, handler ChangeHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.subs[gameID]; ok {
		if err := prior.sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("game_id", gameID.String()).Msg("failed to tear down prior subscription")
		}
		delete(s.subs, gameID)
	}

	subject := fmt.Sprintf("game.events.%s", gameID)
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		s.dispatch(gameID, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	s.subs[gameID] = &gameSubscription{sub: sub, handler: handler}
	log.Debug().Str("game_id", gameID.String()).Msg("game subscription opened")
	return nil
}

// Unsubscribe releases the channel for one game. Safe to call when no
// subscription exists.
func (s *Subscriber) Unsubscribe(gameID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gs, ok := s.subs[gameID]
	if !ok {
		return
	}
	if err := gs.sub.Unsubscribe(); err != nil {
		log.Warn().Err(err).Str("game_id", gameID.String()).Msg("failed to unsubscribe")
	}
	delete(s.subs, gameID)
	log.Debug().Str("game_id", gameID.String()).Msg("game subscription released")
}

// Close tears down every subscription and the underlying connection.
func (s *Subscriber) Close() {
	s.mu.Lock()
	for gameID, gs := range s.subs {
		_ = gs.sub.Unsubscribe()
		delete(s.subs, gameID)
	}
	s.mu.Unlock()

	if s.nc != nil {
		s.nc.Close()
	}
}

// dispatch decodes and delivers one raw payload for a subscribed game.
// Malformed payloads and cross-game leakage degrade to a refresh request
// rather than an error: the handler re-derives state from the snapshot.
func (s *Subscriber) dispatch(gameID uuid.UUID, data []byte) {
	s.mu.Lock()
	gs, ok := s.subs[gameID]
	s.mu.Unlock()
	if !ok {
		// Subscription was torn down between delivery and dispatch.
		return
	}

	ev, err := events.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("game_id", gameID.String()).Msg("malformed change event, requesting refresh")
		gs.handler(nil)
		return
	}
	if ev.GameID != gameID {
		log.Warn().
			Str("expected", gameID.String()).
			Str("got", ev.GameID.String()).
			Msg("change event for wrong game, requesting refresh")
		gs.handler(nil)
		return
	}

	gs.handler(ev)
}

// requestRefreshAll tells every active handler to re-fetch its snapshot.
func (s *Subscriber) requestRefreshAll() {
	s.mu.Lock()
	handlers := make([]ChangeHandler, 0, len(s.subs))
	for _, gs := range s.subs {
		handlers = append(handlers, gs.handler)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(nil)
	}
}
