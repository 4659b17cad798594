package gamesession

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/events"
)

// Detailer fetches the authoritative snapshot for one game.
type Detailer interface {
	GetGameDetails(ctx context.Context, gameID uuid.UUID) (*GameDetails, error)
}

// Subscription delivers change notifications for watched games.
type Subscription interface {
	Subscribe(gameID uuid.UUID, handler ChangeHandler) error
	Unsubscribe(gameID uuid.UUID)
}

// RoomWatcher binds one game's subscription feed to its countdown and to a
// presenter callback. Every notification, trusted or not, funnels into the
// same path: fetch the latest snapshot, hand it to the countdown, hand it
// to the presenter. Nothing is patched incrementally.
type RoomWatcher struct {
	gameID    uuid.UUID
	app       Detailer
	sub       Subscription
	countdown *Countdown
	onDetails func(*GameDetails)

	mu     sync.Mutex
	closed bool
}

// CountdownFactory builds the countdown for one watched room. Each room
// gets its own instance; countdown state is never shared across game ids.
type CountdownFactory func(gameID uuid.UUID) *Countdown

// WatchRoom opens the subscription for gameID and performs the initial
// authoritative refresh. onDetails may be nil.
func WatchRoom(ctx context.Context, app Detailer, sub Subscription, newCountdown CountdownFactory, gameID uuid.UUID, onDetails func(*GameDetails)) (*RoomWatcher, error) {
	w := &RoomWatcher{
		gameID:    gameID,
		app:       app,
		sub:       sub,
		countdown: newCountdown(gameID),
		onDetails: onDetails,
	}

	if err := sub.Subscribe(gameID, w.onChange); err != nil {
		return nil, err
	}

	// Authoritative snapshot before trusting any push delivery.
	w.refresh(ctx)
	return w, nil
}

// Close tears the subscription down synchronously and resets the countdown
// so no callback lands in a defunct context.
func (w *RoomWatcher) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.sub.Unsubscribe(w.gameID)
	w.countdown.Reset()
}

// Countdown exposes the room's countdown for display.
func (w *RoomWatcher) Countdown() *Countdown {
	return w.countdown
}

func (w *RoomWatcher) onChange(ev *events.ChangeEvent) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	// Whether this is a real event or a refresh request (nil), the reaction
	// is identical: re-derive everything from the latest snapshot.
	w.refresh(context.Background())
}

func (w *RoomWatcher) refresh(ctx context.Context) {
	details, err := w.app.GetGameDetails(ctx, w.gameID)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			// Retryable; the next notification or reconnect retries it.
			log.Warn().Str("game_id", w.gameID.String()).Msg("snapshot refresh timed out")
			return
		}
		log.Error().Err(err).Str("game_id", w.gameID.String()).Msg("snapshot refresh failed")
		return
	}

	w.countdown.Observe(details)
	if w.onDetails != nil {
		w.onDetails(details)
	}
}
