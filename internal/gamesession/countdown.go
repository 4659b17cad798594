package gamesession

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/identity"
	"github.com/finquest/finquest/internal/models"
)

// CountdownSeconds is where every countdown episode starts.
const CountdownSeconds = 5

// Starter issues the authoritative start command once a countdown runs out.
type Starter interface {
	StartGame(ctx context.Context, id identity.Identity, gameID uuid.UUID) (bool, error)
}

// Countdown is the client-local countdown state machine for one game. It is
// driven exclusively by snapshots handed to Observe: arming, ticking and
// resetting are all re-derived from the latest {status, members} view, so
// duplicated, reordered or missed notifications cannot make it drift.
//
// Every client may run one for display, but only the creator's instance
// fires the start command.
type Countdown struct {
	clock   clockwork.Clock
	starter Starter
	id      identity.Identity
	gameID  uuid.UUID
	onTick  func(remaining int)

	mu        sync.Mutex
	remaining int  // 0 while idle
	creator   bool // derived from the latest snapshot
	epoch     uint64
}

// NewCountdown creates an idle countdown for one game. onTick may be nil;
// when set it is invoked with the remaining seconds after every transition
// (0 means the countdown reset or finished).
func NewCountdown(clock clockwork.Clock, starter Starter, id identity.Identity, gameID uuid.UUID, onTick func(remaining int)) *Countdown {
	return &Countdown{
		clock:   clock,
		starter: starter,
		id:      id,
		gameID:  gameID,
		onTick:  onTick,
	}
}

// Observe feeds the latest snapshot into the state machine. It arms an idle
// countdown when the start precondition holds and fully resets an armed one
// the moment it does not. Observing an unchanged precondition while armed is
// a no-op, so duplicate notifications cost nothing.
func (c *Countdown) Observe(details *GameDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pre := details != nil &&
		details.Session != nil &&
		details.Session.Status == models.GameStatusWaiting &&
		details.AllReady()

	if details != nil && details.Session != nil {
		c.creator = details.Session.CreatedBy == c.id.UserID
	}

	if !pre {
		c.resetLocked()
		return
	}

	if c.remaining > 0 {
		// Already armed; the precondition merely re-confirmed itself.
		return
	}

	c.remaining = CountdownSeconds
	c.epoch++
	log.Debug().
		Str("game_id", c.gameID.String()).
		Int("seconds", c.remaining).
		Msg("countdown armed")
	c.notifyLocked()
	c.scheduleTickLocked()
}

// Remaining returns the seconds left, 0 when idle.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Reset forces the countdown back to idle, e.g. on teardown.
func (c *Countdown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Countdown) resetLocked() {
	if c.remaining == 0 {
		return
	}
	c.remaining = 0
	c.epoch++ // invalidates any pending tick
	log.Debug().Str("game_id", c.gameID.String()).Msg("countdown reset")
	c.notifyLocked()
}

func (c *Countdown) scheduleTickLocked() {
	epoch := c.epoch
	timer := c.clock.NewTimer(time.Second)
	go func() {
		<-timer.Chan()
		c.tick(epoch)
	}()
}

func (c *Countdown) tick(epoch uint64) {
	c.mu.Lock()

	if epoch != c.epoch || c.remaining == 0 {
		// A reset or re-arm happened after this tick was scheduled.
		c.mu.Unlock()
		return
	}

	c.remaining--
	if c.remaining > 0 {
		c.notifyLocked()
		c.scheduleTickLocked()
		c.mu.Unlock()
		return
	}

	// Fired: exactly one start command per episode, then back to idle.
	// Re-arming requires a fresh Observe with the precondition holding.
	fire := c.creator
	c.epoch++
	c.notifyLocked()
	c.mu.Unlock()

	if !fire {
		return
	}

	started, err := c.starter.StartGame(context.Background(), c.id, c.gameID)
	if err != nil {
		log.Error().Err(err).Str("game_id", c.gameID.String()).Msg("countdown start command failed")
		return
	}
	if !started {
		// Expected when a player un-readied or left in the same instant;
		// the next snapshot re-derives whatever state is current.
		log.Info().Str("game_id", c.gameID.String()).Msg("countdown fired but start guard refused")
		return
	}
	log.Info().Str("game_id", c.gameID.String()).Msg("countdown fired, game starting")
}

func (c *Countdown) notifyLocked() {
	if c.onTick != nil {
		c.onTick(c.remaining)
	}
}
