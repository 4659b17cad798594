package gamesession

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/finquest/finquest/internal/identity"
	"github.com/finquest/finquest/internal/models"
)

type fakeStarter struct {
	calls   atomic.Int64
	started bool
	fired   chan struct{}
}

func (f *fakeStarter) StartGame(ctx context.Context, id identity.Identity, gameID uuid.UUID) (bool, error) {
	f.calls.Add(1)
	select {
	case f.fired <- struct{}{}:
	default:
	}
	return f.started, nil
}

// countdownHarness drives one countdown with a fake clock and records every
// onTick value in order.
type countdownHarness struct {
	clock     *clockwork.FakeClock
	countdown *Countdown
	starter   *fakeStarter
	ticks     chan int
	creator   identity.Identity
	gameID    uuid.UUID
}

func newCountdownHarness(t *testing.T) *countdownHarness {
	t.Helper()
	h := &countdownHarness{
		clock:   clockwork.NewFakeClock(),
		starter: &fakeStarter{started: true, fired: make(chan struct{}, 1)},
		ticks:   make(chan int, 32),
		creator: testIdentity(),
		gameID:  uuid.New(),
	}
	h.countdown = NewCountdown(h.clock, h.starter, h.creator, h.gameID, func(remaining int) {
		h.ticks <- remaining
	})
	return h
}

func (h *countdownHarness) details(ready ...bool) *GameDetails {
	members := make([]models.PlayerMembership, len(ready))
	for i, r := range ready {
		members[i] = models.PlayerMembership{GameID: h.gameID, UserID: uuid.New(), IsReady: r}
	}
	if len(members) > 0 {
		members[0].UserID = h.creator.UserID
	}
	return &GameDetails{
		Session: &models.GameSession{
			ID:        h.gameID,
			Status:    models.GameStatusWaiting,
			CreatedBy: h.creator.UserID,
		},
		Members: members,
	}
}

func (h *countdownHarness) expectTick(t *testing.T, want int) {
	t.Helper()
	select {
	case got := <-h.ticks:
		if got != want {
			t.Fatalf("expected tick %d, got %d", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for tick %d", want)
	}
}

// advance waits for the pending tick timer, then moves the fake clock one
// second forward.
func (h *countdownHarness) advance(t *testing.T) {
	t.Helper()
	h.clock.BlockUntil(1)
	h.clock.Advance(time.Second)
}

func TestCountdownArmsWhenAllReady(t *testing.T) {
	h := newCountdownHarness(t)

	h.countdown.Observe(h.details(true, true))
	h.expectTick(t, 5)

	if got := h.countdown.Remaining(); got != 5 {
		t.Fatalf("expected remaining 5, got %d", got)
	}
}

func TestCountdownDoesNotArmBelowTwoPlayers(t *testing.T) {
	h := newCountdownHarness(t)

	h.countdown.Observe(h.details(true))
	if got := h.countdown.Remaining(); got != 0 {
		t.Fatalf("expected idle countdown, got remaining %d", got)
	}
}

func TestCountdownRunsDownAndFiresOnce(t *testing.T) {
	h := newCountdownHarness(t)

	h.countdown.Observe(h.details(true, true))
	h.expectTick(t, 5)

	for _, want := range []int{4, 3, 2, 1, 0} {
		h.advance(t)
		h.expectTick(t, want)
	}

	select {
	case <-h.starter.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for start command")
	}

	// One start command for the whole episode, no further ticks pending.
	if got := h.starter.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 start call, got %d", got)
	}
	if got := h.countdown.Remaining(); got != 0 {
		t.Fatalf("expected countdown back to idle, got %d", got)
	}
}

func TestCountdownDuplicateObserveIsNoOp(t *testing.T) {
	h := newCountdownHarness(t)

	h.countdown.Observe(h.details(true, true))
	h.expectTick(t, 5)

	h.advance(t)
	h.expectTick(t, 4)

	// Re-observing the same precondition must not restart the episode.
	h.countdown.Observe(h.details(true, true))
	if got := h.countdown.Remaining(); got != 4 {
		t.Fatalf("expected remaining to stay 4, got %d", got)
	}
}

func TestCountdownResetsWhenPlayerUnreadies(t *testing.T) {
	h := newCountdownHarness(t)

	h.countdown.Observe(h.details(true, true))
	h.expectTick(t, 5)
	h.advance(t)
	h.expectTick(t, 4)

	// An unready joiner breaks the precondition: full reset, not a pause.
	h.countdown.Observe(h.details(true, true, false))
	h.expectTick(t, 0)

	// The stale pending tick must not resurrect the countdown.
	h.clock.Advance(time.Second)
	if got := h.countdown.Remaining(); got != 0 {
		t.Fatalf("expected countdown to stay idle after reset, got %d", got)
	}
	if got := h.starter.calls.Load(); got != 0 {
		t.Fatalf("expected no start call after reset, got %d", got)
	}

	// Re-arming starts a fresh episode from the top.
	h.countdown.Observe(h.details(true, true, true))
	h.expectTick(t, 5)
}

func TestCountdownNonCreatorNeverFires(t *testing.T) {
	h := newCountdownHarness(t)

	// The snapshot names someone else as creator.
	details := h.details(true, true)
	details.Session.CreatedBy = uuid.New()
	details.Members[0].UserID = details.Session.CreatedBy

	h.countdown.Observe(details)
	h.expectTick(t, 5)

	for _, want := range []int{4, 3, 2, 1, 0} {
		h.advance(t)
		h.expectTick(t, want)
	}

	if got := h.starter.calls.Load(); got != 0 {
		t.Fatalf("expected non-creator to never issue start, got %d calls", got)
	}
}

func TestCountdownIgnoresNonWaitingSnapshots(t *testing.T) {
	h := newCountdownHarness(t)

	details := h.details(true, true)
	details.Session.Status = models.GameStatusInProgress
	h.countdown.Observe(details)

	if got := h.countdown.Remaining(); got != 0 {
		t.Fatalf("expected no countdown for in-progress game, got %d", got)
	}
}
