package session

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wricardo/emoji-maze-quest/game/engine"
	"github.com/wricardo/emoji-maze-quest/game/persistence"
	"github.com/wricardo/emoji-maze-quest/identity"
	"github.com/wricardo/emoji-maze-quest/telemetry"
)

var tracer = telemetry.Tracer("session")

// Syncer uploads adventure progress to the identity service
type Syncer interface {
	SyncProgress(ctx context.Context, code []string, progress identity.Progress) (*identity.SyncResult, error)
}

// Options configures a controller. Zero values select the defaults.
type Options struct {
	Clock    Clock
	Timings  Timings
	Syncer   Syncer
	Seed     func() int64
	OnChange func(View)
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	if o.Timings == (Timings{}) {
		o.Timings = DefaultTimings()
	}
	if o.Timings.SyncTimeout <= 0 {
		o.Timings.SyncTimeout = DefaultTimings().SyncTimeout
	}
	if o.Seed == nil {
		o.Seed = randomSeed
	}
	return o
}

// Controller drives one adventure of one profile in one theme. Every event
// runs under a single mutex; an event that returns an error leaves the
// controller exactly as it was.
type Controller struct {
	mu sync.Mutex

	id      string
	theme   *engine.Theme
	records *persistence.Manager
	opts    Options

	state   State
	launch  engine.LaunchConfig
	gs      *engine.GameState
	pending *engine.GameState
	stats   *engine.LifetimeStats

	outcome Outcome
	message string

	lastMove        time.Time
	lockUntil       time.Time
	autoCloseAt     time.Time
	activeChallenge int
	activeFriendly  int
	attempts        int

	syncCtx    context.Context
	syncCancel context.CancelFunc
	syncWG     sync.WaitGroup

	createdAt  time.Time
	lastAccess time.Time
}

// NewController creates an idle controller for theme backed by records
func NewController(id string, theme *engine.Theme, records *persistence.Manager, opts Options) *Controller {
	opts = opts.withDefaults()
	now := opts.Clock.Now()
	c := &Controller{
		id:              id,
		theme:           theme,
		records:         records,
		opts:            opts,
		state:           Idle,
		activeChallenge: -1,
		activeFriendly:  -1,
		createdAt:       now,
		lastAccess:      now,
	}
	c.syncCtx, c.syncCancel = context.WithCancel(context.Background())
	return c
}

func (c *Controller) ID() string { return c.id }

func (c *Controller) Profile() string { return c.records.Profile() }

func (c *Controller) ThemeID() string { return c.theme.ID }

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns a snapshot of the session
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) CreatedAt() time.Time { return c.createdAt }

// LastAccess is the time of the last accepted event
func (c *Controller) LastAccess() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAccess
}

// apply runs one event under the lock and notifies the observer on success
func (c *Controller) apply(event string, fn func(now time.Time) error) (View, error) {
	c.mu.Lock()
	now := c.opts.Clock.Now()
	from := c.state
	err := fn(now)
	var v View
	if err == nil {
		c.lastAccess = now
		v = c.viewLocked()
	}
	c.mu.Unlock()

	if err != nil {
		log.Debug().Str("session", c.id).Str("event", event).Str("state", string(from)).Err(err).Msg("event rejected")
		return View{}, err
	}
	if from != v.State {
		log.Debug().Str("session", c.id).Str("event", event).Str("from", string(from)).Str("to", string(v.State)).Msg("transition")
	}
	if c.opts.OnChange != nil {
		c.opts.OnChange(v)
	}
	return v, nil
}

// Start begins an adventure. A valid saved adventure for the theme is offered
// for resumption; anything else starts a fresh maze.
func (c *Controller) Start(ctx context.Context, launch engine.LaunchConfig) (View, error) {
	return c.apply("start", func(now time.Time) error {
		if c.state != Idle {
			return invalidTransition("start", c.state)
		}
		if launch.ThemeID == "" {
			launch.ThemeID = c.theme.ID
		}
		if launch.ThemeID != c.theme.ID {
			return fmt.Errorf("launch theme %q does not match session theme %q", launch.ThemeID, c.theme.ID)
		}
		if launch.AdventureLength != "" && !launch.AdventureLength.Valid() {
			return fmt.Errorf("unknown adventure length %q", launch.AdventureLength)
		}

		durable, err := c.records.LoadSession(ctx, c.theme.ID)
		switch {
		case err == nil:
			c.launch = launch
			c.stats = nil
			c.pending = persistence.Reconcile(durable, launch, now)
			c.state = PendingResume
			c.setOutcome(OutcomeResumePrompt, "Welcome back! Continue your adventure or start a new maze?")
			return nil
		case errors.Is(err, persistence.ErrNotFound):
		default:
			log.Warn().Err(err).Str("profile", c.records.Profile()).Str("theme", c.theme.ID).Msg("saved adventure unusable, starting fresh")
		}

		gs, err := c.generate(ctx, launch, now)
		if err != nil {
			return err
		}
		c.launch = launch
		c.stats = nil
		c.begin(ctx, gs)
		c.setOutcome(OutcomeStarted, c.theme.Messages.Welcome)
		return nil
	})
}

// Continue resumes the saved adventure offered by Start
func (c *Controller) Continue(ctx context.Context) (View, error) {
	return c.apply("continue", func(now time.Time) error {
		if c.state != PendingResume {
			return invalidTransition("continue", c.state)
		}
		gs := c.pending
		c.pending = nil
		c.begin(ctx, gs)
		c.setOutcome(OutcomeResumed, "Welcome back!")
		return nil
	})
}

// Restart discards the saved adventure and generates a new one with the same
// launch configuration
func (c *Controller) Restart(ctx context.Context) (View, error) {
	return c.apply("restart", func(now time.Time) error {
		if c.state != PendingResume {
			return invalidTransition("restart", c.state)
		}
		gs, err := c.generate(ctx, c.launch, now)
		if err != nil {
			return err
		}
		c.resetSyncs()
		if err := c.records.ClearSession(ctx, c.theme.ID); err != nil {
			log.Warn().Err(err).Str("session", c.id).Msg("failed to clear saved adventure")
		}
		c.pending = nil
		c.begin(ctx, gs)
		c.setOutcome(OutcomeRestarted, c.theme.Messages.Welcome)
		return nil
	})
}

// Move walks the player one cell in dir
func (c *Controller) Move(ctx context.Context, dir engine.Direction) (View, error) {
	return c.apply("move", func(now time.Time) error {
		if c.state != Exploring {
			return invalidTransition("move", c.state)
		}
		dir, err := engine.ParseDirection(string(dir))
		if err != nil {
			return err
		}
		if !c.lastMove.IsZero() && now.Sub(c.lastMove) < c.opts.Timings.MoveInterval {
			return ErrMoveTooSoon
		}
		c.lastMove = now

		gs := c.gs
		target := dir.Step(gs.PlayerPos)
		if !gs.Maze.IsPath(target) {
			c.setOutcome(OutcomeBlocked, "")
			return nil
		}

		if gs.IsExit(target) {
			if remaining := gs.RemainingChallenges(); remaining > 0 {
				c.openModal(ExitWarningChallenges, now)
				c.setOutcome(OutcomeExitLocked, formatCount(c.theme.Messages.ExitLocked, remaining))
				return nil
			}
			if missing := gs.MissingFriends(); missing > 0 {
				c.openModal(ExitWarningFriends, now)
				c.setOutcome(OutcomeFriendsMissing, formatCount(c.theme.Messages.FriendsMissing, missing))
				return nil
			}
			gs.Visit(target)
			c.openModal(WonComplete, now)
			c.setOutcome(OutcomeWon, c.theme.Messages.VictoryComplete)
			c.persist(ctx, now)
			c.syncProgress()
			return nil
		}

		gs.Visit(target)
		if i := gs.ChallengeAt(target); i >= 0 && !gs.Challenges[i].Completed {
			c.activeChallenge = i
			c.attempts = 0
			c.autoCloseAt = time.Time{}
			c.openModal(ChallengeActive, now)
			c.setOutcome(OutcomeChallenge, "")
		} else if i := gs.FriendlyAt(target); i >= 0 && !gs.Friendlies[i].Collected {
			c.activeFriendly = i
			c.openModal(FriendlyDialog, now)
			c.setOutcome(OutcomeFriendly, gs.Friendlies[i].Message)
		} else {
			c.setOutcome(OutcomeMoved, "")
		}
		c.persist(ctx, now)
		return nil
	})
}

// Answer reports the result of the active challenge
func (c *Controller) Answer(ctx context.Context, correct bool) (View, error) {
	return c.apply("answer", func(now time.Time) error {
		if err := c.modalInput("answer", now, ChallengeActive); err != nil {
			return err
		}
		if !c.autoCloseAt.IsZero() {
			return invalidTransition("answer", c.state)
		}
		if !correct {
			c.attempts++
			c.setOutcome(OutcomeIncorrect, "Not quite, try again!")
			return nil
		}
		if err := c.gs.CompleteChallenge(c.gs.Challenges[c.activeChallenge].ID); err != nil {
			return err
		}
		c.autoCloseAt = now.Add(c.opts.Timings.AutoCloseDelay)
		c.setOutcome(OutcomeCorrect, "Correct!")
		c.persist(ctx, now)
		c.syncProgress()
		return nil
	})
}

// Close dismisses the challenge modal, solved or not
func (c *Controller) Close(ctx context.Context) (View, error) {
	return c.apply("close", func(now time.Time) error {
		if err := c.modalInput("close", now, ChallengeActive); err != nil {
			return err
		}
		c.closeChallenge()
		c.setOutcome(OutcomeClosed, "")
		return nil
	})
}

// Tick closes a solved challenge once its auto-close deadline has passed.
// It is a no-op in every other situation.
func (c *Controller) Tick() (View, error) {
	c.mu.Lock()
	if c.state != ChallengeActive || c.autoCloseAt.IsZero() || c.opts.Clock.Now().Before(c.autoCloseAt) {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	return c.apply("tick", func(now time.Time) error {
		if c.state == ChallengeActive && !c.autoCloseAt.IsZero() && !now.Before(c.autoCloseAt) {
			c.closeChallenge()
			c.setOutcome(OutcomeClosed, "")
		}
		return nil
	})
}

// TakeFriend rescues the friendly in the open dialog
func (c *Controller) TakeFriend(ctx context.Context) (View, error) {
	return c.apply("take", func(now time.Time) error {
		if err := c.modalInput("take", now, FriendlyDialog); err != nil {
			return err
		}
		f := c.gs.Friendlies[c.activeFriendly]
		if err := c.gs.CollectFriendly(f.ID); err != nil {
			return err
		}
		c.activeFriendly = -1
		c.state = Exploring
		c.setOutcome(OutcomeFriendTaken, fmt.Sprintf("%s joined you!", f.Emoji))
		c.persist(ctx, now)
		c.syncProgress()
		return nil
	})
}

// Decline leaves the friendly where it is
func (c *Controller) Decline(ctx context.Context) (View, error) {
	return c.apply("decline", func(now time.Time) error {
		if err := c.modalInput("decline", now, FriendlyDialog); err != nil {
			return err
		}
		if err := c.gs.MarkSpoken(c.gs.Friendlies[c.activeFriendly].ID); err != nil {
			return err
		}
		c.activeFriendly = -1
		c.state = Exploring
		c.setOutcome(OutcomeFriendDeclined, "")
		c.persist(ctx, now)
		c.syncProgress()
		return nil
	})
}

// Dismiss closes the exit warning about unsolved challenges
func (c *Controller) Dismiss(ctx context.Context) (View, error) {
	return c.apply("dismiss", func(now time.Time) error {
		if err := c.modalInput("dismiss", now, ExitWarningChallenges); err != nil {
			return err
		}
		c.state = Exploring
		c.setOutcome(OutcomeDismissed, "")
		return nil
	})
}

// KeepSearching closes the exit warning about missing friends
func (c *Controller) KeepSearching(ctx context.Context) (View, error) {
	return c.apply("keep_searching", func(now time.Time) error {
		if err := c.modalInput("keep_searching", now, ExitWarningFriends); err != nil {
			return err
		}
		c.state = Exploring
		c.setOutcome(OutcomeDismissed, "")
		return nil
	})
}

// LeaveAnyway finishes the adventure without every friend
func (c *Controller) LeaveAnyway(ctx context.Context) (View, error) {
	return c.apply("leave_anyway", func(now time.Time) error {
		if err := c.modalInput("leave_anyway", now, ExitWarningFriends); err != nil {
			return err
		}
		c.gs.Visit(c.gs.Exit)
		c.openModal(WonIncomplete, now)
		c.setOutcome(OutcomeWon, c.theme.Messages.VictoryIncomplete)
		c.persist(ctx, now)
		c.syncProgress()
		return nil
	})
}

// Acknowledge closes the victory screen, records the win and clears the saved
// adventure
func (c *Controller) Acknowledge(ctx context.Context) (View, error) {
	return c.apply("acknowledge", func(now time.Time) error {
		if err := c.modalInput("acknowledge", now, WonComplete, WonIncomplete); err != nil {
			return err
		}
		if err := c.finish(ctx); err != nil {
			return err
		}
		c.setOutcome(OutcomeAcknowledged, "")
		return nil
	})
}

// finish records the win, clears the saved adventure and returns to idle
func (c *Controller) finish(ctx context.Context) error {
	stats, err := c.records.RecordWin(ctx, len(c.gs.CollectedFriends))
	if err != nil {
		return fmt.Errorf("record win: %w", err)
	}
	if err := c.records.ClearSession(ctx, c.theme.ID); err != nil {
		log.Warn().Err(err).Str("session", c.id).Msg("failed to clear finished adventure")
	}
	c.resetSyncs()
	c.sendProgress(json.RawMessage("null"))

	c.stats = &stats
	c.gs = nil
	c.state = Idle
	return nil
}

// Leave saves the adventure and returns to idle. Leaving a won adventure
// finishes it like Acknowledge.
func (c *Controller) Leave(ctx context.Context) (View, error) {
	return c.apply("leave", func(now time.Time) error {
		if c.state == Idle {
			return invalidTransition("leave", c.state)
		}
		if c.state.Won() {
			if err := c.finish(ctx); err != nil {
				return err
			}
			c.setOutcome(OutcomeLeft, "")
			return nil
		}
		if c.gs != nil {
			c.persist(ctx, now)
		}
		c.resetSyncs()
		c.gs = nil
		c.pending = nil
		c.activeChallenge, c.activeFriendly = -1, -1
		c.autoCloseAt = time.Time{}
		c.state = Idle
		c.setOutcome(OutcomeLeft, "")
		return nil
	})
}

// Shutdown cancels in-flight syncs and waits for them to return
func (c *Controller) Shutdown() {
	c.mu.Lock()
	c.syncCancel()
	c.mu.Unlock()
	c.syncWG.Wait()
}

// WaitForSyncs blocks until every progress upload started so far returns
func (c *Controller) WaitForSyncs() {
	c.syncWG.Wait()
}

func (c *Controller) generate(ctx context.Context, launch engine.LaunchConfig, now time.Time) (*engine.GameState, error) {
	seed := c.opts.Seed()
	if launch.Seed != nil {
		seed = *launch.Seed
	}
	_, span := tracer.Start(ctx, "session.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("theme", c.theme.ID),
		attribute.String("adventure_length", string(launch.AdventureLength)),
		attribute.Int64("seed", seed),
	)

	gs, err := engine.NewGameState(c.theme, launch, seed, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("generate adventure: %w", err)
	}
	span.SetAttributes(attribute.Int("maze_size", gs.Maze.Size))
	return gs, nil
}

// begin installs gs as the live adventure and saves it
func (c *Controller) begin(ctx context.Context, gs *engine.GameState) {
	c.gs = gs
	c.state = Exploring
	c.lastMove = time.Time{}
	c.lockUntil = time.Time{}
	c.activeChallenge, c.activeFriendly = -1, -1
	c.autoCloseAt = time.Time{}
	c.persist(ctx, gs.UpdatedAt)
}

func (c *Controller) openModal(s State, now time.Time) {
	c.state = s
	c.lockUntil = now.Add(c.opts.Timings.ModalLockout)
}

func (c *Controller) modalInput(event string, now time.Time, allowed ...State) error {
	ok := false
	for _, s := range allowed {
		if c.state == s {
			ok = true
			break
		}
	}
	if !ok {
		return invalidTransition(event, c.state)
	}
	if now.Before(c.lockUntil) {
		return ErrInputLocked
	}
	return nil
}

func (c *Controller) closeChallenge() {
	c.activeChallenge = -1
	c.attempts = 0
	c.autoCloseAt = time.Time{}
	c.state = Exploring
}

func (c *Controller) setOutcome(o Outcome, msg string) {
	c.outcome = o
	c.message = msg
}

// persist saves the live adventure. Failures are logged and the in-memory
// state stays authoritative.
func (c *Controller) persist(ctx context.Context, now time.Time) {
	c.gs.UpdatedAt = now
	if err := c.records.SaveSession(ctx, c.gs); err != nil {
		log.Warn().Err(err).Str("session", c.id).Str("theme", c.theme.ID).Msg("failed to save adventure")
	}
}

func (c *Controller) syncProgress() {
	if c.opts.Syncer == nil {
		return
	}
	data, err := c.gs.Marshal()
	if err != nil {
		log.Warn().Err(err).Str("session", c.id).Msg("failed to encode progress")
		return
	}
	c.sendProgress(data)
}

// sendProgress uploads payload for the theme in the background. The result
// is only logged.
func (c *Controller) sendProgress(payload json.RawMessage) {
	if c.opts.Syncer == nil {
		return
	}
	ctx := c.syncCtx
	syncer := c.opts.Syncer
	timeout := c.opts.Timings.SyncTimeout
	progress := identity.Progress{c.theme.ID: payload}

	c.syncWG.Add(1)
	go func() {
		defer c.syncWG.Done()
		rec, err := c.records.LoadIdentity(ctx)
		if err != nil {
			if !errors.Is(err, persistence.ErrNotFound) {
				log.Debug().Err(err).Str("session", c.id).Msg("no usable identity for sync")
			}
			return
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if _, err := syncer.SyncProgress(ctx, rec.Code, progress); err != nil {
			log.Debug().Err(err).Str("session", c.id).Str("kind", string(identity.KindOf(err))).Msg("progress sync failed")
		}
	}()
}

// resetSyncs cancels in-flight uploads and starts a fresh sync context
func (c *Controller) resetSyncs() {
	c.syncCancel()
	c.syncCtx, c.syncCancel = context.WithCancel(context.Background())
}

func formatCount(format string, n int) string {
	if format == "" {
		return fmt.Sprint(n)
	}
	return fmt.Sprintf(format, n)
}

func randomSeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]) &^ (1 << 63))
}
