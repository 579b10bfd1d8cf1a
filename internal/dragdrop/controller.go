package dragdrop

import (
	"context"
	"sync"
	"time"

	"pocketfolio/internal/mutation"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// State is the controller's position in one drag-to-transfer gesture.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateAwaitingAmount
	StateTransferring
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateDragging:
		return "DRAGGING"
	case StateAwaitingAmount:
		return "AWAITING_AMOUNT"
	case StateTransferring:
		return "TRANSFERRING"
	}
	return "UNKNOWN"
}

var (
	// ErrBusy rejects a gesture while a prior one has not reached a terminal
	// state. Overlapping transfers from the same source are not allowed.
	ErrBusy = errors.New("TRANSFER_IN_PROGRESS")

	// ErrNoPayload rejects events that arrive without a recorded source, the
	// equivalent of a drop with no transfer payload attached.
	ErrNoPayload = errors.New("NO_TRANSFER_PAYLOAD")
)

// Haptics is the tactile cue surface. Implementations must not block.
type Haptics interface {
	Vibrate(d time.Duration)
}

// NopHaptics is used where no tactile surface exists.
type NopHaptics struct{}

func (NopHaptics) Vibrate(time.Duration) {}

// Resolver maps a pocket to its owning account, so a confirmed drop can name
// the cached reads the transfer touches.
type Resolver interface {
	AccountOf(pocketID uuid.UUID) (uuid.UUID, bool)
}

// Executor dispatches the transfer once the amount is confirmed.
// Satisfied by *mutation.Executor.
type Executor interface {
	Execute(ctx context.Context, req mutation.Request) error
}

// Controller is the drag-to-transfer state machine. One gesture at a time:
// a new drag may begin only after the previous one reached IDLE. Highlighting
// is a projection of controller state, never an independent side effect.
type Controller struct {
	mu        sync.Mutex
	state     State
	source    uuid.UUID
	dest      uuid.UUID
	highlight uuid.UUID
	hasLight  bool

	executor Executor
	resolver Resolver
	haptics  Haptics
	log      zerolog.Logger
}

const dragStartCue = 200 * time.Millisecond

func NewController(executor Executor, resolver Resolver, haptics Haptics, log zerolog.Logger) *Controller {
	if haptics == nil {
		haptics = NopHaptics{}
	}
	return &Controller{
		executor: executor,
		resolver: resolver,
		haptics:  haptics,
		log:      log.With().Str("component", "dragdrop").Logger(),
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Highlighted reports which pocket, if any, is the current hover target.
func (c *Controller) Highlighted() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highlight, c.hasLight
}

// DragStart begins a gesture from the given pocket. No network action occurs;
// the source is recorded as the transfer payload and a short tactile cue is
// requested.
func (c *Controller) DragStart(sourcePocket uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return errors.Wrapf(ErrBusy, "state %s", c.state)
	}
	if sourcePocket == uuid.Nil {
		return ErrNoPayload
	}

	c.state = StateDragging
	c.source = sourcePocket
	c.haptics.Vibrate(dragStartCue)
	c.log.Debug().Str("source", sourcePocket.String()).Msg("drag started")
	return nil
}

// DragEnter highlights a candidate drop target. Cosmetic only.
func (c *Controller) DragEnter(target uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateDragging {
		return
	}
	c.highlight = target
	c.hasLight = true
}

// DragLeave removes the highlight from a candidate target.
func (c *Controller) DragLeave(target uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateDragging {
		return
	}
	if c.hasLight && c.highlight == target {
		c.hasLight = false
		c.highlight = uuid.Nil
	}
}

// Drop completes the gesture on a target pocket. Dropping on the source or
// with no payload returns the controller to IDLE with no side effect. A valid
// drop records the destination and hands off to amount entry; nothing reaches
// the network until ConfirmAmount.
func (c *Controller) Drop(target uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateDragging {
		return errors.Wrapf(ErrNoPayload, "state %s", c.state)
	}

	c.hasLight = false
	c.highlight = uuid.Nil

	if target == uuid.Nil || target == c.source {
		c.state = StateIdle
		c.source = uuid.Nil
		return nil
	}

	c.dest = target
	c.state = StateAwaitingAmount
	c.log.Debug().Str("source", c.source.String()).Str("dest", target.String()).Msg("drop accepted, awaiting amount")
	return nil
}

// Cancel abandons the gesture from DRAGGING or AWAITING_AMOUNT. Not valid
// while a transfer is in flight.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle || c.state == StateTransferring {
		return
	}
	c.reset()
}

// ConfirmAmount dispatches the transfer for the pending source/destination
// pair. The controller stays in TRANSFERRING until the mutation resolves, so
// no second gesture can start underneath it, then returns to IDLE either way.
func (c *Controller) ConfirmAmount(ctx context.Context, amount decimal.Decimal) error {
	c.mu.Lock()
	if c.state != StateAwaitingAmount {
		c.mu.Unlock()
		return errors.Wrapf(ErrNoPayload, "state %s", c.state)
	}
	source, dest := c.source, c.dest
	c.state = StateTransferring
	c.mu.Unlock()

	fromAccount, okFrom := c.resolver.AccountOf(source)
	toAccount, okTo := c.resolver.AccountOf(dest)

	var err error
	if !okFrom || !okTo {
		err = errors.Wrap(ErrNoPayload, "unknown pocket")
	} else {
		err = c.executor.Execute(ctx, mutation.Transfer{
			FromPocketID:  source,
			ToPocketID:    dest,
			FromAccountID: fromAccount,
			ToAccountID:   toAccount,
			Amount:        amount,
		})
	}

	c.mu.Lock()
	c.reset()
	c.mu.Unlock()
	return err
}

// reset returns to IDLE. Callers hold c.mu.
func (c *Controller) reset() {
	c.state = StateIdle
	c.source = uuid.Nil
	c.dest = uuid.Nil
	c.highlight = uuid.Nil
	c.hasLight = false
}
