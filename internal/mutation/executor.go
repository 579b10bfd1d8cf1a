package mutation

import (
	"context"

	"pocketfolio/internal/cache"
	"pocketfolio/internal/models"
	"pocketfolio/internal/notify"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Gateway is the slice of the REST client the executor dispatches to.
type Gateway interface {
	CreateAccount(ctx context.Context, input models.AccountInput) (*models.Account, error)
	Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*models.Account, error)
	CreatePocket(ctx context.Context, accountID uuid.UUID, name string) (*models.Pocket, error)
	Transfer(ctx context.Context, fromPocketID, toPocketID uuid.UUID, amount decimal.Decimal) error
	Withdraw(ctx context.Context, pocketID uuid.UUID, amount decimal.Decimal) error
}

// Invalidator marks cached reads stale. Satisfied by *cache.Cache.
type Invalidator interface {
	Invalidate(key cache.Key)
}

// Executor runs mutations: validate, dispatch once, and only after a confirmed
// success invalidate the affected reads and announce the outcome. There is no
// retry and no optimistic cache write.
type Executor struct {
	gateway  Gateway
	cache    Invalidator
	notifier notify.Notifier
	log      zerolog.Logger
}

func NewExecutor(gw Gateway, c Invalidator, n notify.Notifier, log zerolog.Logger) *Executor {
	return &Executor{
		gateway:  gw,
		cache:    c,
		notifier: n,
		log:      log.With().Str("component", "mutation").Logger(),
	}
}

// Execute runs one request to completion. Validation failures return before
// anything reaches the network and raise no notification. A rejected or
// unreachable dispatch notifies the failure and leaves every cached read
// untouched.
func (e *Executor) Execute(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		e.log.Debug().Err(err).Msg("request rejected by validation")
		return err
	}

	if err := req.do(ctx, e.gateway); err != nil {
		e.log.Warn().Err(err).Msg("mutation failed")
		e.notifier.Error(req.FailureMessage())
		return errors.Wrap(err, "execute mutation")
	}

	for _, key := range dedupe(req.Invalidates()) {
		e.cache.Invalidate(key)
	}
	e.notifier.Success(req.SuccessMessage())
	return nil
}

func dedupe(keys []cache.Key) []cache.Key {
	seen := make(map[cache.Key]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
