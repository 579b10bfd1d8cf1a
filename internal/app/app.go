// Package app wires the client together: local store, session, gateway,
// cache, mutation executor and drag controller, in that order.
package app

import (
	"context"
	"io"
	"sync"

	"pocketfolio/internal/cache"
	"pocketfolio/internal/config"
	"pocketfolio/internal/database"
	"pocketfolio/internal/dragdrop"
	"pocketfolio/internal/export"
	"pocketfolio/internal/gateway"
	"pocketfolio/internal/models"
	"pocketfolio/internal/mutation"
	"pocketfolio/internal/notify"
	"pocketfolio/internal/session"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// App is the composition root. Everything below it is constructed once and
// shared; the front end only talks to App.
type App struct {
	log      zerolog.Logger
	local    *database.Store
	Sessions *session.Store
	Gateway  *gateway.Client
	Cache    *cache.Cache
	Executor *mutation.Executor
	Drag     *dragdrop.Controller

	mu          sync.Mutex
	accountsSub *cache.Subscription
}

func New(ctx context.Context, cfg *config.Config, notifier notify.Notifier, haptics dragdrop.Haptics, log zerolog.Logger) (*App, error) {
	local, err := database.Open(cfg.Store)
	if err != nil {
		return nil, errors.Wrap(err, "open local store")
	}

	a := &App{
		log:   log,
		local: local,
	}
	a.Sessions = session.NewStore(local, cfg.Security.EncryptionKey, log)
	a.Gateway = gateway.NewClient(cfg.Gateway, a.Sessions, log)
	a.Cache = cache.New(ctx, log)
	a.Executor = mutation.NewExecutor(a.Gateway, a.Cache, notifier, log)
	a.Drag = dragdrop.NewController(a.Executor, pocketResolver{a}, haptics, log)
	return a, nil
}

// Start restores the persisted session. ErrNoSession means the caller must
// show the entry screen; no account data is fetched in that case.
func (a *App) Start(ctx context.Context) error {
	if err := a.Sessions.Load(); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return err
		}
		return errors.Wrap(err, "restore session")
	}
	return nil
}

// Close releases the local store. Outstanding fetches are abandoned.
func (a *App) Close() error {
	a.mu.Lock()
	if a.accountsSub != nil {
		a.accountsSub.Unsubscribe()
		a.accountsSub = nil
	}
	a.mu.Unlock()
	return a.local.Close()
}

func (a *App) Login(ctx context.Context, email, password string) error {
	sess, err := a.Gateway.Login(ctx, email, password)
	if err != nil {
		return errors.Wrap(err, "login")
	}
	if err := a.Sessions.Set(*sess); err != nil {
		return errors.Wrap(err, "store session")
	}
	return nil
}

func (a *App) Register(ctx context.Context, email, name, password string) error {
	return a.Gateway.Register(ctx, email, name, password)
}

// Logout clears the credential and drops the account subscription so nothing
// refetches with a dead token.
func (a *App) Logout() error {
	a.mu.Lock()
	if a.accountsSub != nil {
		a.accountsSub.Unsubscribe()
		a.accountsSub = nil
	}
	a.mu.Unlock()
	return a.Sessions.Clear()
}

// accountsSubscription lazily opens the shared accounts-list subscription.
func (a *App) accountsSubscription() *cache.Subscription {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.accountsSub == nil {
		a.accountsSub = a.Cache.Subscribe(cache.AccountsKey(), func(ctx context.Context) (any, error) {
			return a.Gateway.ListAccounts(ctx)
		})
	}
	return a.accountsSub
}

// Accounts returns the cached account list, fetching it on first use. A load
// error after a successful earlier fetch returns the stale list alongside the
// error.
func (a *App) Accounts(ctx context.Context) ([]models.Account, error) {
	v, err := a.accountsSubscription().Wait(ctx)
	accounts, _ := v.([]models.Account)
	return accounts, err
}

// SubscribeAccount opens a live subscription to one account's detail view.
// The caller owns the subscription and must Unsubscribe.
func (a *App) SubscribeAccount(id uuid.UUID) *cache.Subscription {
	return a.Cache.Subscribe(cache.AccountKey(id), func(ctx context.Context) (any, error) {
		return a.Gateway.GetAccount(ctx, id)
	})
}

// Account reads one account's detail through a short-lived subscription.
func (a *App) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	sub := a.SubscribeAccount(id)
	defer sub.Unsubscribe()
	v, err := sub.Wait(ctx)
	if err != nil {
		return nil, err
	}
	account, _ := v.(*models.Account)
	return account, nil
}

func (a *App) CreateAccount(ctx context.Context, input models.AccountInput) error {
	return a.Executor.Execute(ctx, mutation.CreateAccount{Input: input})
}

func (a *App) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	return a.Executor.Execute(ctx, mutation.Deposit{AccountID: accountID, Amount: amount})
}

func (a *App) CreatePocket(ctx context.Context, accountID uuid.UUID, name string) error {
	return a.Executor.Execute(ctx, mutation.CreatePocket{AccountID: accountID, Name: name})
}

func (a *App) Withdraw(ctx context.Context, pocketID uuid.UUID, amount decimal.Decimal) error {
	accountID, ok := a.resolvePocket(pocketID)
	if !ok {
		return errors.Wrap(mutation.ErrInvalidRequest, "unknown pocket")
	}
	return a.Executor.Execute(ctx, mutation.Withdraw{PocketID: pocketID, AccountID: accountID, Amount: amount})
}

// Transfer issues a pocket-to-pocket transfer directly, without the drag
// gesture. The drag controller funnels into the same executor.
func (a *App) Transfer(ctx context.Context, fromPocketID, toPocketID uuid.UUID, amount decimal.Decimal) error {
	fromAccount, okFrom := a.resolvePocket(fromPocketID)
	toAccount, okTo := a.resolvePocket(toPocketID)
	if !okFrom || !okTo {
		return errors.Wrap(mutation.ErrInvalidRequest, "unknown pocket")
	}
	return a.Executor.Execute(ctx, mutation.Transfer{
		FromPocketID:  fromPocketID,
		ToPocketID:    toPocketID,
		FromAccountID: fromAccount,
		ToAccountID:   toAccount,
		Amount:        amount,
	})
}

// Export writes the current cached accounts snapshot as an XLSX workbook.
func (a *App) Export(ctx context.Context, w io.Writer) error {
	accounts, err := a.Accounts(ctx)
	if err != nil {
		return errors.Wrap(err, "load accounts")
	}
	return export.WriteXLSX(w, accounts)
}

// resolvePocket locates the owning account in the cached account list. Only
// cached data is consulted; resolution never triggers a fetch of its own.
func (a *App) resolvePocket(pocketID uuid.UUID) (uuid.UUID, bool) {
	a.mu.Lock()
	sub := a.accountsSub
	a.mu.Unlock()
	if sub == nil {
		return uuid.Nil, false
	}

	v, _ := sub.Current()
	accounts, _ := v.([]models.Account)
	for _, account := range accounts {
		if _, ok := account.Pocket(pocketID); ok {
			return account.ID, true
		}
	}
	return uuid.Nil, false
}

// pocketResolver adapts App for the drag controller.
type pocketResolver struct{ app *App }

func (r pocketResolver) AccountOf(pocketID uuid.UUID) (uuid.UUID, bool) {
	return r.app.resolvePocket(pocketID)
}
