package mutation

import (
	"context"

	"pocketfolio/internal/cache"
	"pocketfolio/internal/models"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/moonrhythm/validator"
	"github.com/shopspring/decimal"
)

// ErrInvalidRequest marks validation failures. These never reach the gateway
// and produce no notification; callers surface them inline.
var ErrInvalidRequest = errors.New("POCKETFOLIO_INVALID_REQUEST")

// Request is one server-changing action: it validates itself, names the cached
// reads its success makes stale, and carries the fixed notification texts.
type Request interface {
	Validate() error
	Invalidates() []cache.Key
	SuccessMessage() string
	FailureMessage() string
	do(ctx context.Context, gw Gateway) error
}

type CreateAccount struct {
	Input models.AccountInput
}

func (r CreateAccount) Validate() error {
	v := validator.New()
	v.Must(r.Input.Type.Valid(), "type is invalid")
	v.Must(r.Input.Name != "", "name is required")
	v.Must(r.Input.Bank != "", "bank is required")
	return markInvalid(v.Error())
}

func (r CreateAccount) Invalidates() []cache.Key {
	return []cache.Key{cache.AccountsKey()}
}

func (r CreateAccount) SuccessMessage() string { return "Account created" }
func (r CreateAccount) FailureMessage() string { return "Create account failed" }

func (r CreateAccount) do(ctx context.Context, gw Gateway) error {
	_, err := gw.CreateAccount(ctx, r.Input)
	return err
}

type Deposit struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
}

func (r Deposit) Validate() error {
	v := validator.New()
	v.Must(r.AccountID != uuid.Nil, "accountId is required")
	v.Must(r.Amount.IsPositive(), "amount must be positive")
	return markInvalid(v.Error())
}

// A deposit lands in the account's cashbox, so both the account detail and the
// balance shown on the accounts list go stale.
func (r Deposit) Invalidates() []cache.Key {
	return []cache.Key{cache.AccountKey(r.AccountID), cache.AccountsKey()}
}

func (r Deposit) SuccessMessage() string { return "Deposit success" }
func (r Deposit) FailureMessage() string { return "Deposit failed" }

func (r Deposit) do(ctx context.Context, gw Gateway) error {
	_, err := gw.Deposit(ctx, r.AccountID, r.Amount)
	return err
}

type CreatePocket struct {
	AccountID uuid.UUID
	Name      string
}

func (r CreatePocket) Validate() error {
	v := validator.New()
	v.Must(r.AccountID != uuid.Nil, "accountId is required")
	v.Must(r.Name != "", "name is required")
	return markInvalid(v.Error())
}

func (r CreatePocket) Invalidates() []cache.Key {
	return []cache.Key{cache.AccountKey(r.AccountID)}
}

func (r CreatePocket) SuccessMessage() string { return "Pocket created" }
func (r CreatePocket) FailureMessage() string { return "Create pocket failed" }

func (r CreatePocket) do(ctx context.Context, gw Gateway) error {
	_, err := gw.CreatePocket(ctx, r.AccountID, r.Name)
	return err
}

// Transfer moves money between two pockets. The account IDs locate the cached
// reads to invalidate; cross-account transfers touch two of them.
type Transfer struct {
	FromPocketID  uuid.UUID
	ToPocketID    uuid.UUID
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        decimal.Decimal
}

func (r Transfer) Validate() error {
	v := validator.New()
	v.Must(r.FromPocketID != uuid.Nil, "source pocket is required")
	v.Must(r.ToPocketID != uuid.Nil, "destination pocket is required")
	v.Must(r.FromPocketID != r.ToPocketID, "source and destination must differ")
	v.Must(r.Amount.IsPositive(), "amount must be positive")
	return markInvalid(v.Error())
}

func (r Transfer) Invalidates() []cache.Key {
	keys := []cache.Key{cache.AccountKey(r.FromAccountID)}
	if r.ToAccountID != r.FromAccountID && r.ToAccountID != uuid.Nil {
		keys = append(keys, cache.AccountKey(r.ToAccountID))
	}
	return keys
}

func (r Transfer) SuccessMessage() string { return "Transfer success" }
func (r Transfer) FailureMessage() string { return "Transfer failed" }

func (r Transfer) do(ctx context.Context, gw Gateway) error {
	return gw.Transfer(ctx, r.FromPocketID, r.ToPocketID, r.Amount)
}

type Withdraw struct {
	PocketID  uuid.UUID
	AccountID uuid.UUID
	Amount    decimal.Decimal
}

func (r Withdraw) Validate() error {
	v := validator.New()
	v.Must(r.PocketID != uuid.Nil, "pocketId is required")
	v.Must(r.Amount.IsPositive(), "amount must be positive")
	return markInvalid(v.Error())
}

func (r Withdraw) Invalidates() []cache.Key {
	return []cache.Key{cache.AccountKey(r.AccountID)}
}

func (r Withdraw) SuccessMessage() string { return "Withdraw success" }
func (r Withdraw) FailureMessage() string { return "Withdraw failed" }

func (r Withdraw) do(ctx context.Context, gw Gateway) error {
	return gw.Withdraw(ctx, r.PocketID, r.Amount)
}

func markInvalid(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.WithStack(err), ErrInvalidRequest)
}
