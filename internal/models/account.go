package models

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidAccountType = errors.New("INVALID_ACCOUNT_TYPE")

type AccountType string

const (
	AccountTypeSaving       AccountType = "SAVING"
	AccountTypeFixedDeposit AccountType = "FIXED_DEPOSIT"
	AccountTypeFCD          AccountType = "FCD"
	AccountTypeMutualFund   AccountType = "MUTUAL_FUND"
	AccountTypeStock        AccountType = "STOCK"
)

func (at AccountType) String() string {
	return string(at)
}

func (at AccountType) Valid() bool {
	switch at {
	case AccountTypeSaving, AccountTypeFixedDeposit, AccountTypeFCD, AccountTypeMutualFund, AccountTypeStock:
		return true
	}
	return false
}

func ParseAccountType(s string) (AccountType, error) {
	at := AccountType(s)
	if !at.Valid() {
		return "", errors.Wrapf(ErrInvalidAccountType, "%q", s)
	}
	return at, nil
}

func (at *AccountType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "decode account type")
	}
	parsed, err := ParseAccountType(s)
	if err != nil {
		return err
	}
	*at = parsed
	return nil
}

// Account is an immutable snapshot of a money container as returned by the
// gateway. The balance is a decimal carried verbatim from the server; the
// client never computes balances itself.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Type      AccountType     `json:"type"`
	Name      string          `json:"name"`
	Bank      string          `json:"bank"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt int64           `json:"createdAt"`
	UpdatedAt int64           `json:"updatedAt"`
	Pockets   []Pocket        `json:"pockets,omitempty"`
}

func (a Account) String() string {
	return a.Name
}

// Pocket returns the owned pocket with the given id, if present.
func (a Account) Pocket(id uuid.UUID) (Pocket, bool) {
	for _, p := range a.Pockets {
		if p.ID == id {
			return p, true
		}
	}
	return Pocket{}, false
}

// AccountInput is the create-account payload.
type AccountInput struct {
	Type AccountType `json:"type"`
	Name string      `json:"name"`
	Bank string      `json:"bank"`
}
