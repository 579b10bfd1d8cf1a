package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PocketType string

const (
	PocketTypeCashbox PocketType = "CASHBOX"
	PocketTypeTrash   PocketType = "TRASH"
	PocketTypeCustom  PocketType = "CUSTOM"
)

func (pt PocketType) String() string {
	return string(pt)
}

// Reserved pseudo-pocket identifiers. They live outside the normal pocket set
// and resolve to fixed display names instead of a lookup.
const (
	PseudoPocketCashbox = "cashbox"
	PseudoPocketTrash   = "trash"
)

// Pocket is a named sub-balance within an account.
type Pocket struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"accountId"`
	Name      string          `json:"name"`
	Type      PocketType      `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt int64           `json:"createdAt"`
	UpdatedAt int64           `json:"updatedAt"`
}

func (p Pocket) String() string {
	return p.Name + " " + p.Balance.String()
}

// PocketDisplayName resolves a pocket identifier to its display name.
// The cashbox and trash pseudo-pockets have fixed names; everything else is
// looked up in the given pocket set.
func PocketDisplayName(id string, pockets []Pocket) string {
	switch id {
	case "":
		return ""
	case PseudoPocketCashbox:
		return "Cashbox"
	case PseudoPocketTrash:
		return "ใช้จ่าย"
	}

	for _, p := range pockets {
		if p.ID.String() == id {
			return p.Name
		}
	}
	return ""
}
