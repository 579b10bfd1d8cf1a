package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountType(t *testing.T) {
	at, err := ParseAccountType("SAVING")
	require.NoError(t, err)
	assert.Equal(t, AccountTypeSaving, at)

	_, err = ParseAccountType("CHECKING")
	assert.ErrorIs(t, err, ErrInvalidAccountType)
}

func TestAccountDecodeRejectsBadType(t *testing.T) {
	var a Account
	err := json.Unmarshal([]byte(`{"id":"`+uuid.NewString()+`","type":"GOLD"}`), &a)
	assert.ErrorIs(t, err, ErrInvalidAccountType)
}

func TestAccountDecodeKeepsBalanceExact(t *testing.T) {
	raw := `{"id":"` + uuid.NewString() + `","type":"SAVING","name":"Salary","bank":"kbank","balance":"1234.56"}`

	var a Account
	require.NoError(t, json.Unmarshal([]byte(raw), &a))
	assert.Equal(t, "1234.56", a.Balance.StringFixed(2))
}

func TestPocketDisplayName(t *testing.T) {
	p := Pocket{ID: uuid.New(), Name: "Groceries", Balance: decimal.New(100, 0)}
	pockets := []Pocket{p}

	assert.Equal(t, "Cashbox", PocketDisplayName(PseudoPocketCashbox, pockets))
	assert.Equal(t, "ใช้จ่าย", PocketDisplayName(PseudoPocketTrash, pockets))
	assert.Equal(t, "Groceries", PocketDisplayName(p.ID.String(), pockets))
	assert.Equal(t, "", PocketDisplayName(uuid.NewString(), pockets))
	assert.Equal(t, "", PocketDisplayName("", pockets))
}

func TestSessionExpiry(t *testing.T) {
	now := time.Now()

	live := Session{AccessToken: "tok", Exp: now.Add(time.Hour).Unix()}
	assert.True(t, live.Valid(now))

	dead := Session{AccessToken: "tok", Exp: now.Add(-time.Hour).Unix()}
	assert.False(t, dead.Valid(now))
	assert.True(t, dead.Expired(now))

	empty := Session{}
	assert.False(t, empty.Valid(now))
}

func TestBankLabel(t *testing.T) {
	assert.Equal(t, "ธนาคารกสิกรไทย", BankLabel("kbank"))
	assert.Equal(t, "unknown-bank", BankLabel("unknown-bank"))
}
