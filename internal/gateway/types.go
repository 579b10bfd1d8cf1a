package gateway

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// httpResponse is the gateway's uniform envelope: exactly one of result or
// error is set.
type httpResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type createAccountRequest struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Bank string `json:"bank"`
}

type createPocketRequest struct {
	AccountID uuid.UUID `json:"accountId"`
	Name      string    `json:"name"`
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	ToPocketID uuid.UUID       `json:"toPocketId"`
	Amount     decimal.Decimal `json:"amount"`
}

type withdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
