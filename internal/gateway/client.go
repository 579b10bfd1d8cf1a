package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pocketfolio/internal/models"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// TokenSource supplies the bearer token for authenticated calls. The token is
// read once per request, at dispatch time.
type TokenSource interface {
	Token() (string, error)
}

// Client is the stateless REST boundary to the remote account service. It does
// no caching and holds no request state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        zerolog.Logger
}

func NewClient(cfg Config, tokens TokenSource, log zerolog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		log:        log.With().Str("component", "gateway").Logger(),
	}
}

func (c *Client) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := c.do(ctx, http.MethodGet, "/account", nil, &accounts, true); err != nil {
		return nil, errors.Wrap(err, "list accounts")
	}
	return accounts, nil
}

func (c *Client) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := c.do(ctx, http.MethodGet, "/account/"+id.String(), nil, &account, true); err != nil {
		return nil, errors.Wrap(err, "get account")
	}
	return &account, nil
}

func (c *Client) CreateAccount(ctx context.Context, input models.AccountInput) (*models.Account, error) {
	body := createAccountRequest{Type: input.Type.String(), Name: input.Name, Bank: input.Bank}
	var account models.Account
	if err := c.do(ctx, http.MethodPost, "/account", body, &account, true); err != nil {
		return nil, errors.Wrap(err, "create account")
	}
	return &account, nil
}

func (c *Client) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*models.Account, error) {
	path := fmt.Sprintf("/account/%s/deposit", accountID)
	var account models.Account
	if err := c.do(ctx, http.MethodPost, path, depositRequest{Amount: amount}, &account, true); err != nil {
		return nil, errors.Wrap(err, "deposit")
	}
	return &account, nil
}

func (c *Client) CreatePocket(ctx context.Context, accountID uuid.UUID, name string) (*models.Pocket, error) {
	body := createPocketRequest{AccountID: accountID, Name: name}
	var pocket models.Pocket
	if err := c.do(ctx, http.MethodPost, "/pocket", body, &pocket, true); err != nil {
		return nil, errors.Wrap(err, "create pocket")
	}
	return &pocket, nil
}

func (c *Client) Transfer(ctx context.Context, fromPocketID, toPocketID uuid.UUID, amount decimal.Decimal) error {
	path := fmt.Sprintf("/pocket/%s/transfer", fromPocketID)
	body := transferRequest{ToPocketID: toPocketID, Amount: amount}
	if err := c.do(ctx, http.MethodPost, path, body, nil, true); err != nil {
		return errors.Wrap(err, "transfer")
	}
	return nil
}

func (c *Client) Withdraw(ctx context.Context, pocketID uuid.UUID, amount decimal.Decimal) error {
	path := fmt.Sprintf("/pocket/%s/withdraw", pocketID)
	if err := c.do(ctx, http.MethodPost, path, withdrawRequest{Amount: amount}, nil, true); err != nil {
		return errors.Wrap(err, "withdraw")
	}
	return nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.Session, error) {
	var sess models.Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &sess, false); err != nil {
		return nil, errors.Wrap(err, "login")
	}
	return &sess, nil
}

func (c *Client) Register(ctx context.Context, email, name, password string) error {
	body := registerRequest{Email: email, Name: name, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, nil, false); err != nil {
		return errors.Wrap(err, "register")
	}
	return nil
}

// do sends one request and decodes the result envelope into out (which may be
// nil when the caller only cares about success). Non-2xx is a hard failure.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		token, err := c.tokens.Token()
		if err != nil {
			return errors.Wrap(err, "resolve token")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return errors.Mark(errors.Wrap(err, "send request"), ErrTransport)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "read response"), ErrTransport)
	}

	var envelope httpResponse
	if len(raw) > 0 {
		// an undecodable body on an error status still carries the status
		_ = json.Unmarshal(raw, &envelope)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := envelope.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Str("error", msg).Msg("request rejected")
		return errors.Mark(errors.Newf("%s (status %d)", msg, resp.StatusCode), ErrRejected)
	}

	if out == nil {
		return nil
	}
	if len(envelope.Result) == 0 {
		return errors.New("empty result")
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return errors.Wrap(err, "decode result")
	}
	return nil
}
