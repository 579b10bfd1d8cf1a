// Package gatewaytest runs an in-process double of the remote account service
// for tests: same envelope, same routes, same bearer auth, real balances.
package gatewaytest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"pocketfolio/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Op names one gateway operation, for hooks and injected failures.
type Op string

const (
	OpLogin         Op = "login"
	OpRegister      Op = "register"
	OpListAccounts  Op = "listAccounts"
	OpGetAccount    Op = "getAccount"
	OpCreateAccount Op = "createAccount"
	OpDeposit       Op = "deposit"
	OpCreatePocket  Op = "createPocket"
	OpTransfer      Op = "transfer"
	OpWithdraw      Op = "withdraw"
)

type user struct {
	id       uuid.UUID
	email    string
	name     string
	password string
}

// Server is the fake gateway. All state lives behind one mutex; handlers are
// plain gin handlers over it.
type Server struct {
	mu        sync.Mutex
	secret    []byte
	users     map[string]*user
	accounts  map[uuid.UUID]*models.Account
	hook      func(op Op)
	failNext  map[Op]int
	callCount map[Op]int

	srv *httptest.Server
}

func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		secret:    []byte("gatewaytest-secret"),
		users:     make(map[string]*user),
		accounts:  make(map[uuid.UUID]*models.Account),
		failNext:  make(map[Op]int),
		callCount: make(map[Op]int),
	}

	r := gin.New()
	r.POST("/auth/login", s.handleLogin)
	r.POST("/auth/register", s.handleRegister)

	authed := r.Group("/", s.authMiddleware())
	authed.GET("/account", s.handleListAccounts)
	authed.GET("/account/:id", s.handleGetAccount)
	authed.POST("/account", s.handleCreateAccount)
	authed.POST("/account/:id/deposit", s.handleDeposit)
	authed.POST("/pocket", s.handleCreatePocket)
	authed.POST("/pocket/:id/transfer", s.handleTransfer)
	authed.POST("/pocket/:id/withdraw", s.handleWithdraw)

	s.srv = httptest.NewServer(r)
	return s
}

func (s *Server) URL() string { return s.srv.URL }

func (s *Server) Close() { s.srv.Close() }

// SetHook installs a function called at the start of every operation, before
// the server's own state is touched. Used to gate or observe requests.
func (s *Server) SetHook(hook func(op Op)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// FailNext makes the next n requests for op fail with status 500.
func (s *Server) FailNext(op Op, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[op] = n
}

// Calls reports how many requests for op reached the server.
func (s *Server) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount[op]
}

// SeedUser registers a user directly and returns its ID.
func (s *Server) SeedUser(email, password, name string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{id: uuid.New(), email: email, name: name, password: password}
	s.users[email] = u
	return u.id
}

// SeedAccount inserts an account with a cashbox pocket holding the opening
// balance, plus any extra pockets given. Pocket balances are added to the
// account total.
func (s *Server) SeedAccount(userID uuid.UUID, name, bank string, opening decimal.Decimal, pockets ...models.Pocket) *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	a := &models.Account{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      models.AccountTypeSaving,
		Name:      name,
		Bank:      bank,
		Balance:   opening,
		CreatedAt: now,
		UpdatedAt: now,
		Pockets: []models.Pocket{{
			ID:        uuid.New(),
			Name:      "Cashbox",
			Type:      models.PocketTypeCashbox,
			Balance:   opening,
			CreatedAt: now,
			UpdatedAt: now,
		}},
	}
	a.Pockets[0].AccountID = a.ID
	for _, p := range pockets {
		p.ID = uuid.New()
		p.AccountID = a.ID
		if p.Type == "" {
			p.Type = models.PocketTypeCustom
		}
		p.CreatedAt, p.UpdatedAt = now, now
		a.Balance = a.Balance.Add(p.Balance)
		a.Pockets = append(a.Pockets, p)
	}
	s.accounts[a.ID] = a
	return snapshot(a)
}

// Account returns a copy of the stored account, or nil.
func (s *Server) Account(id uuid.UUID) *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil
	}
	return snapshot(a)
}

func snapshot(a *models.Account) *models.Account {
	out := *a
	out.Pockets = append([]models.Pocket(nil), a.Pockets...)
	return &out
}

// begin runs the hook, counts the call, and consumes an injected failure.
// Returns false after writing a 500 when the operation was set to fail.
func (s *Server) begin(c *gin.Context, op Op) bool {
	s.mu.Lock()
	hook := s.hook
	s.callCount[op]++
	fail := s.failNext[op] > 0
	if fail {
		s.failNext[op]--
	}
	s.mu.Unlock()

	if hook != nil {
		hook(op)
	}
	if fail {
		writeError(c, http.StatusInternalServerError, "internal error")
		return false
	}
	return true
}

func writeResult(c *gin.Context, v any) {
	c.JSON(http.StatusOK, gin.H{"result": v})
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (s *Server) issueToken(userID uuid.UUID, ttl time.Duration) (string, int64) {
	exp := time.Now().Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return token, exp.Unix()
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims := jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(parts[1], &claims, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			writeError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) uuid.UUID {
	return c.MustGet("userID").(uuid.UUID)
}

func (s *Server) handleLogin(c *gin.Context) {
	if !s.begin(c, OpLogin) {
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Email]
	s.mu.Unlock()
	if !ok || u.password != req.Password {
		writeError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	access, exp := s.issueToken(u.id, time.Hour)
	refresh, _ := s.issueToken(u.id, 24*time.Hour)
	writeResult(c, models.Session{AccessToken: access, RefreshToken: refresh, Exp: exp})
}

func (s *Server) handleRegister(c *gin.Context) {
	if !s.begin(c, OpRegister) {
		return
	}

	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Email]; exists {
		writeError(c, http.StatusBadRequest, "email already registered")
		return
	}
	s.users[req.Email] = &user{id: uuid.New(), email: req.Email, name: req.Name, password: req.Password}
	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}

func (s *Server) handleListAccounts(c *gin.Context) {
	if !s.begin(c, OpListAccounts) {
		return
	}
	userID := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Account{}
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, *snapshot(a))
		}
	}
	writeResult(c, out)
}

func (s *Server) handleGetAccount(c *gin.Context) {
	if !s.begin(c, OpGetAccount) {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "id is invalid")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != currentUser(c) {
		writeError(c, http.StatusNotFound, "account not found")
		return
	}
	writeResult(c, snapshot(a))
}

func (s *Server) handleCreateAccount(c *gin.Context) {
	if !s.begin(c, OpCreateAccount) {
		return
	}

	var req struct {
		Type string `json:"type"`
		Name string `json:"name"`
		Bank string `json:"bank"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	accountType, err := models.ParseAccountType(req.Type)
	if err != nil {
		writeError(c, http.StatusBadRequest, "type is invalid")
		return
	}

	now := time.Now().Unix()
	a := &models.Account{
		ID:        uuid.New(),
		UserID:    currentUser(c),
		Type:      accountType,
		Name:      req.Name,
		Bank:      req.Bank,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
		Pockets: []models.Pocket{{
			ID:        uuid.New(),
			Name:      "Cashbox",
			Type:      models.PocketTypeCashbox,
			Balance:   decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		}},
	}
	a.Pockets[0].AccountID = a.ID

	s.mu.Lock()
	s.accounts[a.ID] = a
	s.mu.Unlock()
	writeResult(c, snapshot(a))
}

func (s *Server) handleDeposit(c *gin.Context) {
	if !s.begin(c, OpDeposit) {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "id is invalid")
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Amount.IsPositive() {
		writeError(c, http.StatusBadRequest, "amount must be positive")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != currentUser(c) {
		writeError(c, http.StatusNotFound, "account not found")
		return
	}

	// a deposit lands in the cashbox pocket
	for i := range a.Pockets {
		if a.Pockets[i].Type == models.PocketTypeCashbox {
			a.Pockets[i].Balance = a.Pockets[i].Balance.Add(req.Amount)
			a.Pockets[i].UpdatedAt = time.Now().Unix()
			break
		}
	}
	a.Balance = a.Balance.Add(req.Amount)
	a.UpdatedAt = time.Now().Unix()
	writeResult(c, snapshot(a))
}

func (s *Server) handleCreatePocket(c *gin.Context) {
	if !s.begin(c, OpCreatePocket) {
		return
	}

	var req struct {
		AccountID uuid.UUID `json:"accountId"`
		Name      string    `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(c, http.StatusBadRequest, "name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[req.AccountID]
	if !ok || a.UserID != currentUser(c) {
		writeError(c, http.StatusNotFound, "account not found")
		return
	}

	now := time.Now().Unix()
	p := models.Pocket{
		ID:        uuid.New(),
		AccountID: a.ID,
		Name:      req.Name,
		Type:      models.PocketTypeCustom,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	a.Pockets = append(a.Pockets, p)
	writeResult(c, p)
}

// findPocket locates a pocket owned by userID. Callers hold s.mu.
func (s *Server) findPocket(userID, pocketID uuid.UUID) (*models.Account, *models.Pocket) {
	for _, a := range s.accounts {
		if a.UserID != userID {
			continue
		}
		for i := range a.Pockets {
			if a.Pockets[i].ID == pocketID {
				return a, &a.Pockets[i]
			}
		}
	}
	return nil, nil
}

func (s *Server) handleTransfer(c *gin.Context) {
	if !s.begin(c, OpTransfer) {
		return
	}
	fromID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "id is invalid")
		return
	}

	var req struct {
		ToPocketID uuid.UUID       `json:"toPocketId"`
		Amount     decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Amount.IsPositive() {
		writeError(c, http.StatusBadRequest, "amount must be positive")
		return
	}
	if fromID == req.ToPocketID {
		writeError(c, http.StatusBadRequest, "cannot transfer to the same pocket")
		return
	}

	userID := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	fromAccount, from := s.findPocket(userID, fromID)
	toAccount, to := s.findPocket(userID, req.ToPocketID)
	if from == nil || to == nil {
		writeError(c, http.StatusNotFound, "pocket not found")
		return
	}
	if from.Balance.LessThan(req.Amount) {
		writeError(c, http.StatusBadRequest, "insufficient funds")
		return
	}

	now := time.Now().Unix()
	from.Balance = from.Balance.Sub(req.Amount)
	to.Balance = to.Balance.Add(req.Amount)
	from.UpdatedAt, to.UpdatedAt = now, now
	if fromAccount.ID != toAccount.ID {
		fromAccount.Balance = fromAccount.Balance.Sub(req.Amount)
		toAccount.Balance = toAccount.Balance.Add(req.Amount)
		fromAccount.UpdatedAt, toAccount.UpdatedAt = now, now
	}
	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}

func (s *Server) handleWithdraw(c *gin.Context) {
	if !s.begin(c, OpWithdraw) {
		return
	}
	pocketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "id is invalid")
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Amount.IsPositive() {
		writeError(c, http.StatusBadRequest, "amount must be positive")
		return
	}

	userID := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	account, pocket := s.findPocket(userID, pocketID)
	if pocket == nil {
		writeError(c, http.StatusNotFound, "pocket not found")
		return
	}
	if pocket.Balance.LessThan(req.Amount) {
		writeError(c, http.StatusBadRequest, "insufficient funds")
		return
	}

	now := time.Now().Unix()
	pocket.Balance = pocket.Balance.Sub(req.Amount)
	pocket.UpdatedAt = now
	account.Balance = account.Balance.Sub(req.Amount)
	account.UpdatedAt = now
	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}
