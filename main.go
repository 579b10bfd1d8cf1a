package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"pocketfolio/internal/app"
	"pocketfolio/internal/config"
	"pocketfolio/internal/models"
	"pocketfolio/internal/notify"
	"pocketfolio/internal/session"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("pocketfolio", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file (default config.yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, notify.NewWriterNotifier(stdout), nil, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ui := &console{app: a, in: bufio.NewScanner(stdin), stdin: stdin, out: stdout}

	if err := a.Start(ctx); err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			return err
		}
		if err := ui.entryScreen(ctx); err != nil {
			return err
		}
	}

	return ui.loop(ctx)
}

func newLogger(cfg config.LogConfig, stderr io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Logger{}, errors.Wrap(err, "parse log level")
		}
	}

	var out io.Writer = stderr
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: stderr}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// console is the terminal front end: a thin command loop over the app. All
// state it renders comes from the cache; it never recomputes a balance.
type console struct {
	app   *app.App
	in    *bufio.Scanner
	stdin io.Reader
	out   io.Writer

	accounts []models.Account
}

func (c *console) entryScreen(ctx context.Context) error {
	for {
		fmt.Fprintln(c.out, "Commands: login, register, quit")
		fmt.Fprint(c.out, "> ")
		if !c.in.Scan() {
			return c.in.Err()
		}
		switch strings.TrimSpace(c.in.Text()) {
		case "login":
			email := c.prompt("Email: ")
			password, err := c.promptPassword("Password: ")
			if err != nil {
				return err
			}
			if err := c.app.Login(ctx, email, password); err != nil {
				fmt.Fprintf(c.out, "login failed: %v\n", err)
				continue
			}
			fmt.Fprintln(c.out, "Login successful")
			return nil
		case "register":
			email := c.prompt("Email: ")
			name := c.prompt("Name: ")
			password, err := c.promptPassword("Password: ")
			if err != nil {
				return err
			}
			if err := c.app.Register(ctx, email, name, password); err != nil {
				fmt.Fprintf(c.out, "register failed: %v\n", err)
				continue
			}
			fmt.Fprintln(c.out, "Register successful")
		case "quit", "exit":
			return nil
		}
	}
}

func (c *console) loop(ctx context.Context) error {
	fmt.Fprintln(c.out, "Commands: accounts, account <n>, newaccount, deposit <n> <amount>,")
	fmt.Fprintln(c.out, "  pocket <n> <name>, move <n> <from> <to>, withdraw <n> <pocket> <amount>,")
	fmt.Fprintln(c.out, "  export <file>, logout, quit")

	for {
		fmt.Fprint(c.out, "> ")
		if !c.in.Scan() {
			return c.in.Err()
		}
		fields := strings.Fields(c.in.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "accounts":
			err = c.listAccounts(ctx)
		case "account":
			err = c.showAccount(ctx, fields[1:])
		case "newaccount":
			err = c.createAccount(ctx)
		case "deposit":
			err = c.deposit(ctx, fields[1:])
		case "pocket":
			err = c.createPocket(ctx, fields[1:])
		case "move":
			err = c.move(ctx, fields[1:])
		case "withdraw":
			err = c.withdraw(ctx, fields[1:])
		case "export":
			err = c.export(ctx, fields[1:])
		case "logout":
			if err = c.app.Logout(); err == nil {
				if err := c.entryScreen(ctx); err != nil {
					return err
				}
				continue
			}
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintf(c.out, "unknown command %q\n", fields[0])
		}
		if err != nil {
			fmt.Fprintf(c.out, "%v\n", err)
		}
	}
}

func (c *console) listAccounts(ctx context.Context) error {
	accounts, err := c.app.Accounts(ctx)
	if err != nil && accounts == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(c.out, "showing cached data, refresh failed: %v\n", err)
	}

	c.accounts = accounts
	for i, a := range accounts {
		fmt.Fprintf(c.out, "%2d. %-20s %-25s %10s\n", i+1, a.Name, models.BankLabel(a.Bank), a.Balance.String())
	}
	if len(accounts) == 0 {
		fmt.Fprintln(c.out, "no accounts yet")
	}
	return nil
}

// pickAccount resolves a 1-based index from the last rendered list.
func (c *console) pickAccount(arg string) (*models.Account, error) {
	var idx int
	if _, err := fmt.Sscanf(arg, "%d", &idx); err != nil || idx < 1 || idx > len(c.accounts) {
		return nil, errors.Newf("no account %q, run accounts first", arg)
	}
	return &c.accounts[idx-1], nil
}

func (c *console) showAccount(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: account <n>")
	}
	picked, err := c.pickAccount(args[0])
	if err != nil {
		return err
	}

	account, err := c.app.Account(ctx, picked.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%s (%s) %s\n", account.Name, account.Type, account.Balance.String())
	for i, p := range account.Pockets {
		fmt.Fprintf(c.out, "  %2d. %-20s %10s\n", i+1, p.Name, p.Balance.String())
	}
	return nil
}

func (c *console) createAccount(ctx context.Context) error {
	name := c.prompt("Account name: ")
	fmt.Fprintln(c.out, "Banks:")
	for _, b := range models.Banks {
		fmt.Fprintf(c.out, "  %-10s %s\n", b.Value, b.Label)
	}
	bank := c.prompt("Bank: ")
	accountType, err := models.ParseAccountType(strings.ToUpper(c.prompt("Type (SAVING, FIXED_DEPOSIT, FCD, MUTUAL_FUND, STOCK): ")))
	if err != nil {
		return err
	}
	return c.app.CreateAccount(ctx, models.AccountInput{Type: accountType, Name: name, Bank: bank})
}

func (c *console) deposit(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: deposit <n> <amount>")
	}
	picked, err := c.pickAccount(args[0])
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return errors.Wrap(err, "parse amount")
	}
	return c.app.Deposit(ctx, picked.ID, amount)
}

func (c *console) createPocket(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: pocket <n> <name>")
	}
	picked, err := c.pickAccount(args[0])
	if err != nil {
		return err
	}
	return c.app.CreatePocket(ctx, picked.ID, strings.Join(args[1:], " "))
}

// move drives the drag controller the way a pointer gesture would: start on
// the source pocket, hover and drop on the destination, then confirm the
// amount.
func (c *console) move(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: move <n> <from-pocket> <to-pocket>")
	}
	from, err := c.pickPocket(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	to, err := c.pickPocket(ctx, args[0], args[2])
	if err != nil {
		return err
	}

	if err := c.app.Drag.DragStart(from); err != nil {
		return err
	}
	c.app.Drag.DragEnter(to)
	if err := c.app.Drag.Drop(to); err != nil {
		c.app.Drag.Cancel()
		return err
	}
	if from == to {
		// dropped on itself, gesture already unwound
		return nil
	}

	amount, err := decimal.NewFromString(c.prompt("Amount: "))
	if err != nil {
		c.app.Drag.Cancel()
		return errors.Wrap(err, "parse amount")
	}
	return c.app.Drag.ConfirmAmount(ctx, amount)
}

func (c *console) withdraw(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: withdraw <n> <pocket> <amount>")
	}
	pocketID, err := c.pickPocket(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(args[2])
	if err != nil {
		return errors.Wrap(err, "parse amount")
	}
	return c.app.Withdraw(ctx, pocketID, amount)
}

func (c *console) pickPocket(ctx context.Context, accountArg, pocketArg string) (uuid.UUID, error) {
	picked, err := c.pickAccount(accountArg)
	if err != nil {
		return uuid.Nil, err
	}
	account, err := c.app.Account(ctx, picked.ID)
	if err != nil {
		return uuid.Nil, err
	}

	var idx int
	if _, err := fmt.Sscanf(pocketArg, "%d", &idx); err != nil || idx < 1 || idx > len(account.Pockets) {
		return uuid.Nil, errors.Newf("no pocket %q in %s", pocketArg, account.Name)
	}
	return account.Pockets[idx-1].ID, nil
}

func (c *console) export(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: export <file.xlsx>")
	}
	f, err := os.Create(args[0])
	if err != nil {
		return errors.Wrap(err, "create file")
	}
	defer f.Close()

	if err := c.app.Export(ctx, f); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "exported to %s\n", args[0])
	return nil
}

func (c *console) prompt(label string) string {
	fmt.Fprint(c.out, label)
	if !c.in.Scan() {
		return ""
	}
	return strings.TrimSpace(c.in.Text())
}

func (c *console) promptPassword(label string) (string, error) {
	fmt.Fprint(c.out, label)
	if f, ok := c.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", errors.Wrap(err, "read password")
		}
		return string(raw), nil
	}
	// pipes and tests
	if !c.in.Scan() {
		return "", c.in.Err()
	}
	return strings.TrimSpace(c.in.Text()), nil
}
