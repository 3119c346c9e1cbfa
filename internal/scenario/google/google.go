package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	applog "rbudget/internal/log"
	"rbudget/internal/scenario"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config names the spreadsheet and its two tabs. Credentials come from
// CredentialsJSON, then CredentialsFile, then GOOGLE_APPLICATION_CREDENTIALS.
type Config struct {
	SpreadsheetID     string
	AccountsSheet     string
	TransactionsSheet string
	CredentialsJSON   string
	CredentialsFile   string
}

// Client reads scenario definitions from a spreadsheet. Every row of the
// accounts and transactions tabs carries the name of its scenario in the
// first column, so one spreadsheet can hold many scenarios.
type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	accountsSheet     string
	transactionsSheet string
	logger            *applog.Logger
}

// Ensure interface conformance
var (
	_ scenario.Loader = (*Client)(nil)
	_ scenario.Lister = (*Client)(nil)
)

// New creates a Sheets client. Extra options replace the credential lookup,
// which lets callers point the client at another endpoint.
func New(ctx context.Context, cfg Config, logger *applog.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if cfg.AccountsSheet == "" {
		cfg.AccountsSheet = "Accounts"
	}
	if cfg.TransactionsSheet == "" {
		cfg.TransactionsSheet = "Transactions"
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	var (
		svc *gsheet.Service
		err error
	)
	if len(opts) > 0 {
		svc, err = gsheet.NewService(ctx, opts...)
	} else {
		svc, err = newSheetsService(ctx, cfg, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:               svc,
		spreadsheetID:     cfg.SpreadsheetID,
		accountsSheet:     cfg.AccountsSheet,
		transactionsSheet: cfg.TransactionsSheet,
		logger:            logger,
	}, nil
}

// newSheetsService initializes a read-only Sheets service from service
// account credentials.
func newSheetsService(ctx context.Context, cfg Config, logger *applog.Logger) (*gsheet.Service, error) {
	credentialsJSON, err := resolveCredentials(cfg)
	if err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func resolveCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Load reads both tabs and keeps the rows belonging to name.
func (c *Client) Load(ctx context.Context, name string) (scenario.Definition, error) {
	accountRows, err := c.readRange(ctx, c.accountsSheet, "A:G")
	if err != nil {
		return scenario.Definition{}, fmt.Errorf("read accounts: %w", err)
	}
	txRows, err := c.readRange(ctx, c.transactionsSheet, "A:G")
	if err != nil {
		return scenario.Definition{}, fmt.Errorf("read transactions: %w", err)
	}

	accounts, err := parseAccounts(accountRows, name)
	if err != nil {
		return scenario.Definition{}, err
	}
	if len(accounts) == 0 {
		return scenario.Definition{}, fmt.Errorf("%w: %s", scenario.ErrNotFound, name)
	}
	txs, err := parseTransactions(txRows, name)
	if err != nil {
		return scenario.Definition{}, err
	}

	c.logger.InfoContext(ctx, "Scenario read from spreadsheet",
		applog.FieldScenario, name,
		"accounts", len(accounts),
		"transactions", len(txs))
	return scenario.Definition{Accounts: accounts, Transactions: txs}, nil
}

// Scenarios lists the distinct scenario names of the accounts tab in the
// order they first appear.
func (c *Client) Scenarios(ctx context.Context) ([]string, error) {
	rows, err := c.readRange(ctx, c.accountsSheet, "A2:A")
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	return firstColumn(rows), nil
}

func (c *Client) readRange(ctx context.Context, sheetName, cols string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!%s", sheetName, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func firstColumn(rows [][]any) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
