package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rbudget/internal/core"
	applog "rbudget/internal/log"
	"rbudget/internal/scenario"
	"rbudget/internal/simulation"

	_ "modernc.org/sqlite"
)

// Ensure interface conformance
var (
	_ scenario.Loader = (*SQLiteRepository)(nil)
	_ scenario.Lister = (*SQLiteRepository)(nil)
	_ scenario.Writer = (*SQLiteRepository)(nil)
)

// SQLiteRepository stores scenario definitions. Simulation results are never
// persisted.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *applog.Logger
}

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("Schema migrated", "path", dbPath, "version", version)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load reads the named scenario, wrapping scenario.ErrNotFound when absent.
func (r *SQLiteRepository) Load(ctx context.Context, name string) (scenario.Definition, error) {
	exists, err := r.queries.ScenarioExists(ctx, name)
	if err != nil {
		return scenario.Definition{}, fmt.Errorf("check scenario %s: %w", name, err)
	}
	if !exists {
		return scenario.Definition{}, fmt.Errorf("%w: %s", scenario.ErrNotFound, name)
	}

	accounts, err := r.queries.GetAccounts(ctx, name)
	if err != nil {
		return scenario.Definition{}, fmt.Errorf("get accounts: %w", err)
	}
	txs, err := r.queries.GetTransactions(ctx, name)
	if err != nil {
		return scenario.Definition{}, fmt.Errorf("get transactions: %w", err)
	}

	def := scenario.Definition{
		Accounts:     make(simulation.Accounts, len(accounts)),
		Transactions: make([]scenario.TransactionDef, 0, len(txs)),
	}
	for _, a := range accounts {
		initial, err := core.ParseMoney(a.InitialValue)
		if err != nil {
			return scenario.Definition{}, fmt.Errorf("account %d initial value: %w", a.AccountID, err)
		}
		def.Accounts[core.AccountID{ID: uint64(a.AccountID)}] = core.AccountSpec{
			Name:         a.Name,
			InitialValue: initial,
			Interest:     a.Interest,
			OutCharge:    a.OutCharge,
			InCharge:     a.InCharge,
		}
	}
	for _, t := range txs {
		td, err := transactionFromRow(t)
		if err != nil {
			return scenario.Definition{}, fmt.Errorf("transaction %d: %w", t.Position, err)
		}
		def.Transactions = append(def.Transactions, td)
	}

	r.logger.DebugContext(ctx, "Scenario loaded",
		applog.FieldScenario, name,
		"accounts", len(def.Accounts),
		"transactions", len(def.Transactions))
	return def, nil
}

func transactionFromRow(t Transaction) (scenario.TransactionDef, error) {
	value, err := core.ParseMoney(t.Value)
	if err != nil {
		return scenario.TransactionDef{}, err
	}
	start, err := core.ParseDate(t.StartDate)
	if err != nil {
		return scenario.TransactionDef{}, err
	}
	every, err := core.ParseRepetition(t.Every)
	if err != nil {
		return scenario.TransactionDef{}, err
	}
	td := scenario.TransactionDef{
		Value:  value,
		Source: core.AccountID{ID: uint64(t.Source)},
		Sink:   core.AccountID{ID: uint64(t.Sink)},
		Start:  start,
		Every:  every,
	}
	if t.EndDate.Valid {
		if td.End, err = core.ParseDate(t.EndDate.String); err != nil {
			return scenario.TransactionDef{}, err
		}
	}
	return td, nil
}

// Scenarios lists stored scenario names in sorted order.
func (r *SQLiteRepository) Scenarios(ctx context.Context) ([]string, error) {
	names, err := r.queries.ListScenarios(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	return names, nil
}

// Save replaces the named scenario with def in a single transaction.
func (r *SQLiteRepository) Save(ctx context.Context, name string, def scenario.Definition) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty scenario name")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.UpsertScenario(ctx, name); err != nil {
		return fmt.Errorf("upsert scenario: %w", err)
	}
	if err := q.DeleteAccounts(ctx, name); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	if err := q.DeleteTransactions(ctx, name); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}

	for _, id := range def.Accounts.IDs() {
		a := def.Accounts[id]
		err := q.InsertAccount(ctx, name, Account{
			AccountID:    int64(id.ID),
			Name:         a.Name,
			InitialValue: a.InitialValue.Amount.String(),
			Interest:     a.Interest,
			OutCharge:    a.OutCharge,
			InCharge:     a.InCharge,
		})
		if err != nil {
			return fmt.Errorf("insert account %d: %w", id.ID, err)
		}
	}
	for i, t := range def.Transactions {
		row := Transaction{
			Position:  int64(i),
			Value:     t.Value.Amount.String(),
			Source:    int64(t.Source.ID),
			Sink:      int64(t.Sink.ID),
			StartDate: t.Start.String(),
			Every:     string(t.Every),
		}
		if !t.End.IsEmpty() {
			row.EndDate = sql.NullString{String: t.End.String(), Valid: true}
		}
		if err := q.InsertTransaction(ctx, name, row); err != nil {
			return fmt.Errorf("insert transaction %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scenario: %w", err)
	}

	r.logger.InfoContext(ctx, "Scenario saved",
		applog.FieldScenario, name,
		"accounts", len(def.Accounts),
		"transactions", len(def.Transactions))
	return nil
}

// Delete removes the named scenario and everything it owns.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteTransactions(ctx, name); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	if err := q.DeleteAccounts(ctx, name); err != nil {
		return fmt.Errorf("delete accounts: %w", err)
	}
	n, err := q.DeleteScenario(ctx, name)
	if err != nil {
		return fmt.Errorf("delete scenario: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", scenario.ErrNotFound, name)
	}
	return tx.Commit()
}

// SeedIfEmpty saves def under name when the store holds no scenario yet.
// It reports whether anything was written.
func (r *SQLiteRepository) SeedIfEmpty(ctx context.Context, name string, def scenario.Definition) (bool, error) {
	names, err := r.Scenarios(ctx)
	if err != nil {
		return false, err
	}
	if len(names) > 0 {
		return false, nil
	}
	if err := r.Save(ctx, name, def); err != nil {
		return false, fmt.Errorf("seed scenario: %w", err)
	}
	return true, nil
}
