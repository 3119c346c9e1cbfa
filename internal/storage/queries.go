package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Account struct {
	AccountID    int64
	Name         string
	InitialValue string
	Interest     float64
	OutCharge    float64
	InCharge     float64
}

type Transaction struct {
	Position  int64
	Value     string
	Source    int64
	Sink      int64
	StartDate string
	Every     string
	EndDate   sql.NullString
}

const upsertScenario = `
INSERT INTO scenarios (name) VALUES (?)
ON CONFLICT(name) DO UPDATE SET updated_at = CURRENT_TIMESTAMP
`

func (q *Queries) UpsertScenario(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, upsertScenario, name)
	return err
}

const scenarioExists = `SELECT COUNT(*) FROM scenarios WHERE name = ?`

func (q *Queries) ScenarioExists(ctx context.Context, name string) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, scenarioExists, name).Scan(&n)
	return n > 0, err
}

const listScenarios = `SELECT name FROM scenarios ORDER BY name`

func (q *Queries) ListScenarios(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listScenarios)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

const deleteScenario = `DELETE FROM scenarios WHERE name = ?`

func (q *Queries) DeleteScenario(ctx context.Context, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteScenario, name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAccounts = `DELETE FROM accounts WHERE scenario = ?`

func (q *Queries) DeleteAccounts(ctx context.Context, scenario string) error {
	_, err := q.db.ExecContext(ctx, deleteAccounts, scenario)
	return err
}

const deleteTransactions = `DELETE FROM transactions WHERE scenario = ?`

func (q *Queries) DeleteTransactions(ctx context.Context, scenario string) error {
	_, err := q.db.ExecContext(ctx, deleteTransactions, scenario)
	return err
}

const insertAccount = `
INSERT INTO accounts (scenario, account_id, name, initial_value, interest, out_charge, in_charge)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertAccount(ctx context.Context, scenario string, a Account) error {
	_, err := q.db.ExecContext(ctx, insertAccount,
		scenario, a.AccountID, a.Name, a.InitialValue, a.Interest, a.OutCharge, a.InCharge)
	return err
}

const insertTransaction = `
INSERT INTO transactions (scenario, position, value, source, sink, start_date, every, end_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertTransaction(ctx context.Context, scenario string, t Transaction) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		scenario, t.Position, t.Value, t.Source, t.Sink, t.StartDate, t.Every, t.EndDate)
	return err
}

const getAccounts = `
SELECT account_id, name, initial_value, interest, out_charge, in_charge
FROM accounts WHERE scenario = ? ORDER BY account_id
`

func (q *Queries) GetAccounts(ctx context.Context, scenario string) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, getAccounts, scenario)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.AccountID, &a.Name, &a.InitialValue, &a.Interest, &a.OutCharge, &a.InCharge); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const getTransactions = `
SELECT position, value, source, sink, start_date, every, end_date
FROM transactions WHERE scenario = ? ORDER BY position
`

func (q *Queries) GetTransactions(ctx context.Context, scenario string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, getTransactions, scenario)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.Position, &t.Value, &t.Source, &t.Sink, &t.StartDate, &t.Every, &t.EndDate); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
