// Package simulation projects account values forward one calendar day at a
// time from a fixed set of accounts and transactions.
package simulation

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"rbudget/internal/core"
)

// Accounts maps account identifiers to their specifications.
type Accounts map[core.AccountID]core.AccountSpec

// HasAccount implements core.AccountRegistry.
func (a Accounts) HasAccount(id core.AccountID) bool {
	_, ok := a[id]
	return ok
}

// IDs returns the account identifiers in ascending order.
func (a Accounts) IDs() []core.AccountID {
	ids := slices.Collect(maps.Keys(a))
	sortIDs(ids)
	return ids
}

// Simulation is the immutable specification of a projection: accounts,
// transactions and the first simulated date. It is safe to share between
// goroutines; every iterator keeps its own values.
type Simulation struct {
	accounts     Accounts
	transactions []core.Transaction
	start        core.Date
}

// New copies accounts and transactions into a Simulation. The start date must
// be set and every transaction must reference accounts present in accounts.
func New(start core.Date, accounts Accounts, transactions ...core.Transaction) (*Simulation, error) {
	if err := start.Validate(); err != nil {
		return nil, fmt.Errorf("simulation start: %w", err)
	}
	s := &Simulation{
		accounts:     maps.Clone(accounts),
		transactions: slices.Clone(transactions),
		start:        start,
	}
	if s.accounts == nil {
		s.accounts = Accounts{}
	}

	for i, t := range s.transactions {
		for _, id := range []core.AccountID{t.Source, t.Sink} {
			if !s.accounts.HasAccount(id) {
				return nil, fmt.Errorf("transaction %d: %w", i, &core.TransactionError{Err: core.ErrInvalidAccountID, ID: id})
			}
		}
	}

	return s, nil
}

// HasAccount implements core.AccountRegistry.
func (s *Simulation) HasAccount(id core.AccountID) bool {
	return s.accounts.HasAccount(id)
}

// Accounts returns a copy of the account specifications.
func (s *Simulation) Accounts() Accounts {
	return maps.Clone(s.accounts)
}

// Account returns the settings of account id.
func (s *Simulation) Account(id core.AccountID) (core.AccountSpec, bool) {
	spec, ok := s.accounts[id]
	return spec, ok
}

// Transactions returns a copy of the transactions in specification order.
func (s *Simulation) Transactions() []core.Transaction {
	return slices.Clone(s.transactions)
}

// Start returns the first simulated date.
func (s *Simulation) Start() core.Date {
	return s.start
}

// InitialSnapshot returns every account's initial value.
func (s *Simulation) InitialSnapshot() Snapshot {
	values := make(Snapshot, len(s.accounts))
	for id, spec := range s.accounts {
		values[id] = spec.InitialValue
	}
	return values
}

// Iter returns an iterator positioned at the start date with initial values.
func (s *Simulation) Iter() *Iterator {
	return &Iterator{
		sim:    s,
		values: s.InitialSnapshot(),
		date:   s.start,
	}
}

// All yields (date, snapshot) pairs forever, one per simulated day. Callers
// stop by breaking out of the range loop.
func (s *Simulation) All() iter.Seq2[core.Date, Snapshot] {
	return func(yield func(core.Date, Snapshot) bool) {
		it := s.Iter()
		for {
			values, date := it.Next()
			if !yield(date, values) {
				return
			}
		}
	}
}

// Take runs n steps and returns every emitted day.
func (s *Simulation) Take(n int) []Day {
	if n <= 0 {
		return nil
	}
	days := make([]Day, 0, n)
	it := s.Iter()
	for range n {
		values, date := it.Next()
		days = append(days, Day{Date: date, Values: values})
	}
	return days
}
