package scenario

import (
	"fmt"

	"rbudget/internal/core"
	"rbudget/internal/simulation"
)

// TransactionDef is a transaction as authored, before validation.
type TransactionDef struct {
	Value  core.Money
	Source core.AccountID
	Sink   core.AccountID
	Start  core.Date
	Every  core.RepetitionTypes
	// End is optional and exclusive.
	End core.Date
}

// Definition is the raw content of a scenario.
type Definition struct {
	Accounts     simulation.Accounts
	Transactions []TransactionDef
}

// Build validates every transaction against the accounts and returns the
// simulation starting at start. The first invalid transaction aborts the
// build, with its *core.TransactionError or core.ErrZeroDate when the
// transaction has no start date.
//
// A definition without repetition occurs on its start date only, so an end
// date on it is ignored.
func (d Definition) Build(start core.Date) (*simulation.Simulation, error) {
	txs := make([]core.Transaction, 0, len(d.Transactions))
	for i, def := range d.Transactions {
		if err := def.Start.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: start: %w", i, err)
		}
		t, err := def.build(d.Accounts)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, t)
	}
	return simulation.New(start, d.Accounts, txs...)
}

func (def TransactionDef) build(accounts core.AccountRegistry) (core.Transaction, error) {
	switch {
	case def.Every == core.NoRepetition:
		return core.SingleTransaction(accounts, def.Value, def.Source, def.Sink, def.Start)
	case def.End.IsEmpty():
		return core.RepeatingTransaction(accounts, def.Value, def.Source, def.Sink, def.Start, def.Every)
	default:
		return core.RepeatingTransactionUntil(accounts, def.Value, def.Source, def.Sink, def.Start, def.Every, def.End)
	}
}

// DefinitionOf converts a simulation back into a definition.
func DefinitionOf(sim *simulation.Simulation) Definition {
	txs := sim.Transactions()
	def := Definition{
		Accounts:     sim.Accounts(),
		Transactions: make([]TransactionDef, 0, len(txs)),
	}
	for _, t := range txs {
		end, _ := t.End()
		def.Transactions = append(def.Transactions, TransactionDef{
			Value:  t.Value,
			Source: t.Source,
			Sink:   t.Sink,
			Start:  t.Start(),
			Every:  t.Every(),
			End:    end,
		})
	}
	return def
}
