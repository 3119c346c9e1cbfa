package memory

import (
	"rbudget/internal/core"
	"rbudget/internal/scenario"
	"rbudget/internal/simulation"
)

// Account identifiers used by the sample scenario.
var (
	BankID     = core.AccountID{ID: 0}
	SavingsID  = core.AccountID{ID: 1}
	EmployerID = core.AccountID{ID: 2}
	CostsID    = core.AccountID{ID: 3}
)

// Sample returns a small household: a current account, an interest bearing
// savings account, an employer whose -100% out charge makes salary free to
// pay, and a costs account that absorbs everything it receives.
func Sample() scenario.Definition {
	return scenario.Definition{
		Accounts: simulation.Accounts{
			BankID: {
				Name:         "Bank",
				InitialValue: core.MustParseMoney("£1000.00"),
			},
			SavingsID: {
				Name:         "Savings",
				InitialValue: core.MustParseMoney("£500.00"),
				Interest:     0.03,
			},
			EmployerID: {
				Name:         "Employer",
				InitialValue: core.MustParseMoney("£0.00"),
				OutCharge:    -1.0,
			},
			CostsID: {
				Name:         "Costs",
				InitialValue: core.MustParseMoney("£0.00"),
				InCharge:     1.0,
			},
		},
		Transactions: []scenario.TransactionDef{
			{
				Value:  core.MustParseMoney("£500.00"),
				Source: BankID,
				Sink:   SavingsID,
				Start:  core.NewDate(2023, 2, 25),
			},
			{
				Value:  core.MustParseMoney("£1500"),
				Source: EmployerID,
				Sink:   BankID,
				Start:  core.NewDate(2023, 2, 24),
				Every:  core.Monthly,
			},
		},
	}
}
