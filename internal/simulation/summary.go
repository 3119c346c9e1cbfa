package simulation

import "rbudget/internal/core"

// AccountSummary condenses one account's values over a projection.
type AccountSummary struct {
	ID      core.AccountID
	Name    string
	Initial core.Money
	Final   core.Money
	Min     core.AccountState
	Max     core.AccountState
}

// History returns the value of id on every projected day. Days without a
// value for id are skipped.
func History(days []Day, id core.AccountID) []core.AccountState {
	states := make([]core.AccountState, 0, len(days))
	for _, d := range days {
		if v, ok := d.Values[id]; ok {
			states = append(states, core.AccountState{Value: v, Date: d.Date})
		}
	}
	return states
}

// Summarize reports initial, final, lowest and highest values per account,
// ordered by account ID. The earliest date wins ties for Min and Max.
func Summarize(accounts Accounts, days []Day) []AccountSummary {
	out := make([]AccountSummary, 0, len(accounts))
	for _, id := range accounts.IDs() {
		spec := accounts[id]
		s := AccountSummary{
			ID:      id,
			Name:    spec.Name,
			Initial: spec.InitialValue,
			Final:   spec.InitialValue,
		}
		for i, st := range History(days, id) {
			if i == 0 || st.Value.Amount.LessThan(s.Min.Value.Amount) {
				s.Min = st
			}
			if i == 0 || st.Value.Amount.GreaterThan(s.Max.Value.Amount) {
				s.Max = st
			}
			s.Final = st.Value
		}
		out = append(out, s)
	}
	return out
}
