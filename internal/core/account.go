package core

// daysPerYear spreads the annual interest rate evenly; leap years are not
// special-cased.
const daysPerYear = 365.0

// AccountSpec describes how an account's value responds to transfers and to
// the passing of days.
type AccountSpec struct {
	Name         string
	InitialValue Money

	// Interest is the annual rate applied in 1/365 steps once per day.
	Interest float64

	// OutCharge is charged on top of every outgoing transfer as a fraction of
	// the transferred value. A negative charge is a bonus.
	OutCharge float64

	// InCharge is withheld from every incoming transfer as a fraction of the
	// transferred value.
	InCharge float64
}

// Source returns the account value after it funds a transfer of out.
func (a AccountSpec) Source(value, out Money) Money {
	return value.Sub(MoneyFromFraction(out.Fraction() * (1 + a.OutCharge)))
}

// Sink returns the account value after it receives a transfer of in.
func (a AccountSpec) Sink(value, in Money) Money {
	return value.Add(MoneyFromFraction(in.Fraction() * (1 - a.InCharge)))
}

// Update returns the account value after one day has elapsed.
func (a AccountSpec) Update(value Money) Money {
	return MoneyFromFraction(value.Fraction() * (1 + a.Interest/daysPerYear))
}
