package core

// AccountRegistry reports which accounts exist. Transactions are validated
// against it at construction time only.
type AccountRegistry interface {
	HasAccount(id AccountID) bool
}

// Transaction moves Value from Source to Sink on every date where Occurs
// holds. Build one with SingleTransaction, RepeatingTransaction or
// RepeatingTransactionUntil.
type Transaction struct {
	Value  Money
	Source AccountID
	Sink   AccountID

	// start is the first possible occurrence.
	start Date
	// every is NoRepetition for a one-off transaction.
	every RepetitionTypes
	// end is an exclusive bound; zero when the transaction repeats forever.
	end Date
}

// SingleTransaction creates a transaction which occurs on date only.
func SingleTransaction(accounts AccountRegistry, value Money, source, sink AccountID, date Date) (Transaction, error) {
	if !accounts.HasAccount(source) {
		return Transaction{}, &TransactionError{Err: ErrInvalidAccountID, ID: source}
	}
	if !accounts.HasAccount(sink) {
		return Transaction{}, &TransactionError{Err: ErrInvalidAccountID, ID: sink}
	}
	if source == sink {
		return Transaction{}, &TransactionError{Err: ErrDuplicateAccountID, ID: source}
	}

	return Transaction{
		Value:  value,
		Source: source,
		Sink:   sink,
		start:  date,
		every:  NoRepetition,
	}, nil
}

// RepeatingTransaction creates a transaction which first occurs on start and
// repeats endlessly.
func RepeatingTransaction(accounts AccountRegistry, value Money, source, sink AccountID, start Date, every RepetitionTypes) (Transaction, error) {
	t, err := SingleTransaction(accounts, value, source, sink, start)
	if err != nil {
		return Transaction{}, err
	}
	t.every = every
	return t, nil
}

// RepeatingTransactionUntil creates a repeating transaction that stops
// before end. end may equal start, in which case it never occurs.
func RepeatingTransactionUntil(accounts AccountRegistry, value Money, source, sink AccountID, start Date, every RepetitionTypes, end Date) (Transaction, error) {
	t, err := RepeatingTransaction(accounts, value, source, sink, start, every)
	if err != nil {
		return Transaction{}, err
	}
	if end.Time.Before(start.Time) {
		return Transaction{}, &TransactionError{Err: ErrInvalidStartEndDateCombination, Start: start, End: end}
	}
	t.end = end
	return t, nil
}

// Start returns the first possible occurrence.
func (t Transaction) Start() Date {
	return t.start
}

// Every returns the repetition rule.
func (t Transaction) Every() RepetitionTypes {
	return t.every
}

// End returns the exclusive end date, if any.
func (t Transaction) End() (Date, bool) {
	return t.end, !t.end.IsEmpty()
}

// Occurs reports whether the transaction takes place on date.
func (t Transaction) Occurs(date Date) bool {
	if date.Time.Before(t.start.Time) {
		return false
	}
	checker, ok := GetOccurrenceChecker(t.every)
	if !ok || !checker.Matches(date, t.start) {
		return false
	}
	if !t.end.IsEmpty() && !date.Time.Before(t.end.Time) {
		return false
	}
	return true
}
