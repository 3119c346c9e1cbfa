package scenario

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbudget/internal/core"
	"rbudget/internal/simulation"
)

var (
	bank    = core.AccountID{ID: 0}
	savings = core.AccountID{ID: 1}
	start   = core.NewDate(2023, 2, 23)
)

func twoAccounts() simulation.Accounts {
	return simulation.Accounts{
		bank:    {Name: "Bank", InitialValue: core.MustParseMoney("£1000")},
		savings: {Name: "Savings", InitialValue: core.MustParseMoney("£500"), Interest: 0.03},
	}
}

func TestDefinitionBuildChoosesConstructor(t *testing.T) {
	end := core.NewDate(2023, 6, 1)
	def := Definition{
		Accounts: twoAccounts(),
		Transactions: []TransactionDef{
			{Value: core.MustParseMoney("1"), Source: bank, Sink: savings, Start: start},
			{Value: core.MustParseMoney("2"), Source: bank, Sink: savings, Start: start, Every: core.Weekly},
			{Value: core.MustParseMoney("3"), Source: bank, Sink: savings, Start: start, Every: core.Monthly, End: end},
			{Value: core.MustParseMoney("4"), Source: savings, Sink: bank, Start: start, End: end},
		},
	}

	sim, err := def.Build(start)
	require.NoError(t, err)
	assert.Equal(t, start, sim.Start())

	txs := sim.Transactions()
	require.Len(t, txs, 4)

	assert.Equal(t, core.NoRepetition, txs[0].Every())
	assert.Equal(t, core.Weekly, txs[1].Every())
	_, hasEnd := txs[1].End()
	assert.False(t, hasEnd)

	gotEnd, hasEnd := txs[2].End()
	assert.True(t, hasEnd)
	assert.Equal(t, end, gotEnd)

	_, hasEnd = txs[3].End()
	assert.False(t, hasEnd, "an end date on a one-off transaction is dropped")
}

func TestDefinitionBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		tx   TransactionDef
		want error
	}{
		{
			name: "unknown account",
			tx:   TransactionDef{Source: bank, Sink: core.AccountID{ID: 9}, Start: start},
			want: core.ErrInvalidAccountID,
		},
		{
			name: "same account",
			tx:   TransactionDef{Source: bank, Sink: bank, Start: start, Every: core.Daily},
			want: core.ErrDuplicateAccountID,
		},
		{
			name: "end before start",
			tx:   TransactionDef{Source: bank, Sink: savings, Start: start, Every: core.Daily, End: start.AddDays(-1)},
			want: core.ErrInvalidStartEndDateCombination,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := Definition{Accounts: twoAccounts(), Transactions: []TransactionDef{tt.tx}}
			sim, err := def.Build(start)
			assert.Nil(t, sim)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Contains(t, err.Error(), "transaction 0")
		})
	}
}

func TestDefinitionBuildRejectsMissingDates(t *testing.T) {
	def := Definition{
		Accounts: twoAccounts(),
		Transactions: []TransactionDef{
			{Value: core.MustParseMoney("1"), Source: bank, Sink: savings, Start: start},
			{Value: core.MustParseMoney("2"), Source: bank, Sink: savings, Every: core.Weekly},
		},
	}
	sim, err := def.Build(start)
	assert.Nil(t, sim)
	assert.True(t, errors.Is(err, core.ErrZeroDate), "got %v", err)
	assert.Contains(t, err.Error(), "transaction 1")

	def.Transactions = def.Transactions[:1]
	_, err = def.Build(core.Date{})
	assert.True(t, errors.Is(err, core.ErrZeroDate), "got %v", err)
}

func TestDefinitionOfRoundTrip(t *testing.T) {
	def := Definition{
		Accounts: twoAccounts(),
		Transactions: []TransactionDef{
			{Value: core.MustParseMoney("£25"), Source: bank, Sink: savings, Start: start, Every: core.Yearly, End: core.NewDate(2030, 1, 1)},
		},
	}
	sim, err := def.Build(start)
	require.NoError(t, err)

	back := DefinitionOf(sim)
	require.Len(t, back.Transactions, 1)
	assert.Equal(t, def.Transactions[0].End, back.Transactions[0].End)
	assert.Equal(t, core.Yearly, back.Transactions[0].Every)
	assert.Len(t, back.Accounts, 2)
}

func TestJSONCodec(t *testing.T) {
	def := Definition{
		Accounts: twoAccounts(),
		Transactions: []TransactionDef{
			{Value: core.MustParseMoney("£500"), Source: bank, Sink: savings, Start: start.AddDays(2)},
			{Value: core.MustParseMoney("£12.50"), Source: savings, Sink: bank, Start: start, Every: core.Monthly, End: core.NewDate(2024, 1, 1)},
			{Value: core.MustParseMoney("0.125"), Source: bank, Sink: savings, Start: start, Every: core.Daily},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, def))
	assert.Contains(t, buf.String(), `"initial": "1000.00"`)
	assert.Contains(t, buf.String(), `"value": "0.125"`)
	assert.NotContains(t, buf.String(), `"end": ""`)

	back, err := DecodeJSON(&buf)
	require.NoError(t, err)
	require.Len(t, back.Transactions, 3)
	assert.True(t, back.Transactions[2].Value.Equal(core.MustParseMoney("0.125")), "sub-cent value kept")
	assert.True(t, back.Accounts[savings].InitialValue.Equal(core.MustParseMoney("500")))
	assert.Equal(t, 0.03, back.Accounts[savings].Interest)
	assert.True(t, back.Transactions[0].End.IsEmpty())
	assert.Equal(t, core.Monthly, back.Transactions[1].Every)
	assert.Equal(t, "2024-01-01", back.Transactions[1].End.String())
}

func TestDecodeJSONRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"unknown field":  `{"accounts": [], "extra": 1}`,
		"bad money":      `{"accounts": [{"id": 0, "initial": "lots"}]}`,
		"bad date":       `{"accounts": [], "transactions": [{"value": "1", "start": "23/02/2023"}]}`,
		"bad repetition": `{"accounts": [], "transactions": [{"value": "1", "start": "2023-02-23", "every": "hourly"}]}`,
		"bad end":        `{"accounts": [], "transactions": [{"value": "1", "start": "2023-02-23", "every": "daily", "end": "soon"}]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeJSON(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestYAMLCodec(t *testing.T) {
	def := Definition{
		Accounts: twoAccounts(),
		Transactions: []TransactionDef{
			{Value: core.MustParseMoney("£12.50"), Source: savings, Sink: bank, Start: start, Every: core.Weekly, End: core.NewDate(2024, 1, 1)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeYAML(&buf, def))
	assert.Contains(t, buf.String(), "every: weekly")
	assert.NotContains(t, buf.String(), "out_charge")

	back, err := DecodeYAML(&buf)
	require.NoError(t, err)
	require.Len(t, back.Transactions, 1)
	assert.True(t, back.Accounts[bank].InitialValue.Equal(core.MustParseMoney("1000")))
	assert.Equal(t, 0.03, back.Accounts[savings].Interest)
	assert.True(t, back.Transactions[0].Value.Equal(core.MustParseMoney("12.50")))
	assert.Equal(t, "2024-01-01", back.Transactions[0].End.String())
}

func TestDecodeYAMLRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"unknown field": "accounts: []\nextra: 1\n",
		"duplicate id":  "accounts:\n  - id: 1\n  - id: 1\n",
		"bad money":     "accounts:\n  - id: 0\n    initial: lots\n",
		"bad date":      "transactions:\n  - value: 1\n    start: 23/02/2023\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeYAML(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
