package google

import (
	"strings"
	"testing"

	"rbudget/internal/core"
)

func accountValues() [][]any {
	return [][]any{
		{"Scenario", "ID", "Name", "Initial", "Interest", "Out Charge", "In Charge"},
		{"default", 0.0, "Bank", "£1,000.00", "", "", ""},
		{"default", 1.0, "Savings", "£500.00", "3%", "", ""},
		{"# retired", 9.0, "Old", "£1.00"},
		{"other", 0.0, "Wallet", "20"},
		{"default", "2", "Employer", "0", "0", -1.0, 0.0},
	}
}

func TestParseAccounts(t *testing.T) {
	accounts, err := parseAccounts(accountValues(), "default")
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(accounts))
	}
	bank := accounts[core.AccountID{ID: 0}]
	if bank.Name != "Bank" || !bank.InitialValue.Equal(core.MustParseMoney("1000")) {
		t.Fatalf("unexpected bank: %+v", bank)
	}
	if got := accounts[core.AccountID{ID: 1}].Interest; got != 0.03 {
		t.Fatalf("savings interest = %v", got)
	}
	if got := accounts[core.AccountID{ID: 2}].OutCharge; got != -1.0 {
		t.Fatalf("employer out charge = %v", got)
	}

	other, err := parseAccounts(accountValues(), "other")
	if err != nil || len(other) != 1 {
		t.Fatalf("other scenario: %v %v", other, err)
	}
}

func TestParseAccountsErrors(t *testing.T) {
	tests := []struct {
		name   string
		values [][]any
		want   string
	}{
		{
			name:   "missing header",
			values: [][]any{{"Scenario", "ID", "Name"}},
			want:   "unexpected accounts header",
		},
		{
			name: "bad id",
			values: [][]any{
				accountValues()[0],
				{"default", "x", "Bank", "1"},
			},
			want: "accounts row 2: invalid id",
		},
		{
			name: "duplicate id",
			values: [][]any{
				accountValues()[0],
				{"default", 1.0, "A", "1"},
				{"default", 1.0, "B", "1"},
			},
			want: "duplicate account id 1",
		},
		{
			name: "bad rate",
			values: [][]any{
				accountValues()[0],
				{"default", 1.0, "A", "1", "lots"},
			},
			want: "Interest",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAccounts(tt.values, "default")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseTransactions(t *testing.T) {
	values := [][]any{
		{"Scenario", "Value", "Source", "Sink", "Start", "Every", "End"},
		{"default", "£500.00", 0.0, 1.0, "2023-02-25"},
		{"other", "£1", 0.0, 1.0, "2023-02-25"},
		{"default", "£1500", 2.0, 0.0, "2023-02-24", "Monthly", "2024-02-24"},
	}
	txs, err := parseTransactions(values, "default")
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Every != core.NoRepetition || !txs[0].End.IsEmpty() {
		t.Fatalf("unexpected first transaction: %+v", txs[0])
	}
	if txs[1].Every != core.Monthly || txs[1].End.String() != "2024-02-24" || txs[1].Source.ID != 2 {
		t.Fatalf("unexpected second transaction: %+v", txs[1])
	}

	values = append(values, []any{"default", "£1", 0.0, 1.0, "2023-02-25", "fortnightly"})
	if _, err := parseTransactions(values, "default"); err == nil || !strings.Contains(err.Error(), "transactions row 5") {
		t.Fatalf("expected row 5 error, got %v", err)
	}
}

func TestParseRate(t *testing.T) {
	tests := map[string]float64{
		"":      0,
		"0.03":  0.03,
		"3%":    0.03,
		" -1 ":  -1,
		"150 %": 1.5,
	}
	for in, want := range tests {
		got, err := parseRate(in)
		if err != nil || got != want {
			t.Errorf("parseRate(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := parseRate("abc%"); err == nil {
		t.Errorf("expected error for abc%%")
	}
}

func TestFirstColumn(t *testing.T) {
	rows := [][]any{{"default"}, {}, {"# note"}, {"plan"}, {"default"}, {" "}}
	got := firstColumn(rows)
	if len(got) != 2 || got[0] != "default" || got[1] != "plan" {
		t.Fatalf("unexpected names: %v", got)
	}
}
