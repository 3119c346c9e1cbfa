package google

import (
	"fmt"
	"strconv"
	"strings"

	"rbudget/internal/core"
	"rbudget/internal/scenario"
	"rbudget/internal/simulation"
)

var (
	accountHeaders     = []string{"Scenario", "ID", "Name", "Initial", "Interest", "OutCharge", "InCharge"}
	transactionHeaders = []string{"Scenario", "Value", "Source", "Sink", "Start", "Every", "End"}
)

// parseAccounts converts the accounts tab into the accounts of one scenario.
// The first row must hold the headers; their order is free.
func parseAccounts(values [][]any, name string) (simulation.Accounts, error) {
	accounts := simulation.Accounts{}
	if len(values) == 0 {
		return accounts, nil
	}
	cols, err := headerColumns(toStrings(values[0]), accountHeaders, "accounts")
	if err != nil {
		return nil, err
	}

	for i, raw := range values[1:] {
		row := toStrings(raw)
		if !belongsTo(row, cols["Scenario"], name) {
			continue
		}
		line := i + 2
		id, err := strconv.ParseUint(safeGet(row, cols["ID"]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("accounts row %d: invalid id: %w", line, err)
		}
		initial, err := core.ParseMoney(safeGet(row, cols["Initial"]))
		if err != nil {
			return nil, fmt.Errorf("accounts row %d: %w", line, err)
		}
		spec := core.AccountSpec{Name: safeGet(row, cols["Name"]), InitialValue: initial}
		for header, dst := range map[string]*float64{
			"Interest":  &spec.Interest,
			"OutCharge": &spec.OutCharge,
			"InCharge":  &spec.InCharge,
		} {
			if *dst, err = parseRate(safeGet(row, cols[header])); err != nil {
				return nil, fmt.Errorf("accounts row %d: %s: %w", line, header, err)
			}
		}

		accountID := core.AccountID{ID: id}
		if _, dup := accounts[accountID]; dup {
			return nil, fmt.Errorf("accounts row %d: duplicate account id %d", line, id)
		}
		accounts[accountID] = spec
	}
	return accounts, nil
}

// parseTransactions converts the transactions tab into the ordered
// transactions of one scenario.
func parseTransactions(values [][]any, name string) ([]scenario.TransactionDef, error) {
	if len(values) == 0 {
		return nil, nil
	}
	cols, err := headerColumns(toStrings(values[0]), transactionHeaders, "transactions")
	if err != nil {
		return nil, err
	}

	var txs []scenario.TransactionDef
	for i, raw := range values[1:] {
		row := toStrings(raw)
		if !belongsTo(row, cols["Scenario"], name) {
			continue
		}
		line := i + 2
		td, err := parseTransactionRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("transactions row %d: %w", line, err)
		}
		txs = append(txs, td)
	}
	return txs, nil
}

func parseTransactionRow(row []string, cols map[string]int) (scenario.TransactionDef, error) {
	value, err := core.ParseMoney(safeGet(row, cols["Value"]))
	if err != nil {
		return scenario.TransactionDef{}, err
	}
	source, err := strconv.ParseUint(safeGet(row, cols["Source"]), 10, 64)
	if err != nil {
		return scenario.TransactionDef{}, fmt.Errorf("invalid source: %w", err)
	}
	sink, err := strconv.ParseUint(safeGet(row, cols["Sink"]), 10, 64)
	if err != nil {
		return scenario.TransactionDef{}, fmt.Errorf("invalid sink: %w", err)
	}
	start, err := core.ParseDate(safeGet(row, cols["Start"]))
	if err != nil {
		return scenario.TransactionDef{}, err
	}
	every, err := core.ParseRepetition(safeGet(row, cols["Every"]))
	if err != nil {
		return scenario.TransactionDef{}, err
	}
	td := scenario.TransactionDef{
		Value:  value,
		Source: core.AccountID{ID: source},
		Sink:   core.AccountID{ID: sink},
		Start:  start,
		Every:  every,
	}
	if end := safeGet(row, cols["End"]); end != "" {
		if td.End, err = core.ParseDate(end); err != nil {
			return scenario.TransactionDef{}, err
		}
	}
	return td, nil
}

// headerColumns locates every wanted header, ignoring case and spaces.
func headerColumns(headers, wanted []string, tab string) (map[string]int, error) {
	cols := make(map[string]int, len(wanted))
	var missing []string
	for _, w := range wanted {
		idx := indexOf(headers, w)
		if idx == -1 {
			missing = append(missing, w)
			continue
		}
		cols[w] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected %s header: missing %s; got headers=%v", tab, strings.Join(missing, ","), headers)
	}
	return cols, nil
}

func belongsTo(row []string, col int, name string) bool {
	v := safeGet(row, col)
	return v != "" && !strings.HasPrefix(v, "#") && v == name
}

// parseRate accepts a plain fraction ("0.03") or a percentage ("3%").
// Blank means zero.
func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid rate %q", s)
		}
		return f / 100, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q", s)
	}
	return f, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	norm := func(s string) string { return strings.ToLower(strings.ReplaceAll(s, " ", "")) }
	for i, v := range arr {
		if norm(v) == norm(target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
