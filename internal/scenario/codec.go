package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"rbudget/internal/core"
	"rbudget/internal/simulation"
)

// File layout of a scenario document. The YAML form uses the same keys.
//
//	{
//	  "accounts": [{"id": 0, "name": "Bank", "initial": "£1000.00", "interest": 0.0,
//	                "out_charge": 0.0, "in_charge": 0.0}],
//	  "transactions": [{"value": "£500", "source": 0, "sink": 1, "start": "2023-02-25",
//	                    "every": "monthly", "end": "2024-02-25"}]
//	}
type (
	accountDoc struct {
		ID        uint64     `json:"id" yaml:"id"`
		Name      string     `json:"name" yaml:"name"`
		Initial   core.Money `json:"initial" yaml:"initial"`
		Interest  float64    `json:"interest" yaml:"interest,omitempty"`
		OutCharge float64    `json:"out_charge" yaml:"out_charge,omitempty"`
		InCharge  float64    `json:"in_charge" yaml:"in_charge,omitempty"`
	}

	transactionDoc struct {
		Value  core.Money `json:"value" yaml:"value"`
		Source uint64     `json:"source" yaml:"source"`
		Sink   uint64     `json:"sink" yaml:"sink"`
		Start  string     `json:"start" yaml:"start"`
		Every  string     `json:"every,omitempty" yaml:"every,omitempty"`
		End    string     `json:"end,omitempty" yaml:"end,omitempty"`
	}

	definitionDoc struct {
		Accounts     []accountDoc     `json:"accounts" yaml:"accounts"`
		Transactions []transactionDoc `json:"transactions" yaml:"transactions"`
	}
)

// DecodeJSON reads a scenario document. Account identifiers must be unique.
func DecodeJSON(r io.Reader) (Definition, error) {
	var doc definitionDoc
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Definition{}, fmt.Errorf("decode scenario: %w", err)
	}
	return doc.definition()
}

// DecodeYAML reads the YAML form of a scenario document.
func DecodeYAML(r io.Reader) (Definition, error) {
	var doc definitionDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Definition{}, fmt.Errorf("decode scenario: %w", err)
	}
	return doc.definition()
}

func (doc definitionDoc) definition() (Definition, error) {
	def := Definition{Accounts: make(simulation.Accounts, len(doc.Accounts))}
	for _, a := range doc.Accounts {
		id := core.AccountID{ID: a.ID}
		if _, dup := def.Accounts[id]; dup {
			return Definition{}, fmt.Errorf("decode scenario: duplicate account id %d", a.ID)
		}
		def.Accounts[id] = core.AccountSpec{
			Name:         a.Name,
			InitialValue: a.Initial,
			Interest:     a.Interest,
			OutCharge:    a.OutCharge,
			InCharge:     a.InCharge,
		}
	}

	for i, t := range doc.Transactions {
		td, err := transactionFromDoc(t)
		if err != nil {
			return Definition{}, fmt.Errorf("decode scenario: transaction %d: %w", i, err)
		}
		def.Transactions = append(def.Transactions, td)
	}
	return def, nil
}

func transactionFromDoc(t transactionDoc) (TransactionDef, error) {
	start, err := core.ParseDate(t.Start)
	if err != nil {
		return TransactionDef{}, err
	}
	every, err := core.ParseRepetition(t.Every)
	if err != nil {
		return TransactionDef{}, err
	}
	td := TransactionDef{
		Value:  t.Value,
		Source: core.AccountID{ID: t.Source},
		Sink:   core.AccountID{ID: t.Sink},
		Start:  start,
		Every:  every,
	}
	if t.End != "" {
		if td.End, err = core.ParseDate(t.End); err != nil {
			return TransactionDef{}, err
		}
	}
	return td, nil
}

// EncodeJSON writes def in the layout DecodeJSON reads, accounts ordered by ID.
func EncodeJSON(w io.Writer, def Definition) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docOf(def)); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	return nil
}

// EncodeYAML writes def in the layout DecodeYAML reads.
func EncodeYAML(w io.Writer, def Definition) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(docOf(def)); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	return enc.Close()
}

func docOf(def Definition) definitionDoc {
	doc := definitionDoc{
		Accounts:     make([]accountDoc, 0, len(def.Accounts)),
		Transactions: make([]transactionDoc, 0, len(def.Transactions)),
	}
	for _, id := range def.Accounts.IDs() {
		a := def.Accounts[id]
		doc.Accounts = append(doc.Accounts, accountDoc{
			ID:        id.ID,
			Name:      a.Name,
			Initial:   a.InitialValue,
			Interest:  a.Interest,
			OutCharge: a.OutCharge,
			InCharge:  a.InCharge,
		})
	}
	for _, t := range def.Transactions {
		td := transactionDoc{
			Value:  t.Value,
			Source: t.Source.ID,
			Sink:   t.Sink.ID,
			Start:  t.Start.String(),
			Every:  string(t.Every),
		}
		if !t.End.IsEmpty() {
			td.End = t.End.String()
		}
		doc.Transactions = append(doc.Transactions, td)
	}
	return doc
}
