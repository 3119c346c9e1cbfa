package simulation

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"rbudget/internal/core"
)

// Snapshot maps accounts to their value on one simulated date.
type Snapshot map[core.AccountID]core.Money

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	return maps.Clone(s)
}

// IDs returns the account identifiers in ascending order.
func (s Snapshot) IDs() []core.AccountID {
	ids := slices.Collect(maps.Keys(s))
	sortIDs(ids)
	return ids
}

// Day is one emitted step: the values at the start of Date.
type Day struct {
	Date   core.Date
	Values Snapshot
}

// Iterator steps a Simulation forward. It is not safe for concurrent use;
// create one iterator per goroutine.
type Iterator struct {
	sim    *Simulation
	values Snapshot
	date   core.Date
}

// Date returns the date whose transactions the next step applies.
func (it *Iterator) Date() core.Date {
	return it.date
}

// Next simulates the current date and returns the resulting values together
// with the following date. The returned snapshot is a copy.
func (it *Iterator) Next() (Snapshot, core.Date) {
	for _, t := range it.sim.transactions {
		if !t.Occurs(it.date) {
			continue
		}
		source := it.mustAccount(t.Source)
		it.values[t.Source] = source.Source(it.values[t.Source], t.Value)

		sink := it.mustAccount(t.Sink)
		it.values[t.Sink] = sink.Sink(it.values[t.Sink], t.Value)
	}

	for id, spec := range it.sim.accounts {
		it.values[id] = spec.Update(it.values[id])
	}

	it.date = it.date.AddDays(1)

	return it.values.Clone(), it.date
}

func (it *Iterator) mustAccount(id core.AccountID) core.AccountSpec {
	spec, ok := it.sim.accounts[id]
	if !ok {
		panic(fmt.Sprintf("simulation: transaction references unknown account %s", id))
	}
	return spec
}

func sortIDs(ids []core.AccountID) {
	slices.SortFunc(ids, func(a, b core.AccountID) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
