package http

import (
	"strconv"

	"rbudget/internal/core"
	"rbudget/internal/report"
	"rbudget/internal/services"
	"rbudget/internal/simulation"
)

type (
	stateView struct {
		Date  string     `json:"date"`
		Value core.Money `json:"value"`
	}

	summaryView struct {
		ID      uint64     `json:"id"`
		Name    string     `json:"name"`
		Initial core.Money `json:"initial"`
		Final   core.Money `json:"final"`
		Change  core.Money `json:"change"`
		Min     stateView  `json:"min"`
		Max     stateView  `json:"max"`
		Mean    float64    `json:"mean"`
		StdDev  float64    `json:"std_dev"`
	}

	// dayView keys values by the decimal account id.
	dayView struct {
		Date   string                `json:"date"`
		Values map[string]core.Money `json:"values"`
	}

	projectionView struct {
		Scenario string        `json:"scenario"`
		Start    string        `json:"start"`
		Days     int           `json:"days"`
		Summary  []summaryView `json:"summary"`
		History  []dayView     `json:"history,omitempty"`
	}

	finalView struct {
		ID    uint64     `json:"id"`
		Name  string     `json:"name"`
		Value core.Money `json:"value"`
	}

	comparisonView struct {
		Scenario string      `json:"scenario"`
		Total    core.Money  `json:"total"`
		Final    []finalView `json:"final"`
	}

	compareView struct {
		Start     string           `json:"start"`
		Days      int              `json:"days"`
		Scenarios []comparisonView `json:"scenarios"`
	}
)

func newProjectionView(p *services.Projection, history bool) projectionView {
	v := projectionView{
		Scenario: p.Scenario,
		Start:    p.Start.String(),
		Days:     len(p.Days),
		Summary:  make([]summaryView, 0, len(p.Summary)),
	}
	for _, s := range p.Summary {
		stats := report.Stats(simulation.History(p.Days, s.ID))
		v.Summary = append(v.Summary, summaryView{
			ID:      s.ID.ID,
			Name:    s.Name,
			Initial: s.Initial,
			Final:   s.Final,
			Change:  s.Final.Sub(s.Initial),
			Min:     stateView{Date: s.Min.Date.String(), Value: s.Min.Value},
			Max:     stateView{Date: s.Max.Date.String(), Value: s.Max.Value},
			Mean:    stats.Mean,
			StdDev:  stats.StdDev,
		})
	}
	if history {
		v.History = make([]dayView, 0, len(p.Days))
		for _, d := range p.Days {
			values := make(map[string]core.Money, len(d.Values))
			for id, m := range d.Values {
				values[strconv.FormatUint(id.ID, 10)] = m
			}
			v.History = append(v.History, dayView{Date: d.Date.String(), Values: values})
		}
	}
	return v
}

func newComparisonView(p *services.Projection) comparisonView {
	v := comparisonView{Scenario: p.Scenario, Total: core.ZeroMoney}
	for _, s := range p.Summary {
		v.Final = append(v.Final, finalView{ID: s.ID.ID, Name: s.Name, Value: s.Final})
		v.Total = v.Total.Add(s.Final)
	}
	return v
}
