package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"rbudget/internal/core"
	"rbudget/internal/simulation"
)

// Supported message encodings.
const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

// ProjectionRequest asks a worker to project a scenario. An empty Start
// means the worker's current date; zero Days means the worker's default.
type ProjectionRequest struct {
	ID        string    `json:"id" msgpack:"id"`
	Scenario  string    `json:"scenario" msgpack:"scenario"`
	Start     string    `json:"start,omitempty" msgpack:"start,omitempty"`
	Days      int       `json:"days,omitempty" msgpack:"days,omitempty"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`

	// ReplyTo is the queue named by the delivery, if any. It travels in the
	// message properties, not the body.
	ReplyTo string `json:"-" msgpack:"-"`
}

// NewProjectionRequest creates a request with a fresh identifier.
func NewProjectionRequest(scenario string, start core.Date, days int) *ProjectionRequest {
	req := &ProjectionRequest{
		ID:        uuid.NewString(),
		Scenario:  scenario,
		Days:      days,
		Timestamp: time.Now().UTC(),
	}
	if !start.IsEmpty() {
		req.Start = start.String()
	}
	return req
}

// AccountValue is one account's value on one day, money as a decimal string.
type AccountValue struct {
	ID    uint64 `json:"id" msgpack:"id"`
	Name  string `json:"name,omitempty" msgpack:"name,omitempty"`
	Value string `json:"value" msgpack:"value"`
}

// DayValues is every account's value at the end of one projected day.
type DayValues struct {
	Date   string         `json:"date" msgpack:"date"`
	Values []AccountValue `json:"values" msgpack:"values"`
}

// ProjectionResult answers a ProjectionRequest. Error is set instead of Days
// when the projection could not be computed.
type ProjectionResult struct {
	RequestID string      `json:"request_id" msgpack:"request_id"`
	Scenario  string      `json:"scenario" msgpack:"scenario"`
	Start     string      `json:"start" msgpack:"start"`
	Days      []DayValues `json:"days,omitempty" msgpack:"days,omitempty"`
	Error     string      `json:"error,omitempty" msgpack:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp" msgpack:"timestamp"`
}

// NewProjectionResult converts projected days into a result message.
func NewProjectionResult(requestID, scenario string, start core.Date, accounts simulation.Accounts, days []simulation.Day) *ProjectionResult {
	res := &ProjectionResult{
		RequestID: requestID,
		Scenario:  scenario,
		Start:     start.String(),
		Days:      make([]DayValues, 0, len(days)),
		Timestamp: time.Now().UTC(),
	}
	for _, d := range days {
		dv := DayValues{Date: d.Date.String(), Values: make([]AccountValue, 0, len(d.Values))}
		for _, id := range d.Values.IDs() {
			dv.Values = append(dv.Values, AccountValue{
				ID:    id.ID,
				Name:  accounts[id].Name,
				Value: d.Values[id].Amount.StringFixed(2),
			})
		}
		res.Days = append(res.Days, dv)
	}
	return res
}

// NewErrorResult reports a failed request.
func NewErrorResult(req *ProjectionRequest, err error) *ProjectionResult {
	return &ProjectionResult{
		RequestID: req.ID,
		Scenario:  req.Scenario,
		Start:     req.Start,
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// Snapshots converts the result back into simulation days.
func (r *ProjectionResult) Snapshots() ([]simulation.Day, error) {
	days := make([]simulation.Day, 0, len(r.Days))
	for _, dv := range r.Days {
		date, err := core.ParseDate(dv.Date)
		if err != nil {
			return nil, err
		}
		snap := make(simulation.Snapshot, len(dv.Values))
		for _, v := range dv.Values {
			m, err := core.ParseMoney(v.Value)
			if err != nil {
				return nil, fmt.Errorf("day %s account %d: %w", dv.Date, v.ID, err)
			}
			snap[core.AccountID{ID: v.ID}] = m
		}
		days = append(days, simulation.Day{Date: date, Values: snap})
	}
	return days, nil
}

// Marshal encodes v for the given content type. Anything other than msgpack
// is encoded as JSON.
func Marshal(contentType string, v any) ([]byte, error) {
	if contentType == ContentTypeMsgpack {
		return msgpack.Marshal(v)
	}
	return json.Marshal(v)
}

// Unmarshal decodes data written by Marshal with the same content type.
func Unmarshal(contentType string, data []byte, v any) error {
	if contentType == ContentTypeMsgpack {
		return msgpack.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}
