// Package http serves projections over a JSON API.
//
// This file holds the helpers that turn query strings and bodies into
// validated values.
package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"rbudget/internal/core"
	"rbudget/internal/scenario"
)

var (
	ErrInvalidParam = errors.New("invalid parameter")

	scenarioName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,99}$`)
)

// ProjectionParams holds the query parameters of a projection request.
type ProjectionParams struct {
	Start   core.Date
	Days    int
	History bool
}

// ParseProjectionParams reads start, days and history. A missing start means
// today, a missing days means defaultDays and history is on unless set false.
func ParseProjectionParams(query url.Values, today core.Date, defaultDays int) (ProjectionParams, error) {
	params := ProjectionParams{Start: today, Days: defaultDays, History: true}

	if v := sanitizeInput(query.Get("start")); v != "" {
		start, err := core.ParseDate(v)
		if err != nil {
			return ProjectionParams{}, fmt.Errorf("%w: start %q", ErrInvalidParam, v)
		}
		params.Start = start
	}
	if v := sanitizeInput(query.Get("days")); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return ProjectionParams{}, fmt.Errorf("%w: days %q", ErrInvalidParam, v)
		}
		params.Days = days
	}
	if v := sanitizeInput(query.Get("history")); v != "" {
		history, err := strconv.ParseBool(v)
		if err != nil {
			return ProjectionParams{}, fmt.Errorf("%w: history %q", ErrInvalidParam, v)
		}
		params.History = history
	}
	return params, nil
}

// ParseScenarioNames returns the repeated scenario parameter, also accepting
// a comma separated list. Names must be distinct.
func ParseScenarioNames(query url.Values, limit int) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	for _, raw := range query["scenario"] {
		for _, name := range strings.Split(raw, ",") {
			name = sanitizeInput(name)
			if name == "" {
				continue
			}
			if !ValidScenarioName(name) {
				return nil, fmt.Errorf("%w: scenario %q", ErrInvalidParam, name)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w: scenario %q listed twice", ErrInvalidParam, name)
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	switch {
	case len(names) == 0:
		return nil, fmt.Errorf("%w: at least one scenario is required", ErrInvalidParam)
	case limit > 0 && len(names) > limit:
		return nil, fmt.Errorf("%w: at most %d scenarios can be compared", ErrInvalidParam, limit)
	}
	return names, nil
}

// ValidScenarioName reports whether name can be used as a storage key.
func ValidScenarioName(name string) bool {
	return scenarioName.MatchString(name)
}

// DecodeScenarioBody reads a scenario document, as YAML when the content type
// says so and as JSON otherwise.
func DecodeScenarioBody(r *http.Request, limit int64) (scenario.Definition, error) {
	var body io.Reader = r.Body
	if limit > 0 {
		body = io.LimitReader(r.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return scenario.Definition{}, fmt.Errorf("read body: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return scenario.Definition{}, fmt.Errorf("%w: body larger than %d bytes", ErrInvalidParam, limit)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return scenario.DecodeYAML(bytes.NewReader(data))
	default:
		return scenario.DecodeJSON(bytes.NewReader(data))
	}
}

// sanitizeInput trims whitespace and drops control characters.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
