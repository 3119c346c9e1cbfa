// Package scenario defines where simulation specifications come from.
package scenario

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a named scenario does not exist.
var ErrNotFound = errors.New("scenario not found")

// Ports for outbound adapters.
type (
	// Loader reads a scenario definition by name.
	Loader interface {
		Load(ctx context.Context, name string) (Definition, error)
	}

	// Lister returns the names of the available scenarios.
	Lister interface {
		Scenarios(ctx context.Context) ([]string, error)
	}

	// Writer stores a scenario definition, replacing any previous one with
	// the same name.
	Writer interface {
		Save(ctx context.Context, name string, def Definition) error
	}
)
