package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"rbudget/internal/core"
	"rbudget/internal/scenario"
	"rbudget/internal/simulation"
)

// DefaultScenario is the name the sample data is stored under.
const DefaultScenario = "default"

// SampleStart is the start date the sample data was written for.
var SampleStart = core.NewDate(2023, 2, 23)

// Ensure interface conformance
var (
	_ scenario.Loader = (*Store)(nil)
	_ scenario.Lister = (*Store)(nil)
	_ scenario.Writer = (*Store)(nil)
)

type Store struct {
	mu        sync.Mutex
	scenarios map[string]scenario.Definition
}

func New(scenarios map[string]scenario.Definition) *Store {
	s := &Store{scenarios: make(map[string]scenario.Definition, len(scenarios))}
	for name, def := range scenarios {
		s.scenarios[name] = cloneDefinition(def)
	}
	return s
}

// NewSample returns a store holding only the sample scenario.
func NewSample() *Store {
	return New(map[string]scenario.Definition{DefaultScenario: Sample()})
}

// NewFromFiles loads every <name>.json, <name>.yaml and <name>.yml scenario
// document in base. When the directory holds none, the sample scenario is
// used instead.
func NewFromFiles(base string) (*Store, error) {
	var paths []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(base, pattern))
		if err != nil {
			return nil, fmt.Errorf("list scenario files: %w", err)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return NewSample(), nil
	}

	scenarios := make(map[string]scenario.Definition, len(paths))
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if _, dup := scenarios[name]; dup {
			return nil, fmt.Errorf("scenario %q defined more than once in %s", name, base)
		}
		def, err := readFile(path)
		if err != nil {
			return nil, err
		}
		scenarios[name] = def
	}
	return New(scenarios), nil
}

func readFile(path string) (scenario.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return scenario.Definition{}, fmt.Errorf("open scenario file: %w", err)
	}
	defer f.Close()

	decode := scenario.DecodeJSON
	if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
		decode = scenario.DecodeYAML
	}
	def, err := decode(f)
	if err != nil {
		return scenario.Definition{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return def, nil
}

// Load returns a copy of the named scenario.
func (s *Store) Load(_ context.Context, name string) (scenario.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.scenarios[name]
	if !ok {
		return scenario.Definition{}, fmt.Errorf("%w: %s", scenario.ErrNotFound, name)
	}
	return cloneDefinition(def), nil
}

// Scenarios returns the stored scenario names in sorted order.
func (s *Store) Scenarios(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.scenarios))
	for name := range s.scenarios {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Save stores a copy of def under name.
func (s *Store) Save(_ context.Context, name string, def scenario.Definition) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty scenario name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios[name] = cloneDefinition(def)
	return nil
}

func cloneDefinition(def scenario.Definition) scenario.Definition {
	accounts := make(simulation.Accounts, len(def.Accounts))
	for id, spec := range def.Accounts {
		accounts[id] = spec
	}
	return scenario.Definition{
		Accounts:     accounts,
		Transactions: slices.Clone(def.Transactions),
	}
}
