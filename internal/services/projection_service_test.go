package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbudget/internal/core"
	"rbudget/internal/scenario"
	"rbudget/internal/scenario/memory"
)

type countingLoader struct {
	inner scenario.Loader
	loads atomic.Int32
}

func (l *countingLoader) Load(ctx context.Context, name string) (scenario.Definition, error) {
	l.loads.Add(1)
	return l.inner.Load(ctx, name)
}

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewSample()
	plan := memory.Sample()
	plan.Transactions = plan.Transactions[1:]
	require.NoError(t, store.Save(context.Background(), "salary-only", plan))
	return store
}

func TestProjectSample(t *testing.T) {
	svc := NewProjectionService(newStore(t), DefaultProjectionServiceConfig(), nil)

	p, err := svc.Project(context.Background(), memory.DefaultScenario, memory.SampleStart, 5)
	require.NoError(t, err)

	require.Len(t, p.Days, 5)
	assert.Equal(t, "2023-02-24", p.Days[0].Date.String())
	assert.Equal(t, "2023-02-28", p.Days[4].Date.String())
	assert.True(t, p.Days[2].Values[memory.SavingsID].Equal(core.MustParseMoney("1000.16")))
	assert.True(t, p.Days[2].Values[memory.BankID].Equal(core.MustParseMoney("2000")))

	require.Len(t, p.Summary, 4)
	bank := p.Summary[0]
	assert.Equal(t, "Bank", bank.Name)
	assert.True(t, bank.Max.Value.Equal(core.MustParseMoney("2500")))
	assert.Equal(t, "2023-02-25", bank.Max.Date.String())
}

func TestProjectUsesCache(t *testing.T) {
	loader := &countingLoader{inner: newStore(t)}
	svc := NewProjectionService(loader, DefaultProjectionServiceConfig(), nil)
	ctx := context.Background()

	a, err := svc.Project(ctx, memory.DefaultScenario, memory.SampleStart, 5)
	require.NoError(t, err)
	b, err := svc.Project(ctx, memory.DefaultScenario, memory.SampleStart, 5)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, int32(1), loader.loads.Load())

	_, err = svc.Project(ctx, memory.DefaultScenario, memory.SampleStart, 6)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.loads.Load())

	assert.Equal(t, 2, svc.Invalidate(memory.DefaultScenario))
	_, err = svc.Project(ctx, memory.DefaultScenario, memory.SampleStart, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(3), loader.loads.Load())
}

func TestProjectErrors(t *testing.T) {
	store := newStore(t)
	broken := memory.Sample()
	broken.Transactions[0].Sink = broken.Transactions[0].Source
	require.NoError(t, store.Save(context.Background(), "broken", broken))

	svc := NewProjectionService(store, DefaultProjectionServiceConfig(), nil)
	ctx := context.Background()

	_, err := svc.Project(ctx, memory.DefaultScenario, memory.SampleStart, 0)
	assert.ErrorIs(t, err, ErrInvalidHorizon)

	_, err = svc.Project(ctx, memory.DefaultScenario, memory.SampleStart, MaxHorizon+1)
	assert.ErrorIs(t, err, ErrInvalidHorizon)

	_, err = svc.Project(ctx, "nope", memory.SampleStart, 5)
	assert.ErrorIs(t, err, scenario.ErrNotFound)

	_, err = svc.Project(ctx, "broken", memory.SampleStart, 5)
	assert.ErrorIs(t, err, core.ErrDuplicateAccountID)
	var txErr *core.TransactionError
	assert.True(t, errors.As(err, &txErr))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.Project(cancelled, memory.DefaultScenario, memory.SampleStart, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompare(t *testing.T) {
	svc := NewProjectionService(newStore(t), ProjectionServiceConfig{CacheSize: 8, CacheTTL: 0, MaxConcurrent: 2}, nil)
	ctx := context.Background()

	ps, err := svc.Compare(ctx, []string{"salary-only", memory.DefaultScenario}, memory.SampleStart, 3)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "salary-only", ps[0].Scenario)
	assert.Equal(t, memory.DefaultScenario, ps[1].Scenario)

	// Without the transfer Savings only earns interest.
	assert.True(t, ps[0].Days[2].Values[memory.SavingsID].Equal(core.MustParseMoney("500.12")))
	assert.True(t, ps[1].Days[2].Values[memory.SavingsID].Equal(core.MustParseMoney("1000.16")))

	_, err = svc.Compare(ctx, []string{memory.DefaultScenario, "nope"}, memory.SampleStart, 3)
	assert.ErrorIs(t, err, scenario.ErrNotFound)
}

func TestProjectConcurrentCallers(t *testing.T) {
	svc := NewProjectionService(newStore(t), DefaultProjectionServiceConfig(), nil)
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := svc.Project(context.Background(), memory.DefaultScenario, memory.SampleStart, 30)
			if assert.NoError(t, err) {
				assert.Len(t, p.Days, 30)
			}
		}()
	}
	wg.Wait()
}

func TestScenarios(t *testing.T) {
	svc := NewProjectionService(newStore(t), DefaultProjectionServiceConfig(), nil)
	names, err := svc.Scenarios(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{memory.DefaultScenario, "salary-only"}, names)

	loaderOnly := NewProjectionService(&countingLoader{inner: memory.NewSample()}, DefaultProjectionServiceConfig(), nil)
	_, err = loaderOnly.Scenarios(context.Background())
	assert.ErrorIs(t, err, ErrNotListable)
}
