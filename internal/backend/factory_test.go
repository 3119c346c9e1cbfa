package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbudget/internal/config"
	"rbudget/internal/scenario/memory"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	app := &config.Config{DataBackend: "postgres"}
	_, err = FromAppConfig(app)
	assert.Error(t, err)

	app = &config.Config{
		DataBackend:             "s3",
		S3Bucket:                "budgets",
		S3Prefix:                "p/",
		GoogleAccountsSheetName: "Konten",
	}
	cfg, err := FromAppConfig(app)
	require.NoError(t, err)
	assert.Equal(t, S3Backend, cfg.Type)
	assert.Equal(t, "budgets", cfg.S3.Bucket)
	assert.Equal(t, "Konten", cfg.Sheets.AccountsSheet)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{Type: "nope"}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: SheetsBackend}.Validate())
	assert.Error(t, Config{Type: S3Backend}.Validate())
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Len(t, GetBackendTypes(), 4)
}

func TestCreateMemoryBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
	require.NoError(t, err)
	names, err := res.Source.Scenarios(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{memory.DefaultScenario}, names)
	_, writable := res.Writer()
	assert.True(t, writable)
	assert.NoError(t, res.Close())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "solo.yaml"), []byte("accounts:\n  - id: 0\n    initial: 1\n"), 0o644))
	res, err = f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: dir})
	require.NoError(t, err)
	names, _ = res.Source.Scenarios(ctx)
	assert.Equal(t, []string{"solo"}, names)
}

func TestCreateSQLiteBackendSeeds(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "rbudget.db")

	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path, SeedSample: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })

	def, err := res.Source.Load(ctx, memory.DefaultScenario)
	require.NoError(t, err)
	assert.Len(t, def.Accounts, 4)
	assert.Len(t, def.Transactions, 2)
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SheetsBackend})
	assert.Error(t, err)
}
