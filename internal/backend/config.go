package backend

import (
	"fmt"

	"rbudget/internal/config"
	"rbudget/internal/scenario/google"
	"rbudget/internal/scenario/objectstore"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (valid: %v)", appConfig.DataBackend, GetBackendTypes())
	}

	return Config{
		Type:          backendType,
		DataDirectory: appConfig.ScenarioDir,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		SeedSample:    appConfig.SeedSample,
		Sheets: google.Config{
			SpreadsheetID:     appConfig.GoogleSpreadsheetID,
			AccountsSheet:     appConfig.GoogleAccountsSheetName,
			TransactionsSheet: appConfig.GoogleTransactionsSheetName,
			CredentialsFile:   appConfig.GoogleCredentialsFile,
			CredentialsJSON:   appConfig.GoogleCredentialsJSON,
		},
		S3: objectstore.Config{
			Bucket:          appConfig.S3Bucket,
			Prefix:          appConfig.S3Prefix,
			Region:          appConfig.S3Region,
			Endpoint:        appConfig.S3Endpoint,
			AccessKeyID:     appConfig.S3AccessKeyID,
			SecretAccessKey: appConfig.S3SecretAccessKey,
			UsePathStyle:    appConfig.S3UsePathStyle,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case S3Backend:
		if c.S3.Bucket == "" {
			return fmt.Errorf("bucket is required for s3 backend")
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, SheetsBackend, S3Backend}
}
