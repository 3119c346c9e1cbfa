package log

import "time"

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldErrorType = "error_type"
	FieldDuration  = "duration_ms"
	FieldScenario  = "scenario"
	FieldStart     = "start"
	FieldDays      = "days"
	FieldAccount   = "account"
	FieldBackend   = "backend"
	FieldQueue     = "queue"
	FieldCacheHit  = "cache_hit"
)

// Component names
const (
	ComponentApp        = "app"
	ComponentProjection = "projection"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentCache      = "cache"
	ComponentBackend    = "backend"
	ComponentReport     = "report"
	ComponentHTTP       = "http"
)

// Operation names
const (
	OpLoad     = "load"
	OpSave     = "save"
	OpList     = "list"
	OpProject  = "project"
	OpCompare  = "compare"
	OpMigrate  = "migrate"
	OpConsume  = "consume"
	OpPublish  = "publish"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// Error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields is a builder for structured log fields.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

// WithError adds the error text and its category. A nil err is ignored.
func (f LogFields) WithError(err error, errorType string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = errorType
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithProjection adds the scenario name, start date and horizon.
func (f LogFields) WithProjection(scenario, start string, days int) LogFields {
	f[FieldScenario] = scenario
	f[FieldStart] = start
	f[FieldDays] = days
	return f
}

func (f LogFields) WithDuration(d time.Duration) LogFields {
	f[FieldDuration] = d.Milliseconds()
	return f
}

// ToSlice converts LogFields to key/value pairs for slog.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
