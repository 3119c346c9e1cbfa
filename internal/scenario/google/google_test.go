package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goption "google.golang.org/api/option"

	"rbudget/internal/core"
	"rbudget/internal/scenario"
)

func fakeSheets(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var values [][]any
		switch {
		case strings.Contains(r.URL.Path, "Accounts!A2:A"):
			values = [][]any{{"default"}, {"default"}, {"plan"}}
		case strings.Contains(r.URL.Path, "Accounts"):
			values = [][]any{
				{"Scenario", "ID", "Name", "Initial", "Interest", "OutCharge", "InCharge"},
				{"default", 0, "Bank", "1000", "", "", ""},
				{"default", 1, "Savings", "500", "0.03", "", ""},
				{"plan", 0, "Bank", "10"},
			}
		case strings.Contains(r.URL.Path, "Transactions"):
			values = [][]any{
				{"Scenario", "Value", "Source", "Sink", "Start", "Every", "End"},
				{"default", "500", 0, 1, "2023-02-24"},
			}
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"values": values})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	srv := fakeSheets(t)
	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"}, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestResolveCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	b, err := resolveCredentials(Config{CredentialsJSON: ` {"type":"service_account"} `, CredentialsFile: "/nope"})
	if err != nil || string(b) != `{"type":"service_account"}` {
		t.Fatalf("inline credentials: %q %v", b, err)
	}
	if _, err := resolveCredentials(Config{CredentialsFile: "/definitely/missing.json"}); err == nil {
		t.Fatal("expected error reading missing file")
	}
	if _, err := resolveCredentials(Config{}); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientLoad(t *testing.T) {
	c := newTestClient(t)

	def, err := c.Load(context.Background(), "default")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(def.Accounts) != 2 || len(def.Transactions) != 1 {
		t.Fatalf("unexpected definition: %+v", def)
	}

	sim, err := def.Build(core.NewDate(2023, 2, 23))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	days := sim.Take(2)
	if !days[1].Values[core.AccountID{ID: 0}].Equal(core.MustParseMoney("500")) {
		t.Fatalf("bank after transfer = %v", days[1].Values[core.AccountID{ID: 0}])
	}

	if _, err := c.Load(context.Background(), "missing"); !errors.Is(err, scenario.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClientScenarios(t *testing.T) {
	c := newTestClient(t)
	names, err := c.Scenarios(context.Background())
	if err != nil {
		t.Fatalf("Scenarios: %v", err)
	}
	if len(names) != 2 || names[0] != "default" || names[1] != "plan" {
		t.Fatalf("unexpected names: %v", names)
	}
}
