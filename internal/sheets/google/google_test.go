package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"fintrack/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the handful of Sheets v4 endpoints the client uses.
type fakeSheets struct {
	mu      sync.Mutex
	tabs    map[string][][]interface{}
	clears  int
	updates int
	adds    int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	tabOf := func(suffix string) string {
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		rng = strings.TrimSuffix(rng, suffix)
		return strings.SplitN(rng, "!", 2)[0]
	}

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.tabs[rq.AddSheet.Properties.Title] = nil
				f.adds++
			}
		}
		writeBody(w, map[string]any{})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.tabs[tabOf(":clear")] = nil
		f.clears++
		writeBody(w, map[string]any{})
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.tabs[tabOf("")] = vr.Values
		f.updates++
		writeBody(w, map[string]any{})
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		writeBody(w, map[string]any{"values": f.tabs[tabOf("")]})
	case r.Method == http.MethodGet:
		var sheets []map[string]any
		for title := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title}})
		}
		writeBody(w, map[string]any{"sheets": sheets})
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func writeBody(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{tabs: map[string][][]interface{}{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewWithOptions(context.Background(),
		Config{SpreadsheetID: "sheet-id", SheetName: "Ledger"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	return c, fake
}

func TestNewWithOptionsRequiresSpreadsheet(t *testing.T) {
	_, err := NewWithOptions(context.Background(), Config{}, goption.WithoutAuthentication())
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestNewMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("err = %v", err)
	}
}

func TestClientReplaceRows(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	rows := []core.ExportRow{
		{Date: core.NewDate(2026, 1, 4), Category: "Shopping", Amount: core.Money{Cents: 12000}},
		{Date: core.NewDate(2026, 1, 1), Category: "Food", Description: "Lunch", Amount: core.Money{Cents: 1250}},
	}

	if err := c.ReplaceRows(ctx, 3, rows); err != nil {
		t.Fatalf("ReplaceRows: %v", err)
	}
	if fake.adds != 1 || fake.updates != 1 {
		t.Fatalf("adds=%d updates=%d", fake.adds, fake.updates)
	}
	if got := len(fake.tabs["Ledger-3"]); got != 3 {
		t.Fatalf("tab has %d lines, want 3", got)
	}

	got, err := c.ReadRows(ctx, 3)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(got) != 2 || got[1].Description != "Lunch" || got[0].Amount.Cents != 12000 {
		t.Fatalf("ReadRows = %+v", got)
	}

	// Same rows again: tab exists and content matches, so nothing is written.
	if err := c.ReplaceRows(ctx, 3, rows); err != nil {
		t.Fatalf("ReplaceRows again: %v", err)
	}
	if fake.adds != 1 || fake.updates != 1 || fake.clears != 1 {
		t.Fatalf("unchanged rows rewrote sheet: adds=%d updates=%d clears=%d", fake.adds, fake.updates, fake.clears)
	}

	if err := c.ReplaceRows(ctx, 3, rows[:1]); err != nil {
		t.Fatalf("ReplaceRows shrink: %v", err)
	}
	if got := len(fake.tabs["Ledger-3"]); got != 2 {
		t.Fatalf("tab has %d lines after shrink, want 2", got)
	}
}
