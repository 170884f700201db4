package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	flog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/reporting"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

func newTestServer(t *testing.T, opts Options) (*Server, *memory.Store) {
	t.Helper()
	return newTestServerWithLogger(t, opts, nil)
}

func newTestServerWithLogger(t *testing.T, opts Options, logger *flog.Logger) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New("Groceries", "Transport")
	users := cache.NewLRU[int64, core.User](16, time.Minute)
	srv := NewServer(":0", Deps{
		Auth:    auth.NewService(store, auth.NewTokenManager("http-test-secret", time.Hour), users),
		Ledger:  services.NewLedgerService(store, nil),
		Reports: reporting.NewService(store, reporting.WithClock(func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) })),
		Store:   store,
		Metrics: metrics.New(),
		Logger:  logger,
	}, opts)
	t.Cleanup(srv.limiter.Stop)
	return srv, store
}

func do(t *testing.T, srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		if strings.HasPrefix(body, "{") {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

// login signs a user up and returns a bearer token.
func login(t *testing.T, srv *Server, username string) string {
	t.Helper()
	body := `{"username":"` + username + `","password":"secret123"}`
	if rr := do(t, srv, http.MethodPost, "/auth/signup", body, ""); rr.Code != http.StatusCreated {
		t.Fatalf("signup %s status=%d body=%s", username, rr.Code, rr.Body.String())
	}
	rr := do(t, srv, http.MethodPost, "/auth/login", body, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s status=%d body=%s", username, rr.Code, rr.Body.String())
	}
	var sess sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.Token == "" {
		t.Fatalf("empty token")
	}
	return sess.Token
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", path)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s missing security headers", path)
		}
	}

	srv.store = failingPinger{}
	rr := do(t, srv, http.MethodGet, "/readyz", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"not_ready"`) {
		t.Fatalf("readyz body=%s", rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	do(t, srv, http.MethodGet, "/healthz", "", "")

	rr := do(t, srv, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `fintrack_http_requests_total{method="GET",route="/healthz",status="200"} 1`) {
		t.Fatalf("request counter missing:\n%s", rr.Body.String())
	}
}

func TestAuthFlow(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/auth/signup", "username=alice&password=secret123&email=a%40example.com", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status=%d body=%s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "secret123") || strings.Contains(rr.Body.String(), "password") {
		t.Fatalf("signup leaked credentials: %s", rr.Body.String())
	}

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		errMsg string
	}{
		{"duplicate username", "/auth/signup", `{"username":"alice","password":"another1"}`, http.StatusConflict, "username already exists"},
		{"short password", "/auth/signup", `{"username":"bob","password":"123"}`, http.StatusUnprocessableEntity, ""},
		{"blank username", "/auth/signup", `{"username":"  ","password":"secret123"}`, http.StatusUnprocessableEntity, ""},
		{"wrong password", "/auth/login", `{"username":"alice","password":"nope"}`, http.StatusUnauthorized, ""},
		{"unknown user", "/auth/login", `{"username":"carol","password":"secret123"}`, http.StatusUnauthorized, ""},
		{"malformed json", "/auth/login", `{"username":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, tt.path, tt.body, "")
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
			if tt.errMsg != "" && !strings.Contains(rr.Body.String(), tt.errMsg) {
				t.Fatalf("body=%s want %q", rr.Body.String(), tt.errMsg)
			}
		})
	}

	rr = do(t, srv, http.MethodPost, "/auth/login", `{"username":"alice","password":"secret123"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d", rr.Code)
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value == "" {
		t.Fatalf("session cookie not set: %+v", cookie)
	}

	if rr := do(t, srv, http.MethodGet, "/api/expenses", "", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/expenses", "", "garbage"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status=%d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
	req.AddCookie(cookie)
	withCookie := httptest.NewRecorder()
	srv.Handler.ServeHTTP(withCookie, req)
	if withCookie.Code != http.StatusOK || strings.TrimSpace(withCookie.Body.String()) != "[]" {
		t.Fatalf("cookie auth status=%d body=%s", withCookie.Code, withCookie.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	srv.Handler.ServeHTTP(out, req)
	if out.Code != http.StatusNoContent {
		t.Fatalf("logout status=%d", out.Code)
	}
	cleared := false
	for _, c := range out.Result().Cookies() {
		if c.Name == SessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("logout did not expire the cookie")
	}
}

func TestExpenseCRUD(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	alice := login(t, srv, "alice")
	bob := login(t, srv, "bob")

	rr := do(t, srv, http.MethodPost, "/api/expenses",
		`{"date":"2026-02-10","amount":12.5,"category":"Groceries","description":"weekly shop"}`, alice)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"amount":12.50`) {
		t.Fatalf("amount not rendered with two decimals: %s", rr.Body.String())
	}
	var created core.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = do(t, srv, http.MethodPost, "/api/expenses", "date=2026-03-01&amount=7%2C20&category=Transport", alice)
	if rr.Code != http.StatusCreated {
		t.Fatalf("form create status=%d body=%s", rr.Code, rr.Body.String())
	}

	invalid := []struct {
		name string
		body string
	}{
		{"negative amount", `{"amount":"-3","category":"Groceries"}`},
		{"missing amount", `{"category":"Groceries"}`},
		{"blank category", `{"amount":"3","category":" "}`},
		{"bad date", `{"date":"2026-02-30","amount":"3","category":"Groceries"}`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/expenses", tt.body, alice)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), `"error"`) {
				t.Fatalf("missing error body: %s", rr.Body.String())
			}
		})
	}

	rr = do(t, srv, http.MethodGet, "/api/expenses?month=2026-02", "", alice)
	var feb []core.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &feb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(feb) != 1 || feb[0].ID != created.ID {
		t.Fatalf("february filter = %+v", feb)
	}

	rr = do(t, srv, http.MethodGet, "/api/expenses", "", bob)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("bob sees alice's records: %s", rr.Body.String())
	}

	u, err := store.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	aliceID := u.ID

	path := "/api/expenses/" + strconv.FormatInt(created.ID, 10)
	if rr := do(t, srv, http.MethodPut, path, `{"amount":"99","category":"Groceries"}`, bob); rr.Code != http.StatusNoContent {
		t.Fatalf("foreign edit status=%d", rr.Code)
	}
	got, err := store.GetExpense(context.Background(), aliceID, created.ID)
	if err != nil || got.Amount.Cents != 1250 {
		t.Fatalf("foreign edit changed record: %+v %v", got, err)
	}

	if rr := do(t, srv, http.MethodPut, path, `{"amount":"15","category":"Groceries","description":"fixed"}`, alice); rr.Code != http.StatusNoContent {
		t.Fatalf("edit status=%d body=%s", rr.Code, rr.Body.String())
	}
	got, _ = store.GetExpense(context.Background(), aliceID, created.ID)
	if got.Amount.Cents != 1500 || got.Description != "fixed" || got.Date.String() != "2026-02-10" {
		t.Fatalf("edit result = %+v", got)
	}

	if rr := do(t, srv, http.MethodDelete, path, "", bob); rr.Code != http.StatusNoContent {
		t.Fatalf("foreign delete status=%d", rr.Code)
	}
	if _, err := store.GetExpense(context.Background(), aliceID, created.ID); err != nil {
		t.Fatalf("foreign delete removed record: %v", err)
	}
	if rr := do(t, srv, http.MethodDelete, path, "", alice); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/expenses/abc", "", alice); rr.Code != http.StatusNoContent {
		t.Fatalf("non-numeric delete status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/expenses?year=2026", "", alice)
	var left []core.Expense
	_ = json.Unmarshal(rr.Body.Bytes(), &left)
	if len(left) != 1 || left[0].Category != "Transport" {
		t.Fatalf("after delete = %+v", left)
	}
}

func TestCategoriesBudgetsRecurring(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	alice := login(t, srv, "alice")

	rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"  Books "}`, alice)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add category status=%d", rr.Code)
	}
	do(t, srv, http.MethodPost, "/api/categories", `{"name":"Books"}`, alice)
	do(t, srv, http.MethodPost, "/api/categories", `{"name":""}`, alice)

	rr = do(t, srv, http.MethodGet, "/api/categories", "", alice)
	var names []string
	if err := json.Unmarshal(rr.Body.Bytes(), &names); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(names, ",") != "Books,Groceries,Transport" {
		t.Fatalf("categories = %v", names)
	}

	if rr := do(t, srv, http.MethodPost, "/api/budgets", `{"month":"2026-02","amount":"500"}`, alice); rr.Code != http.StatusOK {
		t.Fatalf("budget status=%d body=%s", rr.Code, rr.Body.String())
	}
	do(t, srv, http.MethodPost, "/api/budgets", `{"month":"2026-02","amount":"650.5"}`, alice)
	do(t, srv, http.MethodPost, "/api/budgets", `{"month":"2026-03"}`, alice)
	if rr := do(t, srv, http.MethodPost, "/api/budgets", `{"month":"2026-2","amount":"5"}`, alice); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad month status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/budgets", "", alice)
	var budgets []core.Budget
	if err := json.Unmarshal(rr.Body.Bytes(), &budgets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(budgets) != 2 || budgets[0].Month.String() != "2026-03" || budgets[0].Amount.Cents != 0 || budgets[1].Amount.Cents != 65050 {
		t.Fatalf("budgets = %+v", budgets)
	}

	rr = do(t, srv, http.MethodPost, "/api/recurring",
		`{"amount":"9.99","category":"Subscriptions","description":"music","frequency":"monthly","start_date":"2026-01-05"}`, alice)
	if rr.Code != http.StatusCreated {
		t.Fatalf("recurring status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, http.MethodPost, "/api/recurring",
		`{"amount":"9.99","category":"Subscriptions","frequency":"hourly"}`, alice)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad frequency status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodPost, "/api/recurring",
		`{"amount":"1","category":"Rent","frequency":"yearly","start_date":"2026-05-01","end_date":"2026-01-01"}`, alice)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("end before start status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/recurring", "", alice)
	if !strings.Contains(rr.Body.String(), `"frequency":"monthly"`) || !strings.Contains(rr.Body.String(), `"start_date":"2026-01-05"`) {
		t.Fatalf("recurring list = %s", rr.Body.String())
	}
}

func TestReports(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	alice := login(t, srv, "alice")

	for _, body := range []string{
		`{"date":"2026-01-10","amount":"100","category":"Groceries"}`,
		`{"date":"2026-02-03","amount":"40.25","category":"Groceries"}`,
		`{"date":"2026-02-20","amount":"10","category":"Transport","description":"bus, monthly"}`,
		`{"date":"2025-12-31","amount":"5","category":"Transport"}`,
	} {
		if rr := do(t, srv, http.MethodPost, "/api/expenses", body, alice); rr.Code != http.StatusCreated {
			t.Fatalf("seed status=%d body=%s", rr.Code, rr.Body.String())
		}
	}
	do(t, srv, http.MethodPost, "/api/budgets", `{"month":"2026-02","amount":"60"}`, alice)

	rr := do(t, srv, http.MethodGet, "/api/overview?month=2026-02", "", alice)
	var sum struct {
		Period     string                `json:"period"`
		Total      json.Number           `json:"total"`
		YearToDate json.Number           `json:"year_to_date"`
		Budget     *json.Number          `json:"budget"`
		Expenses   []core.Expense        `json:"expenses"`
		Breakdown  []core.CategoryAmount `json:"breakdown"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if sum.Period != "2026-02" || sum.Total.String() != "50.25" || sum.YearToDate.String() != "150.25" {
		t.Fatalf("overview = %+v", sum)
	}
	if sum.Budget == nil || sum.Budget.String() != "60.00" || len(sum.Expenses) != 2 {
		t.Fatalf("overview budget/expenses = %+v", sum)
	}

	rr = do(t, srv, http.MethodGet, "/api/summary", "", alice)
	if !strings.Contains(rr.Body.String(), `"Groceries":140.25`) || !strings.Contains(rr.Body.String(), `"Transport":15.00`) {
		t.Fatalf("summary = %s", rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/monthly?year=2026", "", alice)
	var series []core.MonthTotal
	if err := json.Unmarshal(rr.Body.Bytes(), &series); err != nil {
		t.Fatalf("decode monthly: %v", err)
	}
	if len(series) != 2 || series[0].Month.String() != "2026-01" || series[1].Total.Cents != 5025 {
		t.Fatalf("monthly = %+v", series)
	}

	rr = do(t, srv, http.MethodGet, "/api/budget-vs-actual", "", alice)
	var cmp []core.BudgetComparison
	if err := json.Unmarshal(rr.Body.Bytes(), &cmp); err != nil {
		t.Fatalf("decode budget-vs-actual: %v", err)
	}
	if len(cmp) != 6 {
		t.Fatalf("window length = %d", len(cmp))
	}

	rr = do(t, srv, http.MethodGet, "/export?month=2026-02", "", alice)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="expenses.csv"` {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	want := "date,category,description,amount\n" +
		"2026-02-20,Transport,\"bus, monthly\",10.00\n" +
		"2026-02-03,Groceries,,40.25\n"
	if rr.Body.String() != want {
		t.Fatalf("csv =\n%s", rr.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/auth/login", `{"username":"x","password":"y"}`, ""); rr.Code != http.StatusUnauthorized {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/auth/login", `{"username":"x","password":"y"}`, "")
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("limited status=%d retry=%q", rr.Code, rr.Header().Get("Retry-After"))
	}
	if rr := do(t, srv, http.MethodGet, "/healthz", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("health is rate limited: %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, Options{CORSAllowedOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/expenses", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allow origin = %q", got)
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("credentials not allowed")
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/nope", "", "")
	if rr.Code != http.StatusNotFound || !strings.Contains(rr.Body.String(), `"error"`) {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestAuthAndExportLogLines(t *testing.T) {
	var buf bytes.Buffer
	logger := flog.New(flog.Config{Format: "json", Output: &buf})
	srv, _ := newTestServerWithLogger(t, Options{}, logger)
	token := login(t, srv, "alice")
	if rr := do(t, srv, http.MethodGet, "/export", "", token); rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}

	records := map[string]map[string]any{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log line %q: %v", line, err)
		}
		if msg, ok := rec["msg"].(string); ok {
			records[msg] = rec
		}
	}

	tests := []struct {
		msg, component, operation string
	}{
		{"User signed up", flog.ComponentAuth, flog.OpCreate},
		{"Session started", flog.ComponentAuth, flog.OpLogin},
		{"CSV export written", flog.ComponentReporting, flog.OpReport},
	}
	for _, tt := range tests {
		rec, ok := records[tt.msg]
		if !ok {
			t.Errorf("no %q line in:\n%s", tt.msg, buf.String())
			continue
		}
		if rec[flog.FieldComponent] != tt.component || rec[flog.FieldOperation] != tt.operation {
			t.Errorf("%q: component=%v operation=%v", tt.msg, rec[flog.FieldComponent], rec[flog.FieldOperation])
		}
		if _, ok := rec[flog.FieldUserID]; !ok {
			t.Errorf("%q has no %s", tt.msg, flog.FieldUserID)
		}
	}
}
