package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID string
	// SheetName is the tab prefix; each user gets "<SheetName>-<userID>".
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.Mirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when cfg names no credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	creds, err := credentialsJSON(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, cfg,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()),
	)
}

// NewWithOptions builds the client from explicit API options.
func NewWithOptions(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = "Expenses"
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: id, sheetName: name}, nil
}

func credentialsJSON(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account file", "path", file, "size", len(b))
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API
// with connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// ReplaceRows clears the user's tab and writes the header plus rows.
// Nothing is written when the tab already holds exactly these rows.
func (c *Client) ReplaceRows(ctx context.Context, userID int64, rows []core.ExportRow) error {
	tab := tabName(c.sheetName, userID)
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	current, err := c.ReadRows(ctx, userID)
	if err == nil && ports.SameRows(current, rows) {
		slog.DebugContext(ctx, "Sheet already up to date", "tab", tab, "rows", len(rows))
		return nil
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, tab+"!A:D", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}

	vr := &gsheet.ValueRange{Values: buildValues(rows)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, tab+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}
	slog.InfoContext(ctx, "Sheet mirrored", "tab", tab, "rows", len(rows))
	return nil
}

// ReadRows returns the rows currently on the user's tab, header excluded.
func (c *Client) ReadRows(ctx context.Context, userID int64) ([]core.ExportRow, error) {
	tab := tabName(c.sheetName, userID)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, tab+"!A:D").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tab, err)
	}
	return parseRows(resp.Values)
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	slog.InfoContext(ctx, "Created sheet tab", "tab", tab)
	return nil
}
