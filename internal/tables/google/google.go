// Package google stores each table as a worksheet of one Google Sheets
// spreadsheet. Row 1 of a worksheet is the header.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"tracker/internal/cache"
	"tracker/internal/core"
	"tracker/internal/tables"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// QuarantinePrefix is prepended to the title of a quarantined worksheet.
const QuarantinePrefix = "corrupto_"

const (
	defaultMaxRetries  = 6
	defaultBaseBackoff = time.Second
	defaultMaxBackoff  = 60 * time.Second
	titlesTTL          = 10 * time.Minute
)

// Credentials selects the service account used to talk to the API. JSON
// wins over File; when both are empty GOOGLE_APPLICATION_CREDENTIALS is
// consulted.
type Credentials struct {
	JSON string
	File string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	// worksheet title -> sheet id
	sheets *cache.LRUCache[int64]
	locks  tables.Locks

	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	now         func() time.Time
}

// Ensure interface conformance
var (
	_ tables.Store       = (*Client)(nil)
	_ tables.Quarantiner = (*Client)(nil)
)

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheets:        cache.NewLRUCache[int64](256, titlesTTL),
		maxRetries:    defaultMaxRetries,
		baseBackoff:   defaultBaseBackoff,
		maxBackoff:    defaultMaxBackoff,
		now:           time.Now,
	}
}

// NewFromConfig builds a client authenticated with a service account.
// Extra options are appended after the credentials.
func NewFromConfig(ctx context.Context, spreadsheetID string, creds Credentials, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, creds, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID), nil
}

func newSheetsService(ctx context.Context, creds Credentials, opts ...goption.ClientOption) (*gsheet.Service, error) {
	credentialsJSON, err := readCredentials(creds)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	all := append([]goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func readCredentials(creds Credentials) ([]byte, error) {
	inline := strings.TrimSpace(creds.JSON)
	file := strings.TrimSpace(creds.File)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Load reads the whole worksheet. A worksheet that does not exist yet is
// Missing; API failures are Unreachable.
func (c *Client) Load(ctx context.Context, name string) tables.Outcome {
	if err := tables.ValidateName(name); err != nil {
		return tables.UnreachableTable(name, err)
	}
	if c.svc == nil {
		return tables.UnreachableTable(name, errors.New("sheets service not initialized"))
	}
	return c.load(ctx, name)
}

func (c *Client) load(ctx context.Context, name string) tables.Outcome {
	var resp *gsheet.ValueRange
	err := c.retry(ctx, "load", func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheetRange(name)).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("FORMATTED_STRING").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		if isMissingSheet(err) {
			c.sheets.Delete(name)
			return tables.MissingTable(name)
		}
		return tables.UnreachableTable(name, err)
	}
	t, err := parseValues(name, resp.Values)
	if err != nil {
		return tables.MalformedTable(name, err)
	}
	return tables.LoadedTable(t)
}

// Append rewrites the worksheet with the current rows followed by rows in a
// single update. The worksheet is created on first use; a malformed one is
// quarantined first.
func (c *Client) Append(ctx context.Context, name string, rows []core.Row) error {
	if err := tables.ValidateName(name); err != nil {
		return err
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	unlock := c.locks.Lock(name)
	defer unlock()

	out := c.load(ctx, name)
	current := out.Table
	switch out.Status {
	case tables.Loaded, tables.Missing:
	case tables.Malformed:
		artifact, err := c.quarantine(ctx, name)
		if err != nil {
			return fmt.Errorf("quarantine %s: %w", name, err)
		}
		slog.WarnContext(ctx, "Quarantined malformed worksheet before append",
			"table", name,
			"artifact", artifact,
			"error", out.Err)
		current = core.Table{Name: name}
	default:
		return fmt.Errorf("read %s before append: %w", name, out.Err)
	}

	if _, err := c.ensureSheet(ctx, name); err != nil {
		return fmt.Errorf("ensure worksheet %s: %w", name, err)
	}

	grid := toGrid(current.Concat(rows...))
	vr := &gsheet.ValueRange{Values: grid}
	err := c.retry(ctx, "append", func() error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, sheetRange(name)+"!A1", vr).
			ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("update worksheet %s: %w", name, err)
	}
	return nil
}

// Quarantine renames the worksheet to corrupto_<name>, adding a UTC
// timestamp when that title is already taken.
func (c *Client) Quarantine(ctx context.Context, name string) (string, error) {
	if err := tables.ValidateName(name); err != nil {
		return "", err
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	unlock := c.locks.Lock(name)
	defer unlock()

	if out := c.load(ctx, name); out.Status != tables.Malformed {
		return "", fmt.Errorf("%w: %s is %s", tables.ErrNotMalformed, name, out.Status)
	}
	return c.quarantine(ctx, name)
}

func (c *Client) quarantine(ctx context.Context, name string) (string, error) {
	titles, err := c.refreshSheets(ctx)
	if err != nil {
		return "", err
	}
	id, ok := titles[name]
	if !ok {
		return "", fmt.Errorf("worksheet %q not found", name)
	}
	target := QuarantinePrefix + name
	if _, taken := titles[target]; taken {
		target = QuarantinePrefix + c.now().UTC().Format("20060102T150405Z") + "_" + name
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		UpdateSheetProperties: &gsheet.UpdateSheetPropertiesRequest{
			Properties: &gsheet.SheetProperties{
				SheetId:         id,
				Title:           target,
				ForceSendFields: []string{"SheetId"},
			},
			Fields:     "title",
		},
	}}}
	err = c.retry(ctx, "quarantine", func() error {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("rename worksheet %s: %w", name, err)
	}
	c.sheets.Delete(name)
	c.sheets.Set(target, id)
	return target, nil
}

// ensureSheet returns the sheet id for title, creating the worksheet when
// the spreadsheet does not have it.
func (c *Client) ensureSheet(ctx context.Context, title string) (int64, error) {
	if id, ok := c.sheets.Get(title); ok {
		return id, nil
	}
	titles, err := c.refreshSheets(ctx)
	if err != nil {
		return 0, err
	}
	if id, ok := titles[title]; ok {
		return id, nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	var resp *gsheet.BatchUpdateSpreadsheetResponse
	err = c.retry(ctx, "add_sheet", func() error {
		var err error
		resp, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return 0, err
	}
	var id int64
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		id = resp.Replies[0].AddSheet.Properties.SheetId
	}
	slog.InfoContext(ctx, "Created worksheet", "table", title, "sheet_id", id)
	c.sheets.Set(title, id)
	return id, nil
}

// refreshSheets reads the worksheet list and repopulates the cache.
func (c *Client) refreshSheets(ctx context.Context) (map[string]int64, error) {
	var ss *gsheet.Spreadsheet
	err := c.retry(ctx, "metadata", func() error {
		var err error
		ss, err = c.svc.Spreadsheets.Get(c.spreadsheetID).
			Fields("sheets.properties(sheetId,title)").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	out := make(map[string]int64, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		out[sh.Properties.Title] = sh.Properties.SheetId
		c.sheets.Set(sh.Properties.Title, sh.Properties.SheetId)
	}
	return out, nil
}

// retry runs call with exponential backoff while the API reports rate
// limiting.
func (c *Client) retry(ctx context.Context, op string, call func() error) error {
	var err error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		err = call()
		if err == nil || !isRateLimited(err) {
			return err
		}
		backoff := c.baseBackoff << attempt
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
		slog.WarnContext(ctx, "Rate limited by Google Sheets API, retrying",
			"op", op,
			"attempt", attempt+1,
			"backoff", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", c.maxRetries, err)
}

func isRateLimited(err error) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return false
	}
	if gErr.Code == 429 {
		return true
	}
	if gErr.Code != 403 {
		return false
	}
	for _, item := range gErr.Errors {
		if strings.Contains(strings.ToLower(item.Reason), "ratelimitexceeded") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(gErr.Message), "quota")
}

// isMissingSheet reports the error Sheets returns when a range names a
// worksheet that does not exist.
func isMissingSheet(err error) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return false
	}
	return gErr.Code == 400 && strings.Contains(gErr.Message, "Unable to parse range")
}
