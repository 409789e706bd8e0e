package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/ethanolivertroy/nc-tracker/internal/models"
	"github.com/ethanolivertroy/nc-tracker/internal/parsers"
)

const sheetsBaseURL = "https://docs.google.com/spreadsheets/d/"

// maxWorkbookBytes bounds the export download
const maxWorkbookBytes = 32 << 20

var sheetIDPattern = regexp.MustCompile(`spreadsheets/d/([a-zA-Z0-9_-]+)`)

// ErrNoSheetID is returned when a URL does not name a spreadsheet
var ErrNoSheetID = errors.New("could not extract sheet id from URL")

// ExtractSheetID returns the document id of a Google Sheets URL
func ExtractSheetID(url string) (string, bool) {
	m := sheetIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SheetsClient downloads Google Sheets as xlsx workbooks
type SheetsClient struct {
	httpClient *http.Client
	BaseURL    string
}

// NewSheetsClient creates a new Google Sheets client
func NewSheetsClient() *SheetsClient {
	return &SheetsClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		BaseURL:    sheetsBaseURL,
	}
}

// ExportURL is the xlsx export link of a sheet
func (c *SheetsClient) ExportURL(sheetID string) string {
	return c.BaseURL + sheetID + "/export?format=xlsx"
}

// Fetch downloads the sheet behind url and parses its first worksheet
func (c *SheetsClient) Fetch(ctx context.Context, url string) (*parsers.Table, models.Source, error) {
	id, ok := ExtractSheetID(url)
	if !ok {
		return nil, models.Source{}, fmt.Errorf("%w: %s", ErrNoSheetID, url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ExportURL(id), nil)
	if err != nil {
		return nil, models.Source{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.Source{}, fmt.Errorf("failed to fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.Source{}, fmt.Errorf("fetch failed: unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxWorkbookBytes))
	if err != nil {
		return nil, models.Source{}, fmt.Errorf("failed to read response body: %w", err)
	}

	table, src, err := parsers.ParseContent(&parsers.XLSXParser{}, id+".xlsx", data)
	if err != nil {
		return nil, models.Source{}, err
	}
	src.Name = ""
	src.URL = url
	return table, src, nil
}
