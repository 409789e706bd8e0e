package clients

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExtractSheetID(t *testing.T) {
	id, ok := ExtractSheetID("https://docs.google.com/spreadsheets/d/1wpp99NP1l83r_hDi5klWy3NKmHn9n-mX/edit?usp=drive_link")
	assert.True(t, ok)
	assert.Equal(t, "1wpp99NP1l83r_hDi5klWy3NKmHn9n-mX", id)

	_, ok = ExtractSheetID("https://example.com/report.xlsx")
	assert.False(t, ok)
}

func workbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"ID", "Status", "Finding"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"1", "NC", "Blocked exit"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestSheetsClient_Fetch(t *testing.T) {
	body := workbook(t)
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Write(body)
	}))
	defer srv.Close()

	c := NewSheetsClient()
	c.BaseURL = srv.URL + "/spreadsheets/d/"

	url := "https://docs.google.com/spreadsheets/d/abc_123/edit"
	table, src, err := c.Fetch(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, "/spreadsheets/d/abc_123/export", gotPath)
	assert.Equal(t, "format=xlsx", gotQuery)
	assert.Len(t, table.Rows, 2)
	assert.Equal(t, "xlsx", src.Type)
	assert.Equal(t, url, src.URL)
	assert.NotEmpty(t, src.Sheet)
}

func TestSheetsClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/spreadsheets/d/missing/export" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<html>sign in</html>"))
	}))
	defer srv.Close()

	c := NewSheetsClient()
	c.BaseURL = srv.URL + "/spreadsheets/d/"
	ctx := context.Background()

	_, _, err := c.Fetch(ctx, "not a sheet")
	assert.ErrorIs(t, err, ErrNoSheetID)

	_, _, err = c.Fetch(ctx, "https://docs.google.com/spreadsheets/d/missing/edit")
	assert.ErrorContains(t, err, "404")

	_, _, err = c.Fetch(ctx, "https://docs.google.com/spreadsheets/d/private/edit")
	assert.Error(t, err)
}
