package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/tradestats/internal/config"
	"github.com/yourusername/tradestats/internal/models"
	"github.com/yourusername/tradestats/internal/service"
)

const tradesCSV = `Entry Time,Profit(R),MFE(R)
2024-01-01 09:00:00,2,2.5
2024-01-01 11:00:00,-1,0.4

2024-01-02 10:00:00,1
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func fastHTTPClient() *RateLimitedHTTPClient {
	return NewRateLimitedHTTPClient(HTTPClientConfig{
		Timeout:           2 * time.Second,
		MaxRetries:        1,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      2 * time.Millisecond,
		RateLimit:         1000,
		CircuitBreakerMax: 3,
	}, nil)
}

func TestCSVSourceLoad(t *testing.T) {
	src := NewCSVSource(writeFile(t, "trades.csv", tradesCSV))

	ds, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Entry Time", "Profit(R)", "MFE(R)"}, ds.Columns)
	require.Len(t, ds.Rows, 3, "blank line skipped")
	assert.Equal(t, "2", ds.Rows[0]["Profit(R)"])
	assert.Nil(t, ds.Rows[2]["MFE(R)"], "short row padded")
	assert.Equal(t, src.Name(), ds.Source)
	assert.NoError(t, src.Close())
}

func TestCSVSourceErrors(t *testing.T) {
	_, err := NewCSVSource(filepath.Join(t.TempDir(), "missing.csv")).Load(context.Background())
	assert.True(t, errors.Is(err, ErrNotFound))

	var srcErr *SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, ErrCodeNotFound, srcErr.Code)

	_, err = NewCSVSource(writeFile(t, "dup.csv", "a,a\n1,2\n")).Load(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidData))

	_, err = NewCSVSource(writeFile(t, "empty.csv", "")).Load(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidData))

	_, err = NewCSVSource(writeFile(t, "quote.csv", "a,b\n\"1,2\n")).Load(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidData))
}

func TestCSVHeaderOnlyIsEmptyDataset(t *testing.T) {
	ds, err := NewCSVSource(writeFile(t, "header.csv", "\ufeffEntry Time,Profit(R)\n")).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Entry Time", "Profit(R)"}, ds.Columns)
	assert.Empty(t, ds.Rows)
}

func writeWorkbook(t *testing.T, sheet string) string {
	t.Helper()
	fx := excelize.NewFile()
	defer fx.Close()

	require.NoError(t, fx.SetSheetName(fx.GetSheetName(0), sheet))
	rows := [][]any{
		{"Entry Time", "Profit(R)", "MFE(R)"},
		{"2024-01-01 09:00:00", 2, 2.5},
		{"2024-01-03 09:00:00", -1},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, fx.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "trades.xlsx")
	require.NoError(t, fx.SaveAs(path))
	return path
}

func TestXLSXSourceLoad(t *testing.T) {
	path := writeWorkbook(t, "Trades")

	for _, sheet := range []string{"Trades", ""} {
		src := NewXLSXSource(path, sheet)
		ds, err := src.Load(context.Background())
		require.NoError(t, err, sheet)
		assert.Equal(t, []string{"Entry Time", "Profit(R)", "MFE(R)"}, ds.Columns)
		require.Len(t, ds.Rows, 2)
		assert.Equal(t, "2024-01-01 09:00:00", ds.Rows[0]["Entry Time"])
		assert.Equal(t, "2", ds.Rows[0]["Profit(R)"])
		assert.Equal(t, "-1", ds.Rows[1]["Profit(R)"])
		assert.Empty(t, ds.Rows[1]["MFE(R)"])
	}
}

func TestXLSXSourceConvertsExcelDates(t *testing.T) {
	fx := excelize.NewFile()
	sheet := fx.GetSheetName(0)
	require.NoError(t, fx.SetSheetRow(sheet, "A1", &[]any{"Entry Time", "Profit(R)", "MFE(R)"}))
	require.NoError(t, fx.SetCellValue(sheet, "A2", time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)))
	require.NoError(t, fx.SetCellValue(sheet, "B2", 2))
	require.NoError(t, fx.SetCellValue(sheet, "A3", time.Date(2024, 1, 5, 16, 45, 0, 0, time.UTC)))
	require.NoError(t, fx.SetCellValue(sheet, "B3", -1))
	require.NoError(t, fx.SetCellValue(sheet, "C3", 0.5))
	path := filepath.Join(t.TempDir(), "dates.xlsx")
	require.NoError(t, fx.SaveAs(path))
	require.NoError(t, fx.Close())

	ds, err := NewXLSXSource(path, "", models.ColumnEntryTime).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "2024-01-02T09:30:00", ds.Rows[0][models.ColumnEntryTime])
	assert.Equal(t, "2", ds.Rows[0][models.ColumnProfitR])

	loc := time.FixedZone("EST", -5*60*60)
	opts := service.DefaultNormalizerOptions()
	opts.Location = loc
	result, err := service.NewTradeNormalizer(opts, nil).Normalize(ds)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DroppedEntryTime)
	require.Len(t, result.Trades, 2)
	assert.True(t, result.Trades[0].EntryTime.Equal(time.Date(2024, 1, 2, 9, 30, 0, 0, loc)))
	assert.Equal(t, time.Tuesday, result.Trades[0].EntryDay)
	assert.Equal(t, time.Friday, result.Trades[1].EntryDay)
}

func TestXLSXSourceKeepsTextWithoutDateColumns(t *testing.T) {
	fx := excelize.NewFile()
	sheet := fx.GetSheetName(0)
	require.NoError(t, fx.SetSheetRow(sheet, "A1", &[]any{"Entry Time", "Profit(R)"}))
	require.NoError(t, fx.SetCellValue(sheet, "A2", time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)))
	require.NoError(t, fx.SetCellValue(sheet, "B2", 2))
	path := filepath.Join(t.TempDir(), "dates.xlsx")
	require.NoError(t, fx.SaveAs(path))
	require.NoError(t, fx.Close())

	ds, err := NewXLSXSource(path, "").Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.NotEqual(t, "2024-01-02T09:30:00", ds.Rows[0][models.ColumnEntryTime])
}

func TestXLSXSourceErrors(t *testing.T) {
	path := writeWorkbook(t, "Trades")

	_, err := NewXLSXSource(path, "Missing").Load(context.Background())
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = NewXLSXSource(filepath.Join(t.TempDir(), "none.xlsx"), "").Load(context.Background())
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = NewXLSXSource(writeFile(t, "bad.xlsx", "not a workbook"), "").Load(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidData))
}

func TestHTTPSourceCSV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte(tradesCSV))
	}))
	defer server.Close()

	ds, err := NewHTTPSource(fastHTTPClient(), server.URL, "secret").Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 3)

	_, err = NewHTTPSource(fastHTTPClient(), server.URL, "").Load(context.Background())
	assert.True(t, errors.Is(err, ErrAuthenticationFailed))
}

func TestHTTPSourceJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"Entry Time": "2024-01-01T09:00:00Z", "Profit(R)": 1.5},
			{"Entry Time": "2024-01-02T09:00:00Z", "Profit(R)": null, "MFE(R)": 0.3}
		]`))
	}))
	defer server.Close()

	ds, err := NewHTTPSource(fastHTTPClient(), server.URL, "").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Entry Time", "MFE(R)", "Profit(R)"}, ds.Columns)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, json.Number("1.5"), ds.Rows[0]["Profit(R)"])
	assert.Nil(t, ds.Rows[1]["Profit(R)"])
}

func TestHTTPSourceJSONEpochEntryTimes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`[{"Entry Time": 1704187800, "Profit(R)": 2, "MFE(R)": 2.5}]`))
	}))
	defer server.Close()

	ds, err := NewHTTPSource(fastHTTPClient(), server.URL, "").Load(context.Background())
	require.NoError(t, err)

	result, err := service.NewTradeNormalizer(service.DefaultNormalizerOptions(), nil).Normalize(ds)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DroppedEntryTime)
	require.Len(t, result.Trades, 1)
	assert.True(t, result.Trades[0].EntryTime.Equal(time.Unix(1704187800, 0)))
	mfe, ok := result.Trades[0].MFER.Get()
	require.True(t, ok)
	assert.Equal(t, 2.5, mfe)
}

func TestHTTPSourceRejectsOversizedBody(t *testing.T) {
	limit := maxBodyBytes
	maxBodyBytes = 64
	t.Cleanup(func() { maxBodyBytes = limit })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(tradesCSV + tradesCSV))
	}))
	defer server.Close()

	_, err := NewHTTPSource(fastHTTPClient(), server.URL, "").Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidData))

	var srcErr *SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, ErrCodeInvalidData, srcErr.Code)
}

func TestHTTPSourceStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{status: http.StatusNotFound, want: ErrNotFound},
		{status: http.StatusForbidden, want: ErrAuthenticationFailed},
		{status: http.StatusBadGateway, want: ErrServerError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := NewHTTPSource(fastHTTPClient(), server.URL, "").Load(context.Background())
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestHTTPClientRetriesAndCircuitBreaker(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := fastHTTPClient()
	for i := 0; i < 3; i++ {
		resp, err := client.Get(context.Background(), server.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	}
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls), "one retry per request")
	assert.True(t, client.IsOpen())

	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))
}

func TestHTTPClientCircuitBreakerCooldown(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewRateLimitedHTTPClient(HTTPClientConfig{
		Timeout:                2 * time.Second,
		RateLimit:              1000,
		CircuitBreakerMax:      1,
		CircuitBreakerCooldown: 50 * time.Millisecond,
	}, nil)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.True(t, client.IsOpen())

	_, err = client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	failing.Store(false)
	time.Sleep(60 * time.Millisecond)

	resp, err = client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.False(t, client.IsOpen())
}

func TestHTTPClientConfigFrom(t *testing.T) {
	cfg := HTTPClientConfigFrom(config.HTTPClientConfig{TimeoutSeconds: 7, MaxRetries: 2, RateLimit: 1.5})
	assert.Equal(t, 7*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 1.5, cfg.RateLimit)
	assert.Equal(t, DefaultHTTPClientConfig().RetryWaitMax, cfg.RetryWaitMax)
	assert.Equal(t, DefaultHTTPClientConfig().CircuitBreakerMax, cfg.CircuitBreakerMax)
	assert.Equal(t, time.Minute, cfg.CircuitBreakerCooldown)

	cfg = HTTPClientConfigFrom(config.HTTPClientConfig{CircuitBreakerCooldownSeconds: 5})
	assert.Equal(t, 5*time.Second, cfg.CircuitBreakerCooldown)
}

// fakeRows is an in-memory pgx.Rows
type fakeRows struct {
	fields []pgconn.FieldDescription
	values [][]any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Scan(...any) error                            { return errors.New("not supported") }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.values) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.idx-1], nil
}

type fakeQuerier struct {
	rows  *fakeRows
	err   error
	query string
}

func (q *fakeQuerier) Query(_ context.Context, query string, _ ...any) (pgx.Rows, error) {
	q.query = query
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestPostgresSourceLoad(t *testing.T) {
	entry := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	var numeric pgtype.Numeric
	require.NoError(t, numeric.Scan("-1.25"))

	rows := &fakeRows{
		fields: []pgconn.FieldDescription{{Name: "Entry Time"}, {Name: "Profit(R)"}, {Name: "MFE(R)"}},
		values: [][]any{
			{entry, numeric, nil},
			{entry.Add(time.Hour), 2.0, pgtype.Numeric{}},
		},
	}
	q := &fakeQuerier{rows: rows}
	closed := false
	src := NewPostgresSource(q, "SELECT * FROM trades", func() { closed = true })

	ds, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM trades", q.query)
	assert.True(t, rows.closed)
	assert.Equal(t, []string{"Entry Time", "Profit(R)", "MFE(R)"}, ds.Columns)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, entry, ds.Rows[0]["Entry Time"])
	assert.InDelta(t, -1.25, ds.Rows[0]["Profit(R)"], 1e-12)
	assert.Nil(t, ds.Rows[1]["MFE(R)"])

	require.NoError(t, src.Close())
	assert.True(t, closed)
}

func TestPostgresSourceErrors(t *testing.T) {
	_, err := NewPostgresSource(&fakeQuerier{err: errors.New("relation does not exist")}, "SELECT 1", nil).
		Load(context.Background())
	assert.True(t, errors.Is(err, ErrServerError))

	rows := &fakeRows{fields: []pgconn.FieldDescription{{Name: "a"}}, err: errors.New("conn reset")}
	_, err = NewPostgresSource(&fakeQuerier{rows: rows}, "SELECT 1", nil).Load(context.Background())
	assert.True(t, errors.Is(err, ErrServerError))
}

func TestFactoryCreate(t *testing.T) {
	cfg := &config.Config{Input: config.InputConfig{Source: config.SourceCSV, Path: "trades.csv"}}
	f := NewFactory(cfg, nil)

	src, err := f.Create(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, src)

	cfg.Input = config.InputConfig{Source: config.SourceXLSX, Path: "trades.xlsx", Sheet: "Trades"}
	src, err = f.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "xlsx:trades.xlsx#Trades", src.Name())

	cfg.Input = config.InputConfig{Source: config.SourceHTTP, URL: "http://example.invalid/trades.csv"}
	src, err = f.Create(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)

	cfg.Input = config.InputConfig{Source: config.SourcePostgres}
	_, err = f.Create(context.Background())
	assert.Error(t, err)

	cfg.Input = config.InputConfig{Source: "parquet"}
	_, err = f.Create(context.Background())
	assert.Error(t, err)

	assert.Len(t, ListAvailableSources(), 4)
}

func TestLoadDataset(t *testing.T) {
	ds, err := LoadDataset(context.Background(), NewCSVSource(writeFile(t, "t.csv", tradesCSV)), nil)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 3)

	_, err = LoadDataset(context.Background(), NewCSVSource("does-not-exist.csv"), nil)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "csv", sourceKind("csv:does-not-exist.csv"))
	assert.Equal(t, "postgres", sourceKind("postgres"))
}
