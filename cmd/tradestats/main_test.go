package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/tradestats/internal/config"
)

const journalCSV = `Entry Time,Profit(R),MFE(R)
2024-01-02 10:00:00,1,1.5
2024-01-01 09:00:00,2,2.5
2024-01-01 11:00:00,-1,0.4
,3,
2024-01-03 09:00:00,n/a,
`

func writeJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.csv")
	require.NoError(t, os.WriteFile(path, []byte(journalCSV), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	missing := filepath.Join(t.TempDir(), "absent.yaml")
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", missing, "--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestDailyCSV(t *testing.T) {
	out, err := execute(t, "daily", "-i", writeJournal(t), "-f", "csv")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 8)
	assert.Equal(t, "Entry Day", records[0][0])
	assert.Equal(t, []string{"Sunday", "N/A", "0.00", "N/A", "N/A", "0", "0", "0", "0", "0"}, records[1])
	assert.Equal(t, []string{"Monday", "0.50", "50.00", "2.00", "-1.00", "1", "1", "0", "2", "0"}, records[2])
	assert.Equal(t, "Wednesday", records[4][0])
	assert.Equal(t, "1", records[4][9])
}

func TestOutcomesJSON(t *testing.T) {
	out, err := execute(t, "outcomes", "-i", writeJournal(t), "--format", "json")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 6)
	assert.Equal(t, "SUN", rows[0]["entry_day"])
	assert.Equal(t, "MON", rows[1]["entry_day"])
	assert.EqualValues(t, 2, rows[1]["total"])
}

func TestExcursionsTable(t *testing.T) {
	out, err := execute(t, "excursions", "-i", writeJournal(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Losing trades with MFE")
	assert.Contains(t, out, "0.40")
}

func TestReportWritesWorkbook(t *testing.T) {
	workbook := filepath.Join(t.TempDir(), "out", "report.xlsx")
	out, err := execute(t, "report", "-i", writeJournal(t), "--xlsx", workbook)
	require.NoError(t, err)
	assert.Contains(t, out, "Trade Performance Report")
	assert.Contains(t, out, "Daily R-Multiple Performance Summary")

	f, err := excelize.OpenFile(workbook)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Daily R")
}

func TestReportRejectsCSV(t *testing.T) {
	_, err := execute(t, "report", "-i", writeJournal(t), "-f", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single table")
}

func TestSchemaErrorFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("When,Profit(R)\n2024-01-01,1\n"), 0o600))

	_, err := execute(t, "daily", "-i", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Entry Time")
}

func TestMissingInputFails(t *testing.T) {
	_, err := execute(t, "daily", "-i", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "daily", "-i", writeJournal(t), "-f", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestEnvFileOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("TRADESTATS_REPORT_DECIMALS=3\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TRADESTATS_REPORT_DECIMALS") })

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "absent.yaml"), "--env-file", envFile,
		"daily", "-i", writeJournal(t), "-f", "csv"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Monday,0.500,50.00,2.000,-1.000")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tradestats dev")
}

func TestSourceForPath(t *testing.T) {
	assert.Equal(t, config.SourceXLSX, sourceForPath("trades.XLSX", config.SourceCSV))
	assert.Equal(t, config.SourceCSV, sourceForPath("trades.csv", config.SourceXLSX))
	assert.Equal(t, config.SourceXLSX, sourceForPath("trades", config.SourceXLSX))
	assert.Equal(t, config.SourceCSV, sourceForPath("trades", config.SourcePostgres))
}

func TestApplyFlagsURL(t *testing.T) {
	a := &app{input: "https://example.com/trades.csv", sheet: "Trades", logLevel: "debug"}
	cfg := &config.Config{}
	cfg.Input.Source = config.SourceCSV
	a.applyFlags(cfg)

	assert.Equal(t, config.SourceHTTP, cfg.Input.Source)
	assert.Equal(t, "https://example.com/trades.csv", cfg.Input.URL)
	assert.Equal(t, "Trades", cfg.Input.Sheet)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}
