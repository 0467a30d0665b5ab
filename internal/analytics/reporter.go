package analytics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/yourusername/tradestats/internal/models"
)

// Section selects which part of a report is rendered.
type Section string

const (
	SectionDaily      Section = "daily"
	SectionOutcomes   Section = "outcomes"
	SectionExcursions Section = "excursions"
	SectionAll        Section = "all"
)

// Format selects the output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format %q (want table, csv or json)", s)
}

// Reporter renders reports for terminals and spreadsheets.
type Reporter struct {
	// Places is the number of decimals shown for R values.
	Places int32
}

// NewReporter creates a reporter rounding R values to places decimals.
func NewReporter(places int32) *Reporter {
	return &Reporter{Places: places}
}

var dailyHeader = []string{
	"Entry Day", "Expectancy (R)", "Win Rate (%)", "Avg Win (R)", "Avg Loss (R)",
	"Number of Win", "Number of Loss", "Number of Breakeven", "Total Trades", "Invalid Rows",
}

var outcomeHeader = []string{
	"Entry Day",
	"Win Count", "Win %",
	"Loss Count", "Loss %",
	"Breakeven Count", "Breakeven %",
	"Total Trades",
}

// Render writes section of report in format.
func (r *Reporter) Render(w io.Writer, report *Report, section Section, format Format) error {
	if report == nil {
		return &models.InvalidInputError{Field: "report", Reason: "report is nil"}
	}
	if format == FormatJSON {
		payload, err := sectionPayload(report, section)
		if err != nil {
			return err
		}
		return WriteJSON(w, payload)
	}

	switch section {
	case SectionDaily:
		return r.writeTable(w, format, dailyHeader, r.dailyRecords(report.Daily))
	case SectionOutcomes:
		return r.writeTable(w, format, outcomeHeader, r.outcomeRecords(report.Outcomes))
	case SectionExcursions:
		header, records := r.excursionRecords(report.LossExcursions)
		return r.writeTable(w, format, header, records)
	case SectionAll:
		if format == FormatCSV {
			return fmt.Errorf("csv output needs a single section, got %q", section)
		}
		_, err := io.WriteString(w, r.GenerateConsoleReport(report))
		return err
	}
	return fmt.Errorf("unknown report section %q", section)
}

// GenerateConsoleReport formats every section for terminal output.
func (r *Reporter) GenerateConsoleReport(report *Report) string {
	var builder strings.Builder
	builder.WriteString("Trade Performance Report\n")
	builder.WriteString("========================\n")
	builder.WriteString(fmt.Sprintf("Dataset: %s\n", report.DatasetID))
	builder.WriteString(fmt.Sprintf("Rows: %d input, %d without entry time, %d without profit, %d valid trades\n\n",
		report.Counts.InputRows, report.Counts.DroppedEntryTime, report.Counts.InvalidProfit, report.Counts.ValidTrades))

	builder.WriteString("Daily R-Multiple Performance Summary\n")
	_ = r.writeTable(&builder, FormatTable, dailyHeader, r.dailyRecords(report.Daily))
	builder.WriteString("\nTrade Counts and Percentage by Entry Day and Result Type\n")
	_ = r.writeTable(&builder, FormatTable, outcomeHeader, r.outcomeRecords(report.Outcomes))
	builder.WriteString("\nMFE of Losing Trades\n")
	header, records := r.excursionRecords(report.LossExcursions)
	_ = r.writeTable(&builder, FormatTable, header, records)
	return builder.String()
}

func (r *Reporter) dailyRecords(rows []DaySummary) [][]string {
	records := make([][]string, 0, len(rows))
	for _, d := range rows {
		records = append(records, []string{
			d.EntryDay,
			d.Expectancy.Format(r.Places),
			formatFixed(d.WinRate, 2),
			d.AvgWin.Format(r.Places),
			d.AvgLoss.Format(r.Places),
			strconv.Itoa(d.Wins),
			strconv.Itoa(d.Losses),
			strconv.Itoa(d.Breakevens),
			strconv.Itoa(d.Total),
			strconv.Itoa(d.Invalid),
		})
	}
	return records
}

func (r *Reporter) outcomeRecords(rows []OutcomeRow) [][]string {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		record := []string{row.EntryDay}
		for _, o := range models.Outcomes {
			cell := row.Cell(o)
			record = append(record, strconv.Itoa(cell.Count), formatFixed(cell.Percent, 1)+"%")
		}
		record = append(record, strconv.Itoa(row.Total))
		records = append(records, record)
	}
	return records
}

func (r *Reporter) excursionRecords(profile ExcursionProfile) ([]string, [][]string) {
	header := []string{"Statistic", "MFE (R)"}
	records := [][]string{
		{"Losing trades with MFE", strconv.Itoa(profile.Count)},
		{"Median", profile.Median.Format(r.Places)},
	}
	for _, pv := range profile.Percentiles {
		label := fmt.Sprintf("%sth percentile", decimal.NewFromFloat(pv.P).Shift(2).String())
		records = append(records, []string{label, pv.Value.Format(r.Places)})
	}
	return header, records
}

func (r *Reporter) writeTable(w io.Writer, format Format, header []string, records [][]string) error {
	if format == FormatCSV {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(records); err != nil {
			return err
		}
		return cw.Error()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
	for _, rec := range records {
		fmt.Fprintln(tw, strings.Join(rec, "\t")+"\t")
	}
	return tw.Flush()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sectionPayload(report *Report, section Section) (any, error) {
	switch section {
	case SectionDaily:
		return report.Daily, nil
	case SectionOutcomes:
		return report.Outcomes, nil
	case SectionExcursions:
		return report.LossExcursions, nil
	case SectionAll:
		return report, nil
	}
	return nil, fmt.Errorf("unknown report section %q", section)
}

func formatFixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
