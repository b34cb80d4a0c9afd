package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// Dataset is tabular export content. Rows are keyed by header; missing cells render empty.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// Footer is rendered after the rows when set.
	Footer map[string]string
}

func (d Dataset) record(row map[string]string) []string {
	record := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		record[i] = row[header]
	}
	return record
}

// HoursTable collects assignment rows and totals their hours column into the footer.
type HoursTable struct {
	headers     []string
	labelColumn string
	hoursColumn string
	rows        []map[string]string
	total       float64
}

// NewHoursTable starts a table. The footer puts "Total" under labelColumn and the sum under hoursColumn.
func NewHoursTable(headers []string, labelColumn, hoursColumn string) *HoursTable {
	return &HoursTable{headers: headers, labelColumn: labelColumn, hoursColumn: hoursColumn}
}

// Add appends a row. A nil hours leaves the cell empty and the total unchanged.
func (t *HoursTable) Add(row map[string]string, hours *float64) {
	if hours != nil {
		row[t.hoursColumn] = FormatHours(*hours)
		t.total += *hours
	}
	t.rows = append(t.rows, row)
}

// Total is the sum of every added hours value.
func (t *HoursTable) Total() float64 {
	return t.total
}

// Dataset returns the collected rows with the total footer.
func (t *HoursTable) Dataset() Dataset {
	rows := t.rows
	if rows == nil {
		rows = []map[string]string{}
	}
	return Dataset{
		Headers: t.headers,
		Rows:    rows,
		Footer:  map[string]string{t.labelColumn: "Total", t.hoursColumn: FormatHours(t.total)},
	}
}

// FormatHours prints hours without trailing zeros.
func FormatHours(hours float64) string {
	return strconv.FormatFloat(hours, 'f', -1, 64)
}

// CSVExporter renders a Dataset as comma separated values.
type CSVExporter struct {
	// Comma overrides the field delimiter when non-zero.
	Comma rune
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if e.Comma != 0 {
		writer.Comma = e.Comma
	}
	records := make([][]string, 0, len(data.Rows)+2)
	records = append(records, data.Headers)
	for _, row := range data.Rows {
		records = append(records, data.record(row))
	}
	if data.Footer != nil {
		records = append(records, data.record(data.Footer))
	}
	if err := writer.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
