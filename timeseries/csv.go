package timeseries

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CSVOptions holds options for loading a quote history.
type CSVOptions struct {
	DateColumn  string // Column name for dates (default: "Date")
	ValueColumn string // Column name for prices (default: "Close")
	DateFormat  string // Preferred date format (default: "2006-01-02")
	Delimiter   rune   // Field delimiter (default: ',')
	SkipRows    int    // Number of rows to skip before the header
}

// DefaultCSVOptions returns options matching a typical daily quote export.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		DateColumn:  "Date",
		ValueColumn: "Close",
		DateFormat:  "2006-01-02",
		Delimiter:   ',',
	}
}

var fallbackDateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-01-2006",
	"01/02/2006",
	"02-Jan-2006",
}

// LoadCSV loads a price series from a CSV file.
func LoadCSV(filename string, opts *CSVOptions) (*Series, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	series, err := LoadCSVFromReader(file, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	return series, nil
}

// LoadCSVFromReader loads a price series from an io.Reader. Rows with a
// missing or non-numeric price are skipped; rows are returned in ascending
// date order whatever order the file uses.
func LoadCSVFromReader(r io.Reader, opts *CSVOptions) (*Series, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	for i := 0; i < opts.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, err
		}
	}

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateIdx, valueIdx := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.Trim(h, "\""))
		switch {
		case strings.EqualFold(h, opts.ValueColumn):
			valueIdx = i
		case strings.EqualFold(h, opts.DateColumn):
			dateIdx = i
		}
	}
	if dateIdx == -1 {
		return nil, fmt.Errorf("date column %q not found", opts.DateColumn)
	}
	if valueIdx == -1 {
		return nil, fmt.Errorf("value column %q not found", opts.ValueColumn)
	}

	formats := append([]string{opts.DateFormat}, fallbackDateFormats...)

	type row struct {
		ts    time.Time
		value float64
	}
	var rows []row

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if valueIdx >= len(record) || dateIdx >= len(record) {
			continue
		}

		valStr := strings.TrimSpace(strings.Trim(record[valueIdx], "\""))
		if valStr == "" || valStr == "NA" || valStr == "NaN" || valStr == "null" {
			continue
		}
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			continue
		}

		dateStr := strings.TrimSpace(strings.Trim(record[dateIdx], "\""))
		ts, err := parseDate(dateStr, formats)
		if err != nil {
			return nil, err
		}

		rows = append(rows, row{ts: ts, value: val})
	}

	if len(rows) == 0 {
		return nil, errors.New("no valid data found in CSV")
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

	series := &Series{
		Timestamps: make([]time.Time, len(rows)),
		Values:     make([]float64, len(rows)),
		Name:       opts.ValueColumn,
	}
	for i, r := range rows {
		series.Timestamps[i] = r.ts
		series.Values[i] = r.value
	}
	return series, nil
}

func parseDate(s string, formats []string) (time.Time, error) {
	for _, layout := range formats {
		if layout == "" {
			continue
		}
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// WriteCSV writes the series as a two-column Date,<name> table.
func WriteCSV(w io.Writer, series *Series, valueColumn string) error {
	if valueColumn == "" {
		valueColumn = "Close"
	}

	writer := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(writer, "Date,%s\n", valueColumn); err != nil {
		return err
	}
	for i, v := range series.Values {
		date := strconv.Itoa(i + 1)
		if len(series.Timestamps) == len(series.Values) {
			date = series.Timestamps[i].Format(time.DateOnly)
		}
		if _, err := fmt.Fprintf(writer, "%s,%s\n", date, strconv.FormatFloat(v, 'f', -1, 64)); err != nil {
			return err
		}
	}

	return writer.Flush()
}
