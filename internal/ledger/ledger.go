// Package ledger loads the reference table of expected orders and groups it
// into a by-order-id lookup the verification pipeline consumes read-only.
package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Column names expected in the reference table.
const (
	colOrderID  = "PEDIDO VENTA"
	colMatch    = "match"
	colEmail    = "email_envio"
	colTeamA    = "Team A"
	colTeamB    = "Team B"
	colCategory = "Category"
)

// Record is one expected order. Quantity is the number of ledger rows that
// share the order id (one row per ticket).
type Record struct {
	OrderID  string
	Match    int
	Quantity int
	Category string
	Email    string
	Fixture  string // "Team A vs Team B"
}

// Load reads a CSV or XLSX reference table into a by-order-id map.
func Load(path string, logger *slog.Logger) (map[string]Record, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = loadCSV(path, logger)
	case ".xlsx":
		rows, err = loadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported ledger format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return group(rows)
}

// loadCSV probes the common separators exported spreadsheets use and accepts
// the first one that yields more than one column. Non-UTF-8 files are decoded
// as Latin-1.
func loadCSV(path string, logger *slog.Logger) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err == nil {
			data = decoded
		}
	}

	for _, sep := range []rune{',', ';', '\t', '|'} {
		r := csv.NewReader(bytes.NewReader(data))
		r.Comma = sep
		r.LazyQuotes = true
		r.FieldsPerRecord = -1
		rows, err := r.ReadAll()
		if err != nil || len(rows) == 0 {
			continue
		}
		if len(rows[0]) > 1 {
			logger.Debug("ledger csv parsed", "path", path, "separator", string(sep), "rows", len(rows))
			return rows, nil
		}
	}
	return nil, fmt.Errorf("ledger csv: no separator yields more than one column")
}

func loadXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("ledger workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read ledger sheet: %w", err)
	}
	return rows, nil
}

// group collapses ledger rows into one Record per order id. The first row of
// an order provides its fields; the row count is the expected ticket quantity.
func group(rows [][]string) (map[string]Record, error) {
	if len(rows) < 1 {
		return nil, fmt.Errorf("ledger is empty")
	}

	idx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		idx[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colOrderID, colMatch, colEmail} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("ledger column %q not found (have: %s)", required, strings.Join(rows[0], ", "))
		}
	}

	records := make(map[string]Record)
	for _, row := range rows[1:] {
		orderID := normalizeOrderID(cell(row, idx[colOrderID]))
		if orderID == "" {
			continue
		}

		if rec, ok := records[orderID]; ok {
			rec.Quantity++
			records[orderID] = rec
			continue
		}

		teamA := optCell(row, idx, colTeamA, "N/A")
		teamB := optCell(row, idx, colTeamB, "N/A")
		records[orderID] = Record{
			OrderID:  orderID,
			Match:    parseIntCell(cell(row, idx[colMatch])),
			Quantity: 1,
			Category: optCell(row, idx, colCategory, "N/A"),
			Email:    strings.ToLower(strings.TrimSpace(cell(row, idx[colEmail]))),
			Fixture:  teamA + " vs " + teamB,
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("ledger has no usable rows")
	}
	return records, nil
}

// normalizeOrderID trims and collapses float-formatted ids ("12345.0") that
// spreadsheet exports produce for numeric columns.
func normalizeOrderID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.Itoa(int(f))
	}
	return s
}

func parseIntCell(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func optCell(row []string, idx map[string]int, name, fallback string) string {
	i, ok := idx[name]
	if !ok {
		return fallback
	}
	v := strings.TrimSpace(cell(row, i))
	if v == "" {
		return fallback
	}
	return v
}
