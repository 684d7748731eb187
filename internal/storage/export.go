package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/parquet-go/parquet-go"
)

// ReportRow is the flat export shape of a SessionReport.
// Prices are decimal strings so no precision is lost in any format.
type ReportRow struct {
	Date       string `json:"date" parquet:"date"`
	Status     string `json:"status" parquet:"status"`
	Reason     string `json:"reason,omitempty" parquet:"reason,optional"`
	RangeHigh  string `json:"range_high,omitempty" parquet:"range_high,optional"`
	RangeLow   string `json:"range_low,omitempty" parquet:"range_low,optional"`
	Side       string `json:"side,omitempty" parquet:"side,optional"`
	Entry      string `json:"entry,omitempty" parquet:"entry,optional"`
	Exit       string `json:"exit,omitempty" parquet:"exit,optional"`
	ExitReason string `json:"exit_reason,omitempty" parquet:"exit_reason,optional"`
	PnLPoints  string `json:"pnl_points,omitempty" parquet:"pnl_points,optional"`
	Breakeven  bool   `json:"breakeven" parquet:"breakeven"`
}

// ToRows flattens reports for export.
func ToRows(reports []domain.SessionReport) []ReportRow {
	rows := make([]ReportRow, 0, len(reports))
	for _, r := range reports {
		row := ReportRow{
			Date:   r.Date,
			Status: string(r.Status),
			Reason: r.Reason,
		}
		if r.Range != nil {
			row.RangeHigh = r.Range.High.String()
			row.RangeLow = r.Range.Low.String()
		}
		if o := r.Outcome; o != nil {
			row.Side = string(o.Side)
			row.Entry = o.Entry.String()
			row.Exit = o.Exit.String()
			row.ExitReason = string(o.ExitReason)
			row.PnLPoints = o.PnLPoints.String()
			row.Breakeven = o.BreakevenApplied
		}
		rows = append(rows, row)
	}
	return rows
}

// ReportSaver writes report rows to a file in one format.
type ReportSaver interface {
	Save(rows []ReportRow, path string) error
	Extension() string
}

// NewReportSaver returns the saver for format (csv, json, parquet), or nil if unsupported.
func NewReportSaver(format string) ReportSaver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}

// CSVSaver writes rows with a header line.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(rows []ReportRow, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "status", "reason", "range_high", "range_low", "side", "entry", "exit", "exit_reason", "pnl_points", "breakeven"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{
			r.Date, r.Status, r.Reason, r.RangeHigh, r.RangeLow,
			r.Side, r.Entry, r.Exit, r.ExitReason, r.PnLPoints,
			strconv.FormatBool(r.Breakeven),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// JSONSaver writes rows as an indented JSON array.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(rows []ReportRow, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// ParquetSaver writes rows as a Parquet file.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(rows []ReportRow, path string) error {
	return parquet.WriteFile(path, rows)
}
