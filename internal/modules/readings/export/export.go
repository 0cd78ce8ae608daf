// Package export renders readings as downloadable CSV or XLSX files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"waterwatch-server/internal/modules/readings/quality"
	"waterwatch-server/internal/modules/readings/types"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const sheetName = "Readings"

// Header is the column order of every export.
var Header = []string{"id", "created_at", "ph", "ntu", "tds", "label"}

// ParseFormat accepts "csv" (the default when empty) or "xlsx".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (allowed: csv, xlsx)", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename builds a timestamped download name, e.g. readings-20240501T100000Z.csv.
func (f Format) Filename(now time.Time) string {
	return "readings-" + now.UTC().Format("20060102T150405Z") + "." + string(f)
}

// Write renders readings in the given format. Each row is labeled with
// labeler; a nil labeler leaves the label column empty.
func Write(w io.Writer, f Format, readings []types.Reading, labeler *quality.Labeler) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, readings, labeler)
	case FormatXLSX:
		return writeXLSX(w, readings, labeler)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

func writeCSV(w io.Writer, readings []types.Reading, labeler *quality.Labeler) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range readings {
		rec := []string{
			strconv.FormatInt(r.ID, 10),
			r.CreatedAt.UTC().Format(time.RFC3339Nano),
			formatFloat(r.PH),
			formatFloat(r.NTU),
			formatFloat(r.TDS),
			label(labeler, r),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, readings []types.Reading, labeler *quality.Labeler) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("set header style: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "B", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	for i, r := range readings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.ID,
			r.CreatedAt.UTC().Format(time.RFC3339Nano),
			r.PH,
			r.NTU,
			r.TDS,
			label(labeler, r),
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r.ID, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func label(l *quality.Labeler, r types.Reading) string {
	if l == nil {
		return ""
	}
	return l.Assess(r.PH, r.NTU, r.TDS).Label
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
