// Package export renders filtered order rows as an Excel workbook.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/redigma/partner-dashboard/pkg/rows"
	"github.com/xuri/excelize/v2"
)

const (
	// SheetName is the worksheet holding the exported rows.
	SheetName = "Data TikTok"

	// MaxColumnWidth caps auto-sized column widths, in characters.
	MaxColumnWidth = 50

	// ContentType is the MIME type of the rendered workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Filename builds the attachment name for an export taken at now.
// Unset bounds are written as "start" and "end"; with neither set the
// range part is omitted.
func Filename(prefix, start, end string, now time.Time) string {
	var rangePart string
	if start != "" || end != "" {
		if start == "" {
			start = "start"
		}
		if end == "" {
			end = "end"
		}
		rangePart = "_" + start + "_to_" + end
	}
	return fmt.Sprintf("%s%s_%s.xlsx", prefix, rangePart, now.UTC().Format("2006-01-02"))
}

// WriteXLSX writes rs as a single-sheet workbook to w.
// The header row is the union of row columns in first-seen order.
func WriteXLSX(w io.Writer, rs []rows.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	columns := rows.Columns(rs)
	widths := make([]int, len(columns))

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
		widths[i] = utf8.RuneCountInString(col)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, row := range rs {
		values := make([]interface{}, len(columns))
		for i, col := range columns {
			v, _ := row.Get(col)
			values[i] = cellValue(v)
			if n := utf8.RuneCountInString(cellText(v)); n > widths[i] {
				widths[i] = n
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	for i, width := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, float64(min(width+2, MaxColumnWidth))); err != nil {
			return fmt.Errorf("set width of column %s: %w", name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// cellValue converts a decoded JSON value into something excelize stores
// natively. Numbers stay numeric when they parse.
func cellValue(v any) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case string, bool:
		return x
	default:
		return cellText(v)
	}
}

// cellText is the display text of a value, used for width sizing.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
