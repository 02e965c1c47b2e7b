// Package export writes query results to spreadsheet files and optionally
// publishes them to object storage.
package export

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet names the worksheet holding the results.
const DefaultSheet = "Results"

// FileName is the export file name for t, e.g. query_results_20240301_1405.xlsx.
func FileName(t time.Time) string {
	return "query_results_" + t.Format("20060102_1504") + ".xlsx"
}

// WriteXLSX writes rs as a workbook with a bold header row followed by one row
// per record, columns in result order. An empty result set is rejected.
func WriteXLSX(w io.Writer, rs *database.ResultSet, sheet string) error {
	if rs == nil || len(rs.Rows) == 0 {
		return errs.New(errs.ErrKindInvalidInput, "no results to export")
	}
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid sheet name", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "failed to open sheet writer", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "failed to create header style", err)
	}

	columns := rs.Columns
	if len(columns) == 0 {
		columns = keysOf(rs.Rows[0])
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = excelize.Cell{StyleID: bold, Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "failed to write header", err)
	}

	for r, rec := range rs.Rows {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = cellValue(rec[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return errs.Wrap(errs.ErrKindUnknown, "failed to address row", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return errs.Wrap(errs.ErrKindUnknown, fmt.Sprintf("failed to write row %d", r+1), err)
		}
	}

	if err := sw.Flush(); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "failed to flush sheet", err)
	}
	if err := f.Write(w); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "failed to write workbook", err)
	}
	return nil
}

// cellValue keeps the types excelize renders natively and stringifies the rest.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, time.Time:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func keysOf(rec database.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
