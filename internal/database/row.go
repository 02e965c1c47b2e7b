package database

import (
	"github.com/koustreak/DryDB/internal/errs"
)

// Normalizer converts a driver-native value into its display form. dbType is
// the driver's type name for the column, or "" when the driver reports none.
type Normalizer func(dbType string, v any) any

// NormalizeBytes turns []byte into string and leaves everything else alone.
// Text columns from MySQL and numeric columns from most drivers arrive as
// byte slices.
func NormalizeBytes(_ string, v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// ScanRows reads all rows from the result set into a ResultSet, applying
// normalize to every value. A nil normalize means NormalizeBytes.
//
// Rows is always non-nil (empty slice on zero rows).
// ScanRows always closes rows.
func ScanRows(rows Rows, normalize Normalizer) (*ResultSet, error) {
	defer rows.Close()

	if normalize == nil {
		normalize = NormalizeBytes
	}

	columns, err := rows.Columns()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read column names", err)
	}

	dbTypes := make([]string, len(columns))
	if types, err := rows.ColumnTypes(); err == nil && len(types) == len(columns) {
		for i, ct := range types {
			dbTypes[i] = ct.DatabaseTypeName()
		}
	}

	result := &ResultSet{Columns: columns, Rows: make([]Record, 0)}

	for rows.Next() {
		// Allocate scan targets as *any so the driver can write any type.
		dest := make([]any, len(columns))
		destPtrs := make([]any, len(columns))
		for i := range dest {
			destPtrs[i] = &dest[i]
		}

		if err := rows.Scan(destPtrs...); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to scan row", err)
		}

		rec := make(Record, len(columns))
		for i, col := range columns {
			rec[col] = normalize(dbTypes[i], dest[i])
		}
		result.Rows = append(result.Rows, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "error during row iteration", err)
	}

	return result, nil
}
