package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
	"github.com/koustreak/DryDB/internal/history"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func checkFormat(format string) error {
	if format != formatTable && format != formatJSON {
		return errs.Newf(errs.ErrKindInvalidInput, "unknown output format %q", format)
	}
	return nil
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderResults(w io.Writer, rs *database.ResultSet, format string) error {
	if format == formatJSON {
		return renderJSON(w, rs)
	}
	if len(rs.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := newTable(w)
	header := make(table.Row, len(rs.Columns))
	for i, c := range rs.Columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, rec := range rs.Rows {
		row := make(table.Row, len(rs.Columns))
		for i, c := range rs.Columns {
			row[i] = formatValue(rec[c])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rs.Rows))
	return nil
}

func renderSchema(w io.Writer, schema *database.DatabaseSchema, format string) error {
	if format == formatJSON {
		return renderJSON(w, schema)
	}
	if len(schema.Tables) == 0 {
		_, _ = fmt.Fprintln(w, "(no tables)")
		return nil
	}

	for _, tbl := range schema.Tables {
		_, _ = fmt.Fprintf(w, "%s\n", tbl.Name)
		t := newTable(w)
		t.AppendHeader(table.Row{"Column", "Type", "Nullable", "Key", "Default"})
		for _, c := range tbl.Columns {
			t.AppendRow(table.Row{c.Name, c.Type, yesNo(c.Nullable), keyMarker(c), defaultValue(c.DefaultValue)})
		}
		t.Render()
		_, _ = fmt.Fprintln(w)
	}
	return nil
}

func renderConnections(w io.Writer, list []history.Connection, format string) error {
	if format == formatJSON {
		for i := range list {
			list[i].Credentials = list[i].Credentials.Redacted()
		}
		return renderJSON(w, list)
	}
	if len(list) == 0 {
		_, _ = fmt.Fprintln(w, "(no saved connections)")
		return nil
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Dialect", "Target", "Last used"})
	for _, c := range list {
		t.AppendRow(table.Row{c.ID, c.Name, c.Credentials.Dialect, target(c.Credentials), when(c.LastUsed)})
	}
	t.Render()
	return nil
}

func renderQueries(w io.Writer, list []history.QueryRecord, format string) error {
	if format == formatJSON {
		return renderJSON(w, list)
	}
	if len(list) == 0 {
		_, _ = fmt.Fprintln(w, "(no queries)")
		return nil
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Executed", "OK", "Query", "Error"})
	for _, q := range list {
		t.AppendRow(table.Row{q.ID, q.ExecutedAt.Local().Format(time.DateTime), yesNo(q.Success), q.Query, q.Error})
	}
	t.Render()
	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func keyMarker(c database.ColumnInfo) string {
	switch {
	case c.IsPrimaryKey && c.IsForeignKey:
		return "PK FK"
	case c.IsPrimaryKey:
		return "PK"
	case c.IsForeignKey:
		return "FK"
	}
	return ""
}

func defaultValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func target(c database.Credentials) string {
	if c.Dialect.FileBased() {
		return c.Database
	}
	return c.Address() + "/" + c.Database
}

func when(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
