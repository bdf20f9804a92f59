package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/askdb-labs/askdb/internal/executor"
)

// renderResult writes a result set in the requested format.
func renderResult(out io.Writer, rs *executor.ResultSet, format string) error {
	switch format {
	case "json":
		return renderJSON(out, rs)
	case "csv":
		return renderCSV(out, rs)
	case "table", "":
		renderTable(out, rs, false)
		return nil
	case "markdown":
		renderTable(out, rs, true)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table, json, csv, or markdown)", format)
	}
}

func renderTable(out io.Writer, rs *executor.ResultSet, markdown bool) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(rs.Columns))
	for i, c := range rs.Columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, row := range rs.Rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = cellValue(v)
		}
		t.AppendRow(r)
	}

	if markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
	suffix := ""
	if rs.Truncated {
		suffix = ", truncated"
	}
	_, _ = fmt.Fprintf(out, "(%d rows%s, %s)\n", len(rs.Rows), suffix, rs.Elapsed.Round(1e6))
}

func renderJSON(out io.Writer, rs *executor.ResultSet) error {
	records := make([]map[string]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		rec := make(map[string]any, len(row))
		for i, v := range row {
			rec[rs.Columns[i]] = cellValue(v)
		}
		records = append(records, rec)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func renderCSV(out io.Writer, rs *executor.ResultSet) error {
	w := csv.NewWriter(out)
	if err := w.Write(rs.Columns); err != nil {
		return err
	}
	for _, row := range rs.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = fmt.Sprint(cellValue(v))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// cellValue converts driver byte slices into printable strings.
func cellValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
