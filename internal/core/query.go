package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/giantswarm/pgenv/internal/pgtool"
)

// QueryResult is the normalized outcome of a structured query execution.
// Data is a JSON array of row objects for row-returning statements and
// JSON null otherwise. Stdout and Stderr are psql's raw streams, so
// NOTICE chatter on a successful statement is not lost. RowCount is the
// number of rows returned, or the count parsed from the server's command
// tag; it is nil when the statement produced neither rows nor a countable
// tag (e.g. DROP TABLE).
type QueryResult struct {
	Data     json.RawMessage `json:"data"`
	Stdout   string          `json:"stdout"`
	Stderr   string          `json:"stderr"`
	RowCount *int            `json:"rowCount"`
}

// rowKeywords are the statement-leading keywords that produce a result set.
var rowKeywords = map[string]bool{
	"SELECT": true,
	"VALUES": true,
	"TABLE":  true,
	"WITH":   true,
}

// returnsRows reports whether the statement's leading keyword announces a
// result set.
func returnsRows(sql string) bool {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return false
	}
	return rowKeywords[strings.ToUpper(fields[0])]
}

// parseCommandTag extracts the affected-row count from psql output for
// non-row statements ("INSERT 0 5" → 5). The tag is the last non-empty
// line of stdout; tags without a trailing number ("DROP TABLE") report
// ok=false, there is no count to parse.
func parseCommandTag(stdout string) (int, bool) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for idx := len(lines) - 1; idx >= 0; idx-- {
		line := strings.TrimSpace(lines[idx])
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			return n, true
		}
		return 0, false
	}
	return 0, false
}

// nonRowResult assembles the outcome of a statement without a result set:
// null data, the raw streams, and the command tag count when the server
// reported one.
func nonRowResult(res pgtool.Result) *QueryResult {
	qr := &QueryResult{
		Data:   json.RawMessage("null"),
		Stdout: res.Stdout,
		Stderr: res.Stderr,
	}
	if n, ok := parseCommandTag(res.Stdout); ok {
		qr.RowCount = &n
	}
	return qr
}

// quietPsql returns the psql options shared by the structured query paths:
// no startup file, no chatter, abort on the first server error so a failed
// statement always surfaces through the exit code.
func quietPsql(command string) pgtool.PsqlConfig {
	return pgtool.PsqlConfig{
		Command:  command,
		Quiet:    true,
		NoPsqlrc: true,
		Variable: &pgtool.Variable{Name: "ON_ERROR_STOP", Value: "1"},
	}
}

// ExecuteSQL runs a statement (or the script configured in cfg) through
// psql with the caller's full option bag. A non-zero exit is returned as
// data in the Result, mirroring the tool layer.
func (i *Instance) ExecuteSQL(ctx context.Context, sql string, cfg pgtool.PsqlConfig, database string) (pgtool.Result, error) {
	if sql != "" {
		cfg.Command = sql
	}
	if cfg.Command == "" && cfg.File == "" && !cfg.List {
		return pgtool.Result{}, ErrEmptySQL
	}
	conn, err := i.runningConnConfig(database)
	if err != nil {
		return pgtool.Result{}, err
	}
	return i.invoker.Run(ctx, pgtool.Psql, cfg.Args(conn), conn.Password)
}

// ExecuteSQLFile executes a SQL script file through psql.
func (i *Instance) ExecuteSQLFile(ctx context.Context, path string, cfg pgtool.PsqlConfig, database string) (pgtool.Result, error) {
	if path == "" {
		return pgtool.Result{}, ErrEmptySQL
	}
	cfg.File = path
	cfg.Command = ""
	conn, err := i.runningConnConfig(database)
	if err != nil {
		return pgtool.Result{}, err
	}
	return i.invoker.Run(ctx, pgtool.Psql, cfg.Args(conn), conn.Password)
}

// ExecuteSQLJSON executes a statement and returns its rows as a JSON array
// built server-side with json_agg(row_to_json(...)). Non-row statements
// run unmodified and report the command tag count with null data. Unlike
// ExecuteSQL, a failed statement is an error, carrying the server's stderr.
func (i *Instance) ExecuteSQLJSON(ctx context.Context, sql, database string) (*QueryResult, error) {
	stmt := strings.TrimSpace(sql)
	if stmt == "" {
		return nil, ErrEmptySQL
	}
	conn, err := i.runningConnConfig(database)
	if err != nil {
		return nil, err
	}

	if !returnsRows(stmt) {
		cfg := quietPsql(stmt)
		res, err := i.invoker.RunChecked(ctx, pgtool.Psql, cfg.Args(conn), conn.Password)
		if err != nil {
			return nil, err
		}
		return nonRowResult(res), nil
	}

	// Aggregate server-side so the output is one JSON value regardless of
	// row content. coalesce turns the empty set into [] instead of NULL.
	wrapped := fmt.Sprintf(
		"SELECT coalesce(json_agg(row_to_json(t)), '[]'::json) FROM (%s) t",
		strings.TrimRight(stmt, "; \t\r\n"),
	)
	cfg := quietPsql(wrapped)
	cfg.TuplesOnly = true
	cfg.NoAlign = true

	res, err := i.invoker.RunChecked(ctx, pgtool.Psql, cfg.Args(conn), conn.Password)
	if err != nil {
		return nil, err
	}

	out := strings.TrimSpace(res.Stdout)
	parsed := gjson.Parse(out)
	if !gjson.Valid(out) || !parsed.IsArray() {
		return nil, fmt.Errorf("query did not produce a JSON array: %q", truncateForError(out))
	}
	rows := len(parsed.Array())
	return &QueryResult{
		Data:     json.RawMessage(out),
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		RowCount: &rows,
	}, nil
}

// ExecuteSQLStructured executes a statement and assembles the same
// array-of-objects JSON as ExecuteSQLJSON from psql's CSV output,
// preserving the server's column order. Values that are textually
// unambiguous JSON numbers or booleans are emitted unquoted; an unquoted
// empty field (psql's CSV rendering of NULL) becomes JSON null.
func (i *Instance) ExecuteSQLStructured(ctx context.Context, sql, database string) (*QueryResult, error) {
	stmt := strings.TrimSpace(sql)
	if stmt == "" {
		return nil, ErrEmptySQL
	}
	conn, err := i.runningConnConfig(database)
	if err != nil {
		return nil, err
	}

	if !returnsRows(stmt) {
		cfg := quietPsql(stmt)
		res, err := i.invoker.RunChecked(ctx, pgtool.Psql, cfg.Args(conn), conn.Password)
		if err != nil {
			return nil, err
		}
		return nonRowResult(res), nil
	}

	cfg := quietPsql(stmt)
	cfg.CSV = true
	res, err := i.invoker.RunChecked(ctx, pgtool.Psql, cfg.Args(conn), conn.Password)
	if err != nil {
		return nil, err
	}

	data, rows, err := csvToJSON(res.Stdout)
	if err != nil {
		return nil, fmt.Errorf("transform csv output: %w", err)
	}
	return &QueryResult{Data: data, Stdout: res.Stdout, Stderr: res.Stderr, RowCount: &rows}, nil
}

// csvField is one CSV field with its quoting preserved. Quoting matters:
// psql renders NULL as an unquoted empty field and the empty string as a
// quoted one, a distinction encoding/csv erases.
type csvField struct {
	value  string
	quoted bool
}

// parseCSV splits psql --csv output into records, keeping per-field quote
// information. It handles quoted fields containing commas, newlines, and
// doubled quotes.
func parseCSV(s string) ([][]csvField, error) {
	var records [][]csvField
	var record []csvField
	var buf strings.Builder
	quoted := false
	inQuotes := false

	endField := func() {
		record = append(record, csvField{value: buf.String(), quoted: quoted})
		buf.Reset()
		quoted = false
	}

	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		if inQuotes {
			if c == '"' {
				if idx+1 < len(s) && s[idx+1] == '"' {
					buf.WriteByte('"')
					idx++
					continue
				}
				inQuotes = false
				continue
			}
			buf.WriteByte(c)
			continue
		}
		switch c {
		case '"':
			if buf.Len() == 0 && !quoted {
				quoted = true
				inQuotes = true
			} else {
				buf.WriteByte(c)
			}
		case ',':
			endField()
		case '\r':
			// swallowed; the following \n ends the record
		case '\n':
			endField()
			records = append(records, record)
			record = nil
		default:
			buf.WriteByte(c)
		}
	}
	if inQuotes {
		return nil, errors.New("unterminated quoted field")
	}
	if buf.Len() > 0 || quoted || len(record) > 0 {
		endField()
		records = append(records, record)
	}
	return records, nil
}

// isJSONNumber reports whether s is a valid JSON number literal.
func isJSONNumber(s string) bool {
	if s == "" {
		return false
	}
	if c := s[0]; c != '-' && (c < '0' || c > '9') {
		return false
	}
	return json.Valid([]byte(s))
}

// appendJSONValue writes a CSV field as a JSON value. Unquoted empty
// fields are null; unquoted number and boolean literals pass through
// unquoted; everything else is a JSON string.
func appendJSONValue(buf *bytes.Buffer, f csvField) error {
	if !f.quoted {
		if f.value == "" {
			buf.WriteString("null")
			return nil
		}
		if f.value == "true" || f.value == "false" || isJSONNumber(f.value) {
			buf.WriteString(f.value)
			return nil
		}
	}
	b, err := json.Marshal(f.value)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// csvToJSON converts psql --csv output (header row plus data rows) into an
// array-of-objects JSON document with the header's column order.
func csvToJSON(csvOut string) (json.RawMessage, int, error) {
	records, err := parseCSV(csvOut)
	if err != nil {
		return nil, 0, err
	}
	if len(records) == 0 {
		return nil, 0, errors.New("missing csv header")
	}
	header := records[0]
	rows := records[1:]

	var buf bytes.Buffer
	buf.WriteByte('[')
	for rowIdx, row := range rows {
		if len(row) != len(header) {
			return nil, 0, fmt.Errorf("row %d has %d fields, header has %d", rowIdx+1, len(row), len(header))
		}
		if rowIdx > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for colIdx, field := range row {
			if colIdx > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(header[colIdx].value)
			if err != nil {
				return nil, 0, err
			}
			buf.Write(name)
			buf.WriteByte(':')
			if err := appendJSONValue(&buf, field); err != nil {
				return nil, 0, err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), len(rows), nil
}

// truncateForError keeps error messages readable when psql output is large.
func truncateForError(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
