package driver

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"

	"github.com/LonxunQuantum/CASMcode/internal/monte"
)

// resultsFile is one cumulative results summary, one row per finished
// condition.
type resultsFile interface {
	Path() string
	// Rows returns the number of rows; a missing file has none.
	Rows() (int, error)
	// Truncate keeps the first n rows.
	Truncate(n int) error
	// Append adds row as row n, dropping any rows from n on.
	Append(n int, row monte.Row) error
}

func malformed(path string, err error) error {
	return monte.Errorf(monte.ErrCodeMalformedResults, "cannot read results summary").InFile(path).Wrap(err)
}

// jsonResults is column oriented: {"T": [...], "N_samples": [...], ...}.
// Non-finite values are written as null.
type jsonResults struct {
	path string
}

func (r jsonResults) Path() string { return r.path }

func (r jsonResults) read() ([]string, map[string][]json.RawMessage, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read results: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, malformed(r.path, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, malformed(r.path, fmt.Errorf("expected an object, got %v", tok))
	}
	var cols []string
	values := make(map[string][]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, malformed(r.path, err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, nil, malformed(r.path, fmt.Errorf("expected a column name, got %v", tok))
		}
		var col []json.RawMessage
		if err := dec.Decode(&col); err != nil {
			return nil, nil, malformed(r.path, fmt.Errorf("column %q: %w", name, err))
		}
		cols = append(cols, name)
		values[name] = col
	}
	for _, c := range cols {
		if len(values[c]) != len(values[cols[0]]) {
			return nil, nil, malformed(r.path, fmt.Errorf("column %q has %d rows, %q has %d",
				c, len(values[c]), cols[0], len(values[cols[0]])))
		}
	}
	return cols, values, nil
}

func (r jsonResults) Rows() (int, error) {
	cols, values, err := r.read()
	if err != nil || len(cols) == 0 {
		return 0, err
	}
	return len(values[cols[0]]), nil
}

func (r jsonResults) Truncate(n int) error {
	cols, values, err := r.read()
	if err != nil {
		return err
	}
	for _, c := range cols {
		values[c] = values[c][:min(n, len(values[c]))]
	}
	return r.write(cols, values)
}

func (r jsonResults) Append(n int, row monte.Row) error {
	cols, values, err := r.read()
	if err != nil {
		return err
	}
	names := row.Names()
	if len(cols) > 0 && n > 0 && !slices.Equal(cols, names) {
		return monte.Errorf(monte.ErrCodeMalformedResults, "results columns %v do not match %v", cols, names).InFile(r.path)
	}
	if values == nil {
		values = make(map[string][]json.RawMessage)
	}
	for _, f := range row {
		col := values[f.Name]
		values[f.Name] = append(col[:min(n, len(col))], jsonValue(f.Value))
	}
	return r.write(names, values)
}

func (r jsonResults) write(cols []string, values map[string][]json.RawMessage) error {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, c := range cols {
		key, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode results column: %w", err)
		}
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": [")
		for j, v := range values[c] {
			if j > 0 {
				buf.WriteString(", ")
			}
			buf.Write(v)
		}
		buf.WriteString("]")
		if i < len(cols)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	if err := os.WriteFile(r.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

func jsonValue(v any) json.RawMessage {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return json.RawMessage("null")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// csvResults has a header line followed by one line per condition.
type csvResults struct {
	path string
}

func (r csvResults) Path() string { return r.path }

func (r csvResults) read() ([]string, [][]string, error) {
	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read results: %w", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, malformed(r.path, err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

func (r csvResults) Rows() (int, error) {
	_, rows, err := r.read()
	return len(rows), err
}

func (r csvResults) Truncate(n int) error {
	header, rows, err := r.read()
	if err != nil {
		return err
	}
	return r.write(header, rows[:min(n, len(rows))])
}

func (r csvResults) Append(n int, row monte.Row) error {
	header, rows, err := r.read()
	if err != nil {
		return err
	}
	names := row.Names()
	if len(header) > 0 && n > 0 && !slices.Equal(header, names) {
		return monte.Errorf(monte.ErrCodeMalformedResults, "results columns %v do not match %v", header, names).InFile(r.path)
	}
	line := make([]string, len(row))
	for i, f := range row {
		line[i] = csvValue(f.Value)
	}
	rows = append(rows[:min(n, len(rows))], line)
	return r.write(names, rows)
}

func (r csvResults) write(header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(header) > 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := os.WriteFile(r.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

func csvValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// writeObservations dumps every sample of buf as a table with the sample
// time first.
func writeObservations(path string, buf *monte.SampleBuffer) error {
	var out bytes.Buffer
	w := csv.NewWriter(&out)
	names := buf.Names()
	if err := w.Write(append([]string{"pass", "step"}, names...)); err != nil {
		return fmt.Errorf("encode observations: %w", err)
	}
	line := make([]string, 2+len(names))
	for i, t := range buf.Times() {
		line[0], line[1] = strconv.Itoa(t.Pass), strconv.Itoa(t.Step)
		for j, n := range names {
			line[2+j] = csvValue(buf.Values(n)[i])
		}
		if err := w.Write(line); err != nil {
			return fmt.Errorf("encode observations: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode observations: %w", err)
	}
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write observations: %w", err)
	}
	return nil
}
