// Package output renders query rows as JSON Lines, JSON, CSV or a text table.
//
// Example usage:
//
//	formatter, err := output.New("csv", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := formatter.Format(rows); err != nil {
//	    log.Fatal(err)
//	}
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Formatter defines the interface for output formatters.
//
// Implementers must provide Format to convert rows to the target format
// and SetOutput to change the output destination.
type Formatter interface {
	// Format writes rows in the formatter's specific format
	Format(rows []map[string]interface{}) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

var constructors = map[string]func(io.Writer) Formatter{
	"jsonl": func(w io.Writer) Formatter { return NewJSONLinesFormatter(w) },
	"json":  func(w io.Writer) Formatter { return NewJSONFormatter(w) },
	"csv":   func(w io.Writer) Formatter { return NewCSVFormatter(w) },
	"table": func(w io.Writer) Formatter { return NewTableFormatter(w) },
}

// Formats lists the names New accepts.
func Formats() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the formatter registered under name, writing to w.
func New(name string, w io.Writer) (Formatter, error) {
	ctor, ok := constructors[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (supported: %s)", name, strings.Join(Formats(), ", "))
	}
	return ctor(w), nil
}

// columnNames returns the union of keys across rows, sorted, so rows with
// different fields still share one header.
func columnNames(rows []map[string]interface{}) []string {
	columnSet := make(map[string]struct{})
	for _, row := range rows {
		for col := range row {
			columnSet[col] = struct{}{}
		}
	}

	columns := make([]string, 0, len(columnSet))
	for col := range columnSet {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}
