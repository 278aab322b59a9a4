package output

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// TableFormatter outputs rows as an aligned text table
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// Format renders rows under a header of sorted column names followed by a
// row count line. Column names keep their original case.
func (t *TableFormatter) Format(rows []map[string]interface{}) error {
	columns := columnNames(rows)

	table := tablewriter.NewWriter(t.writer)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	if len(columns) > 0 {
		table.SetHeader(columns)
	}

	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = formatValue(row[col])
		}
		table.Append(record)
	}
	table.Render()

	_, err := io.WriteString(t.writer, rowCountLine(len(rows)))
	return err
}

func rowCountLine(n int) string {
	if n == 1 {
		return "(1 row)\n"
	}
	return "(" + strconv.Itoa(n) + " rows)\n"
}
