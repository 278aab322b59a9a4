package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vegasq/ncfstore/output"
	"github.com/vegasq/ncfstore/query"
	"github.com/vegasq/ncfstore/reader"
)

func newQueryCmd(a *app) *cobra.Command {
	var sql, format string
	var limit int

	cmd := &cobra.Command{
		Use:   "query [file]",
		Short: "Query NCF, Parquet or JSON Lines files",
		Long: `Read a file (or a glob of files) and print its rows, optionally filtered,
sorted and aggregated by a SQL query. The file may be given as an argument
or as the FROM table of the query.

When the query contains aggregate functions a single row holding the
aggregate values is printed instead of the matching rows.`,
		Example: `  ncfstore query events.ncf
  ncfstore query -f csv events.ncf
  ncfstore query -q "SELECT userId, amount FROM events.ncf WHERE amount > 10 ORDER BY amount DESC"
  ncfstore query -q "SELECT COUNT(*), AVG(amount) FROM 'data/ncf/*.ncf'"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be non-negative, got %d", limit)
			}
			if format == "" {
				format = a.cfg.Output.Format
			}
			formatter, err := output.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			var path string
			if len(args) == 1 {
				path = args[0]
			}

			q := query.New()
			if sql != "" {
				stmt, err := query.Parse(sql)
				if err != nil {
					return fmt.Errorf("failed to parse query: %w", err)
				}
				q = stmt.Query
				if path == "" {
					path = stmt.Table
				}
			}
			if path == "" {
				return errors.New("missing file argument")
			}
			if limit > 0 && (q.RowLimit == nil || *q.RowLimit > limit) {
				q.Limit(limit)
			}

			rows, err := reader.ReadMultipleFiles(path)
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("file '%s' not found", path)
			}
			if err != nil {
				return err
			}

			result := q.Execute(rows)
			a.log.Debug("Query executed",
				zap.String("path", path),
				zap.Stringer("query", q),
				zap.Int("rows_read", len(rows)),
				zap.Int("rows_returned", result.RowCount()))

			if len(q.Aggregations) > 0 {
				return formatter.Format([]map[string]interface{}{result.Aggregations()})
			}
			return formatter.Format(result.Rows())
		},
	}

	cmd.Flags().StringVarP(&sql, "query", "q", "", `SQL query (e.g., "SELECT * FROM events.ncf WHERE age > 30")`)
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: "+formatList()+" (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit number of rows (0 = unlimited)")
	return cmd
}

func formatList() string {
	return strings.Join(output.Formats(), ", ")
}
