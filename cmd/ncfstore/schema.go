package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vegasq/ncfstore/output"
	"github.com/vegasq/ncfstore/reader"
)

func newSchemaCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "schema <file>",
		Short: "Show the columns of an NCF or Parquet file",
		Long: `Print one row per column. For NCF files this includes the data type,
whether the column has a null bitmap and the byte range of its block. For a
glob pattern the first matching file is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = a.cfg.Output.Format
			}
			formatter, err := output.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			path, err := resolveSchemaPath(cmd, args[0])
			if err != nil {
				return err
			}

			infos, err := reader.ExtractSchemaInfo(path)
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("file '%s' not found", path)
			}
			if err != nil {
				return err
			}

			rows := make([]map[string]interface{}, len(infos))
			for i, field := range infos {
				row := map[string]interface{}{
					"name":     field.Name,
					"type":     field.Type,
					"required": field.Required,
					"optional": field.Optional,
					"repeated": field.Repeated,
				}
				if field.PhysicalType != "" {
					row["physical_type"] = field.PhysicalType
				}
				if field.LogicalType != "" {
					row["logical_type"] = field.LogicalType
				}
				if field.Length > 0 {
					row["offset"] = field.Offset
					row["length"] = field.Length
				}
				rows[i] = row
			}
			return formatter.Format(rows)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: "+formatList()+" (default from config)")
	return cmd
}

func resolveSchemaPath(cmd *cobra.Command, pattern string) (string, error) {
	if !strings.ContainsAny(pattern, "*?[]{}") {
		return pattern, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no files match pattern: %s", pattern)
	}
	if len(matches) > 1 {
		fmt.Fprintf(cmd.ErrOrStderr(), "# Showing schema from: %s (%d files matched)\n", matches[0], len(matches))
	}
	return matches[0], nil
}
