package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vegasq/ncfstore/ncf"
	"github.com/vegasq/ncfstore/reader"
)

func newConvertCmd(a *app) *cobra.Command {
	var compression string

	cmd := &cobra.Command{
		Use:   "convert <input> <output.ncf>",
		Short: "Convert a Parquet, JSON Lines or NCF file to NCF",
		Long: `Read every row of the input and write them to a new NCF file. Column
types are inferred from the first non-null value of each field; a later
value of a different type aborts the conversion.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], args[1]
			if compression == "" {
				compression = a.cfg.Compression
			}

			rows, err := reader.ReadFile(in)
			if err != nil {
				return err
			}

			w := ncf.NewWriter(compression)
			for i, row := range rows {
				if err := w.AddRow(row); err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			if err := w.Write(f); err != nil {
				f.Close()
				os.Remove(out)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close output: %w", err)
			}

			a.log.Info("Converted file",
				zap.String("input", in),
				zap.String("output", out),
				zap.Int("rows", w.RowCount()),
				zap.Strings("columns", w.ColumnNames()))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows, %d columns to %s\n", w.RowCount(), len(w.ColumnNames()), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&compression, "compression", "", fmt.Sprintf("Compression label stored in the header, at most %d bytes (default from config)", ncf.MaxCompressionLabel))
	return cmd
}
