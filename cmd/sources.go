package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/gateway"
	"github.com/KaramelBytes/insightloom/internal/outwriter"
)

var (
	sourcesFormat  string
	sourcesBackend string
	sourcesDSN     string
	sourcesDataDir string
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List data source keys with their tables and row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outwriter.ParseFormat(sourcesFormat)
		if err != nil {
			return err
		}
		src, _, err := openSource(cfg, sourceOptions{Backend: sourcesBackend, DSN: sourcesDSN, Dir: sourcesDataDir})
		if err != nil {
			return err
		}
		defer func() { _ = gateway.CloseSource(src) }()

		counts, err := rowCounts(cmd.Context(), src)
		if err != nil {
			return err
		}
		rows := make([]outwriter.SourceRow, 0, len(gateway.SourceKeys()))
		for _, key := range gateway.SourceKeys() {
			k, _ := gateway.KindForSource(key)
			rows = append(rows, outwriter.SourceRow{Key: key, Table: k.String(), Rows: counts[k]})
		}
		return outwriter.WriteSources(cmd.OutOrStdout(), rows, outwriter.Options{Format: format})
	},
}

// rowCounts asks SQL sources for COUNT(*) and loads every table otherwise.
func rowCounts(ctx context.Context, src gateway.DataSource) (map[gateway.Kind]int, error) {
	if c, ok := src.(interface {
		Counts(context.Context) (map[gateway.Kind]int, error)
	}); ok {
		return c.Counts(ctx)
	}
	tables, err := gateway.New(src).FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[gateway.Kind]int, len(tables))
	for k, t := range tables {
		out[k] = len(t.Rows)
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.Flags().StringVarP(&sourcesFormat, "format", "f", "table", "output format: table|json|markdown")
	addSourceFlags(sourcesCmd, &sourcesBackend, &sourcesDSN, &sourcesDataDir)
}
