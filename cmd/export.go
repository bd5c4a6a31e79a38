package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/export"
	"github.com/KaramelBytes/insightloom/internal/gateway"
	"github.com/KaramelBytes/insightloom/internal/utils"
)

var (
	exportSource   string
	exportOut      string
	exportFrom     string
	exportTo       string
	exportRegion   string
	exportProduct  string
	exportIndustry string
	exportType     string
	exportMin      float64
	exportBackend  string
	exportDSN      string
	exportDataDir  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch one data source with filters and write it as Parquet",
	Example: `  insightloom export --source erp_sales --out sales.parquet
  insightloom export --source transactions --date-from 2025-07-01 --date-to 2025-09-30 --out q3.parquet`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := gateway.KindForSource(exportSource)
		if !ok {
			return fmt.Errorf("--source must be one of %v", gateway.SourceKeys())
		}
		if exportOut == "" {
			return fmt.Errorf("--out is required")
		}

		f := cmd.Flags()
		var filters gateway.FilterSet
		str := func(name, val string) *string {
			if f.Changed(name) {
				return gateway.StringPtr(val)
			}
			return nil
		}
		filters.DateFrom = str("date-from", exportFrom)
		filters.DateTo = str("date-to", exportTo)
		filters.Region = str("region", exportRegion)
		filters.Product = str("product", exportProduct)
		filters.Industry = str("industry", exportIndustry)
		filters.TransactionType = str("type", exportType)
		if f.Changed("min-amount") {
			filters.MinAmount = gateway.FloatPtr(exportMin)
		}
		filters, dropped := filters.Normalize()
		if len(dropped) > 0 {
			fmt.Fprintf(os.Stderr, "⚠ Warning: ignoring unusable filters %v\n", dropped)
		}

		src, _, err := openSource(cfg, sourceOptions{Backend: exportBackend, DSN: exportDSN, Dir: exportDataDir})
		if err != nil {
			return err
		}
		defer func() { _ = gateway.CloseSource(src) }()

		tables, err := gateway.New(src).Fetch(cmd.Context(), []string{exportSource}, filters)
		if err != nil {
			return err
		}
		t, _ := tables.Get(kind)
		if err := utils.EnsureDir(filepath.Dir(exportOut)); err != nil {
			return err
		}
		n, err := export.WriteTable(t, exportOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "💾 Wrote %s rows of %s to %s\n", humanize.Comma(int64(n)), kind, exportOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportSource, "source", "s", "", "data source key, e.g. erp_sales")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output Parquet file")
	exportCmd.Flags().StringVar(&exportFrom, "date-from", "", "keep rows on or after this date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "date-to", "", "keep rows on or before this date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportRegion, "region", "", "keep rows of this region")
	exportCmd.Flags().StringVar(&exportProduct, "product", "", "keep rows of this product")
	exportCmd.Flags().StringVar(&exportIndustry, "industry", "", "keep rows whose customer is in this industry")
	exportCmd.Flags().StringVar(&exportType, "type", "", "keep business transactions of this type")
	exportCmd.Flags().Float64Var(&exportMin, "min-amount", 0, "keep rows whose amount is at least this value")
	addSourceFlags(exportCmd, &exportBackend, &exportDSN, &exportDataDir)
}
