package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/gateway"
	"github.com/KaramelBytes/insightloom/internal/logging"
	"github.com/KaramelBytes/insightloom/internal/outwriter"
	"github.com/KaramelBytes/insightloom/internal/pipeline"
)

var (
	queryUser       string
	queryFormat     string
	queryOutput     string
	querySources    string
	queryProvider   string
	queryModel      string
	queryOllamaHost string
	queryBackend    string
	queryDSN        string
	queryDataDir    string
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a business question with a full report",
	Example: `  insightloom query "Show me Q3 sales performance"
  insightloom query "Revenue trend in the North region" --user dana@example.com --format json
  insightloom query "Pipeline health" --sources crm_opportunities,crm_customers --output pipeline.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return fmt.Errorf("question must not be empty")
		}

		formatName := queryFormat
		if !cmd.Flags().Changed("format") {
			formatName = formatForPath(queryOutput, c.Output.Format)
		}
		format, err := outwriter.ParseFormat(formatName)
		if err != nil {
			return err
		}
		sources, err := parseSources(querySources)
		if err != nil {
			return err
		}

		log := newLogger(logging.LevelWarn)
		llm, err := buildCompleter(c, runtimeOptions{ProviderFlag: queryProvider, ModelFlag: queryModel, OllamaHost: queryOllamaHost})
		if err != nil {
			return err
		}
		src, _, err := openSource(c, sourceOptions{Backend: queryBackend, DSN: queryDSN, Dir: queryDataDir})
		if err != nil {
			return err
		}
		defer func() { _ = gateway.CloseSource(src) }()

		p := buildPipeline(c, src, llm, log, sources)
		res := p.ProcessQuery(cmd.Context(), question, resolveUser(c, queryUser))

		opt := outwriter.Options{Format: format}
		if queryOutput != "" {
			if err := outwriter.WriteFile(queryOutput, res, opt); err != nil {
				return err
			}
		} else {
			opt.Color = outwriter.ResolveColor(c.Output.Color, os.Stdout)
			if err := outwriter.Write(cmd.OutOrStdout(), res, opt); err != nil {
				return err
			}
		}
		if res.Status == pipeline.StatusError {
			return fmt.Errorf("request %s failed: %s", res.RequestID, res.Error)
		}
		return nil
	},
}

// formatForPath infers the format from an output file extension.
func formatForPath(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return string(outwriter.JSONOut)
	case ".md", ".markdown":
		return string(outwriter.MarkdownOut)
	}
	return fallback
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryUser, "user", "u", "", "email of the requesting user (looked up in server.users)")
	queryCmd.Flags().StringVarP(&queryFormat, "format", "f", "table", "output format: table|json|markdown")
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "", "write the report to a file instead of stdout")
	queryCmd.Flags().StringVar(&querySources, "sources", "", "comma-separated data sources overriding the parsed request")
	queryCmd.Flags().StringVar(&queryProvider, "provider", "", "LLM provider: openrouter|openai|ollama (overrides config)")
	queryCmd.Flags().StringVar(&queryModel, "model", "", "model name (overrides config)")
	queryCmd.Flags().StringVar(&queryOllamaHost, "ollama-host", "", "Ollama host URL (overrides config)")
	addSourceFlags(queryCmd, &queryBackend, &queryDSN, &queryDataDir)
}

// addSourceFlags registers the data backend override flags on c.
func addSourceFlags(c *cobra.Command, backend, dsn, dir *string) {
	c.Flags().StringVar(backend, "backend", "", "data backend: memory|csv|sqlite|postgres|mysql (overrides config)")
	c.Flags().StringVar(dsn, "dsn", "", "database DSN for SQL backends (overrides config)")
	c.Flags().StringVar(dir, "data-dir", "", "directory of CSV files for the csv backend (overrides config)")
}
