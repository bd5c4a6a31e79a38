package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/gateway"
	"github.com/KaramelBytes/insightloom/internal/logging"
	"github.com/KaramelBytes/insightloom/internal/mcp"
)

var (
	mcpBackend string
	mcpDSN     string
	mcpDataDir string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the process_query tool over MCP stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing:
  process_query      run a query (query, optional user_email) and return the result JSON
  list_data_sources  list the available data source keys`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		// stdout carries the protocol; logs go to stderr only when asked.
		log := logging.Discard()
		if debug {
			log = newLogger(logging.LevelDebug)
		}
		llm, err := buildCompleter(c, runtimeOptions{})
		if err != nil {
			return err
		}
		src, _, err := openSource(c, sourceOptions{Backend: mcpBackend, DSN: mcpDSN, Dir: mcpDataDir})
		if err != nil {
			return err
		}
		defer func() { _ = gateway.CloseSource(src) }()

		return mcp.StartMCPServer(cmd.Context(), buildPipeline(c, src, llm, log, nil), c, Version)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	addSourceFlags(mcpCmd, &mcpBackend, &mcpDSN, &mcpDataDir)
}
