package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/gateway"
	"github.com/KaramelBytes/insightloom/internal/logging"
	"github.com/KaramelBytes/insightloom/internal/server"
)

var (
	serveAddr    string
	serveBackend string
	serveDSN     string
	serveDataDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report API over HTTP",
	Long: `Serve exposes:
  POST /api/reports/query  run a query as the bearer token's user
  GET  /api/user/me        the bearer token's user
  GET  /health             liveness

Bearer tokens map to entries of server.users in the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		log := newLogger(logging.LevelInfo)
		if len(c.Server.Users) == 0 {
			log.Warn("no server.users configured; every API request will be rejected")
		}

		llm, err := buildCompleter(c, runtimeOptions{})
		if err != nil {
			return err
		}
		src, backend, err := openSource(c, sourceOptions{Backend: serveBackend, DSN: serveDSN, Dir: serveDataDir})
		if err != nil {
			return err
		}
		defer func() { _ = gateway.CloseSource(src) }()
		log.Info("data backend: %s, model: %s", backend, llm.Model())

		addr := c.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New(buildPipeline(c, src, llm, log, nil), c, Version, log).Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	addSourceFlags(serveCmd, &serveBackend, &serveDSN, &serveDataDir)
}
