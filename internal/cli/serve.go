package cli

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"mlpipe/internal/config"
	"mlpipe/internal/httpapi"
	"mlpipe/internal/pipeline"
	"mlpipe/internal/runner"
)

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	Long: `Serve starts an HTTP server exposing the pipeline driver.

POST /api/v1/runs with an optional {"steps": "..."} body triggers a run;
runs execute synchronously, one at a time. GET /healthz reports the known
steps.

Example:
  mlpipe serve
  mlpipe serve --addr :9090 --config ./config.yaml
`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address for the HTTP server")
}

func runServe(_ *cobra.Command, _ []string) error {
	l := newLogger(logLevel, logFormat, os.Stdout)

	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	d := pipeline.NewDriver(l, cfg, runner.NewExecRunner(l, runner.NewFetcher()))

	g := gin.Default()
	httpapi.NewHandler(d).Register(g)

	l.Info(fmt.Sprintf("Serving pipeline API on %s", addr))
	return g.Run(addr)
}
