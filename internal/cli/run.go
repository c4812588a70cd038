package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mlpipe/internal/config"
	"mlpipe/internal/pipeline"
	"mlpipe/internal/runner"
)

var steps string

var runCmd = &cobra.Command{
	Use:   "run [overrides...]",
	Short: "Run the pipeline",
	Long: `Run executes the selected pipeline steps in their fixed order.

Overrides are dotted config paths with values, applied on top of the
config file before interpolation.

Example:
  mlpipe run
  mlpipe run --steps download,basic_cleaning
  mlpipe run etl.min_price=15 modeling.random_forest.n_estimators=200
`,
	Args: cobra.ArbitraryArgs,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&steps, "steps", "", "Comma separated steps to run (default: the config's main.steps)")
}

func runPipeline(_ *cobra.Command, args []string) error {
	l := newLogger(logLevel, logFormat, os.Stdout)

	cfg, err := config.Load(configPath, args)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	d := pipeline.NewDriver(l, cfg, runner.NewExecRunner(l, runner.NewFetcher()))
	return d.Run(context.Background(), steps)
}
