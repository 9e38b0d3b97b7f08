package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one discovery and ingestion pass",
	Long:  "Discovers candidates for the configured query, admits new reports to the ledger, and sends one review digest for the batch.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Pipeline.Run(ctx)
		if summary != nil {
			if encErr := writeSummary(os.Stdout, summary); encErr != nil {
				zap.L().Warn("write summary", zap.Error(encErr))
			}
		}
		if err != nil {
			return eris.Wrap(err, "run")
		}
		return nil
	},
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("query", "", "search query (overrides discovery.query)")
	cmd.Flags().Int("num-results", 0, "maximum candidates to discover (overrides discovery.num_results)")
	cmd.Flags().Int("concurrency", 0, "candidate workers (overrides pipeline.concurrency)")
}

// applyRunFlags copies explicitly set flags onto c.
func applyRunFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("query") {
		q, err := flags.GetString("query")
		if err != nil {
			return err
		}
		c.Discovery.Query = q
	}
	if flags.Changed("num-results") {
		n, err := flags.GetInt("num-results")
		if err != nil {
			return err
		}
		if n <= 0 {
			return eris.Errorf("--num-results must be positive, got %d", n)
		}
		c.Discovery.NumResults = n
	}
	if flags.Changed("concurrency") {
		n, err := flags.GetInt("concurrency")
		if err != nil {
			return err
		}
		if n <= 0 {
			return eris.Errorf("--concurrency must be positive, got %d", n)
		}
		c.Pipeline.Concurrency = n
	}
	return nil
}

// writeSummary prints the run summary as indented JSON.
func writeSummary(out io.Writer, s *model.RunSummary) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
