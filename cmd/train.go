package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/report-agent/internal/embed"
	"github.com/sells-group/report-agent/internal/ledger"
	"github.com/sells-group/report-agent/internal/training"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the relevance classifier from reviewer labels",
	Long:  "Joins the ledger with label CSVs, fits a logistic-regression classifier over summary embeddings, and writes the model artifact used by the classifier scorer.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.ValidateFor("train"); err != nil {
			return err
		}
		fs := afero.NewOsFs()

		labels, err := training.LoadLabels(fs, cfg.Training.LabelsDir)
		if err != nil {
			return err
		}
		snap, err := ledger.New(fs, cfg.Ledger).Load(ctx)
		if err != nil {
			return eris.Wrap(err, "train")
		}
		emb, err := embed.New(cfg.Embed)
		if err != nil {
			return err
		}

		m, err := training.NewTrainer(emb, cfg.Training).Train(ctx, snap.Records(), labels)
		if errors.Is(err, training.ErrNotEnoughLabels) {
			fmt.Fprintf(os.Stderr, "Not enough labeled records to train: %v\n", err)
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "train")
		}

		if err := m.Save(fs, cfg.Training.ModelPath); err != nil {
			return err
		}
		zap.L().Info("model saved", zap.String("path", cfg.Training.ModelPath))

		formatTrainMetrics(os.Stdout, m)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

// formatTrainMetrics writes the held-out evaluation of m to w.
func formatTrainMetrics(out io.Writer, m *training.Model) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Labeled:\t%d\n", m.Labeled)
	_, _ = fmt.Fprintf(w, "Train/test:\t%d/%d\n", m.Metrics.TrainSize, m.Metrics.TestSize)
	_, _ = fmt.Fprintf(w, "Precision:\t%.3f\n", m.Metrics.Precision)
	_, _ = fmt.Fprintf(w, "Recall:\t%.3f\n", m.Metrics.Recall)
	_, _ = fmt.Fprintf(w, "Accuracy:\t%.3f\n", m.Metrics.Accuracy)
	_ = w.Flush()
}
