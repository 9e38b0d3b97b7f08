package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/report-agent/internal/ledger"
	"github.com/sells-group/report-agent/internal/model"
	"github.com/sells-group/report-agent/internal/notify"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Re-send a review digest for ledger records",
	Long:  "Selects records already in the ledger and sends a review digest for them. Used when a batch was persisted but its notification failed.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter, err := digestFilter(cmd)
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		snap, err := ledger.NewOS(cfg.Ledger).Load(ctx)
		if err != nil {
			return eris.Wrap(err, "digest")
		}
		records := snap.Select(filter)
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No matching records.")
			return nil
		}

		if dryRun {
			return writeDigest(os.Stdout, notify.NewRenderer(cfg.Notify.ReviewerEmail, cfg.Notify.SubjectPrefix), records)
		}

		if err := cfg.ValidateFor("digest"); err != nil {
			return err
		}
		n, err := notify.New(cfg)
		if err != nil {
			return err
		}
		if err := n.Notify(ctx, records); err != nil {
			return eris.Wrap(err, "digest: notify")
		}

		zap.L().Info("digest sent", zap.Int("records", len(records)), zap.String("transport", cfg.Notify.Transport))
		return nil
	},
}

func init() {
	addDigestFlags(digestCmd)
	rootCmd.AddCommand(digestCmd)
}

func addDigestFlags(cmd *cobra.Command) {
	cmd.Flags().String("run", "", "select records admitted by this run ID")
	cmd.Flags().StringSlice("sha", nil, "select records by content hash (repeatable)")
	cmd.Flags().String("since", "", "select records discovered on or after this date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().Int("latest", 0, "select the N most recently appended records")
	cmd.Flags().Bool("dry-run", false, "print the rendered digest instead of sending it")
}

// digestFilter builds a ledger filter from the digest flags. At least one
// selector is required.
func digestFilter(cmd *cobra.Command) (ledger.Filter, error) {
	var f ledger.Filter
	f.RunID, _ = cmd.Flags().GetString("run")
	f.SHAs, _ = cmd.Flags().GetStringSlice("sha")
	f.Latest, _ = cmd.Flags().GetInt("latest")

	since, _ := cmd.Flags().GetString("since")
	if since != "" {
		t, err := parseSince(since)
		if err != nil {
			return f, err
		}
		f.Since = t
	}

	if f.Latest < 0 {
		return f, eris.Errorf("--latest must not be negative, got %d", f.Latest)
	}
	if f.RunID == "" && len(f.SHAs) == 0 && f.Since.IsZero() && f.Latest == 0 {
		return f, eris.New("select records with --run, --sha, --since or --latest")
	}
	return f, nil
}

func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, eris.Errorf("--since: %q is neither YYYY-MM-DD nor RFC 3339", s)
	}
	return t.UTC(), nil
}

// writeDigest renders records and writes the subject and HTML body to out.
func writeDigest(out io.Writer, r *notify.Renderer, records []model.CandidateRecord) error {
	d, err := r.Render(records)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "Subject: %s\n\n%s\n", d.Subject, d.HTML); err != nil {
		return eris.Wrap(err, "digest: write")
	}
	return nil
}
