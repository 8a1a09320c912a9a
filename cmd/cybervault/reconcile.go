package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/config"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Find blobs without records and records without blobs",
	Long: `Compare every stored blob with every file record.

An orphaned blob is content with no record, left behind when an upload's
record insert failed. A dangling record points at content that no longer
exists, left behind when a delete removed the blob but not the record.

With --fix, orphaned blobs are deleted and dangling records removed.
Run it while no uploads are in progress.`,
	Annotations: map[string]string{annotationServer: ""},
	Args:        cobra.NoArgs,
	RunE:        runReconcile,
}

var reconcileFix bool

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileFix, "fix", false, "delete orphaned blobs and dangling records")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := getFormatter()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.gateway.Reconcile(ctx, reconcileFix)
	if err != nil {
		if errors.Is(err, cybervault.ErrUnsupported) {
			slog.Error("storage backend cannot list blobs", "backend", cfg.Storage.Backend)
		}
		_ = formatter.FormatError(cmd.ErrOrStderr(), err)
		return err
	}

	slog.Info("reconcile complete", "orphans", len(report.Orphans), "dangling", len(report.Dangling), "fixed", report.Fixed)
	return formatter.FormatReconcile(cmd.OutOrStdout(), report)
}
