package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/config"
)

var errUploadsFailed = errors.New("some uploads failed")

var uploadCmd = &cobra.Command{
	Use:   "upload <path>...",
	Short: "Upload files to your vault",
	Long: `Upload one or more local files. Files are sent one at a time in the
given order; a failing file is reported and the rest continue.

Uploading a name that already exists replaces its content.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your files, newest first",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var downloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download a file by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a file by id",
	Long: `Delete a file's content and then its record.

If the content cannot be removed the record is kept. If the record cannot be
removed after the content is gone, the command reports a dangling record that
"cybervault reconcile --fix" cleans up.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var (
	downloadDir string
	deleteYes   bool
)

func init() {
	downloadCmd.Flags().StringVarP(&downloadDir, "dir", "d", ".", "directory to write the file into")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")

	rootCmd.AddCommand(uploadCmd, listCmd, downloadCmd, deleteCmd)
}

// vaultSession is a signed-in command run.
type vaultSession struct {
	*app
	store *cybervault.SessionStore
	owner cybervault.Identity
}

func (s *vaultSession) Close() {
	s.store.Stop()
	s.app.Close()
}

// openVaultSession opens the app and requires a stored, unexpired session.
func openVaultSession(ctx context.Context) (*vaultSession, error) {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	a, err := openApp(ctx, cfg, false)
	if err != nil {
		return nil, err
	}

	client, err := a.client(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	store := cybervault.NewSessionStore(client)
	if err := store.Start(ctx); err != nil {
		store.Stop()
		a.Close()
		return nil, err
	}

	owner, err := store.Identity(ctx)
	if err != nil {
		store.Stop()
		a.Close()
		return nil, fmt.Errorf("%w: run \"cybervault signin\" first", err)
	}

	return &vaultSession{app: a, store: store, owner: owner}, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := getFormatter()
	notifier := getNotifier()

	s, err := openVaultSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	uploader := cybervault.NewUploader(s.gateway, s.store, notifier, cybervault.UploaderConfig{
		MaxSize: s.cfg.Vault.MaxUploadSize,
	})
	results, err := uploadPaths(ctx, uploader, notifier, args)
	if err != nil {
		return err
	}

	if err := formatter.FormatUpload(cmd.OutOrStdout(), results); err != nil {
		return err
	}

	for _, r := range results {
		if r.Err != nil {
			return errUploadsFailed
		}
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openVaultSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	lister := cybervault.NewLister(s.gateway, s.store, getNotifier())
	if err := lister.Reload(ctx); err != nil {
		return err
	}

	return getFormatter().FormatList(cmd.OutOrStdout(), lister.Records())
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openVaultSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.record(ctx, args[0])
	if err != nil {
		return err
	}

	lister := cybervault.NewLister(s.gateway, s.store, getNotifier())
	path, err := lister.Download(ctx, rec, downloadDir)
	if err != nil {
		return err
	}

	return getFormatter().FormatDownload(cmd.OutOrStdout(), rec, path)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openVaultSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.record(ctx, args[0])
	if err != nil {
		return err
	}

	if !deleteYes && !confirm(fmt.Sprintf("Delete %s", rec.Name)) {
		return nil
	}

	lister := cybervault.NewLister(s.gateway, s.store, getNotifier())
	if err := lister.Delete(ctx, rec); err != nil {
		return err
	}

	return getFormatter().FormatDelete(cmd.OutOrStdout(), rec)
}

// uploadPaths uploads the files at paths and returns one result per path in
// the same order. Paths that cannot be opened are reported and skipped.
func uploadPaths(ctx context.Context, uploader *cybervault.Uploader, notifier cybervault.Notifier, paths []string) ([]cybervault.UploadResult, error) {
	results := make([]cybervault.UploadResult, len(paths))
	batch := make([]cybervault.LocalFile, 0, len(paths))
	slots := make([]int, 0, len(paths))

	for i, path := range paths {
		file, err := cybervault.OpenLocalFile(path)
		if err != nil {
			slog.Debug("skip local file", "path", path, "err", err)
			notifier.Notify(cybervault.Notification{Level: cybervault.LevelError, Message: err.Error()})
			results[i] = cybervault.UploadResult{Name: path, Err: err}
			continue
		}
		batch = append(batch, file)
		slots = append(slots, i)
	}

	if len(batch) == 0 {
		return results, nil
	}

	uploaded, err := uploader.Upload(ctx, batch)
	if err != nil {
		return nil, err
	}
	for j, r := range uploaded {
		results[slots[j]] = r
	}
	return results, nil
}

// record looks up one of the owner's files by its id argument.
func (s *vaultSession) record(ctx context.Context, arg string) (cybervault.FileRecord, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return cybervault.FileRecord{}, fmt.Errorf("invalid file id %q: %w", arg, cybervault.ErrInvalidInput)
	}
	return s.gateway.Get(ctx, s.owner.ID, id)
}
