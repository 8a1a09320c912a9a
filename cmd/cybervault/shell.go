package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/config"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive vault session",
	Long: `Start an interactive session. Without a stored session you are asked to
sign in or sign up; once signed in you can upload, list, download and delete
files until you sign out or quit.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

var errQuit = errors.New("quit")

func runShell(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	shell := cybervault.NewShell(client, a.gateway, getNotifier(), cybervault.ShellConfig{
		MaxUploadSize: cfg.Vault.MaxUploadSize,
	})
	if err := shell.Mount(ctx); err != nil {
		_ = getFormatter().FormatError(cmd.ErrOrStderr(), err)
	}
	defer shell.Unmount()

	out := cmd.OutOrStdout()
	for ctx.Err() == nil {
		var err error
		if shell.View() == cybervault.ViewWorkspace {
			err = workspaceStep(ctx, shell, out)
		} else {
			err = signInStep(ctx, shell)
		}
		switch {
		case errors.Is(err, errQuit), isInterrupt(err):
			return nil
		case errors.Is(err, errPrompt):
			return err
		case err != nil:
			// Notifications already reported the failure; keep the session going.
			continue
		}
	}
	return nil
}

func signInStep(ctx context.Context, shell *cybervault.Shell) error {
	form := shell.Auth()
	if form == nil {
		return nil
	}

	choice, err := selectItem("CyberVault", []string{
		form.Mode().SubmitLabel(),
		form.Mode().ToggleLabel(),
		"Quit",
	})
	if err != nil {
		return err
	}
	switch choice {
	case 1:
		form.Toggle()
		return nil
	case 2:
		return errQuit
	}

	email, err := promptEmail("")
	if err != nil {
		return err
	}
	password, err := promptPassword()
	if err != nil {
		return err
	}
	form.SetEmail(email)
	form.SetPassword(password)
	return form.Submit(ctx)
}

func workspaceStep(ctx context.Context, shell *cybervault.Shell, out io.Writer) error {
	ws := shell.Workspace()
	if ws == nil {
		return nil
	}
	formatter := getFormatter()

	choice, err := selectItem(ws.Identity.Email, []string{
		"Upload",
		"List",
		"Download",
		"Delete",
		"Sign out",
		"Quit",
	})
	if err != nil {
		return err
	}

	switch choice {
	case 0:
		line, err := promptText("Paths (space separated)")
		if err != nil {
			return err
		}
		results, err := uploadPaths(ctx, ws.Uploader, getNotifier(), strings.Fields(line))
		if err != nil {
			return err
		}
		return formatter.FormatUpload(out, results)

	case 1:
		if err := ws.Lister.Reload(ctx); err != nil {
			return err
		}
		return formatter.FormatList(out, ws.Lister.Records())

	case 2:
		rec, err := pickRecord(ws, "Download")
		if err != nil {
			return err
		}
		dir, err := promptText("Directory")
		if err != nil {
			return err
		}
		if dir == "" {
			dir = "."
		}
		path, err := ws.Lister.Download(ctx, rec, dir)
		if err != nil {
			return err
		}
		return formatter.FormatDownload(out, rec, path)

	case 3:
		rec, err := pickRecord(ws, "Delete")
		if err != nil {
			return err
		}
		if !confirm(fmt.Sprintf("Delete %s", rec.Name)) {
			return nil
		}
		if err := ws.Lister.Delete(ctx, rec); err != nil {
			return err
		}
		return formatter.FormatDelete(out, rec)

	case 4:
		return shell.SignOut(ctx)

	default:
		return errQuit
	}
}

// pickRecord selects one of the records currently listed.
func pickRecord(ws *cybervault.Workspace, label string) (cybervault.FileRecord, error) {
	records := ws.Lister.Records()
	if len(records) == 0 {
		return cybervault.FileRecord{}, fmt.Errorf("%s: %w", label, cybervault.ErrNotFound)
	}

	items := make([]string, len(records))
	for i, r := range records {
		items[i] = fmt.Sprintf("%s  %s  %s", r.Name, cybervault.FormatFileSize(r.Size), r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	i, err := selectItem(label, items)
	if err != nil {
		return cybervault.FileRecord{}, err
	}
	return records[i], nil
}
