package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cybervault/config"
)

var version = "dev"

var (
	jsonOutput bool
	quiet      bool
)

// annotationServer marks commands whose logs default to the server level.
const annotationServer = "server"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "cybervault",
	Short:   "Personal file vault",
	Long: `CyberVault keeps your files in a private vault.

Sign up or sign in once, then upload, list, download and delete your
files from the command line, the interactive shell, or over the HTTP API
started with "cybervault serve".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")
		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		_, server := cmd.Annotations[annotationServer]
		setupLogging(cfg, os.Stderr, server)

		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringSlice("config", nil, "config file path(s), merged left to right (default: ./config.yaml)")
	pf.String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: CYBERVAULT_DATABASE_TYPE)")
	pf.String("db-dsn", "", "database connection string (default: cybervault.db, env: CYBERVAULT_DATABASE_DSN)")
	pf.String("storage", "", "blob store backend: filesystem, s3, stowry (env: CYBERVAULT_STORAGE_BACKEND)")
	pf.String("storage-path", "", "filesystem storage directory (default: ./data, env: CYBERVAULT_STORAGE_PATH)")
	pf.String("consistency", "", "upload consistency mode: compensate, best_effort (env: CYBERVAULT_VAULT_CONSISTENCY)")
	pf.String("session-file", "", "session file (default: ~/.cybervault/session.yaml, env: CYBERVAULT_SESSION_PATH)")
	pf.String("log-level", "", "log level: debug, info, warn, error (env: CYBERVAULT_LOG_LEVEL)")
	pf.BoolVar(&jsonOutput, "json", false, "output as JSON")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
