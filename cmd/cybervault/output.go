package main

import (
	"os"

	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/console"
)

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() console.Formatter {
	return console.NewFormatter(jsonOutput, quiet)
}

// getNotifier prints notifications to stderr. JSON output keeps stderr for
// errors only.
func getNotifier() cybervault.Notifier {
	return console.NewNotifier(os.Stderr, quiet || jsonOutput)
}
