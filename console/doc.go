// Package console renders vault results and notifications for terminals.
//
// NewFormatter picks a human-readable table or indented JSON. Notifier turns
// cybervault notifications into "[+]" and "[!]" lines.
package console
