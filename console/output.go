package console

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sagarc03/cybervault"
)

// Formatter formats command results for output.
type Formatter interface {
	FormatUpload(w io.Writer, results []cybervault.UploadResult) error
	FormatList(w io.Writer, records []cybervault.FileRecord) error
	FormatDownload(w io.Writer, rec cybervault.FileRecord, path string) error
	FormatDelete(w io.Writer, rec cybervault.FileRecord) error
	FormatSession(w io.Writer, session *cybervault.Session) error
	FormatReconcile(w io.Writer, report cybervault.ReconcileReport) error
	FormatError(w io.Writer, err error) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

const timeLayout = "2006-01-02 15:04:05"

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatUpload formats upload results as human-readable text.
func (f *HumanFormatter) FormatUpload(w io.Writer, results []cybervault.UploadResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.Name, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Uploaded: %s (%s)\n", r.Name, cybervault.FormatFileSize(r.Record.Size))
			_, _ = fmt.Fprintf(w, "  ID: %s\n", r.Record.ID)
		}
	}
	return nil
}

// FormatList formats the vault listing as a table, newest first.
func (f *HumanFormatter) FormatList(w io.Writer, records []cybervault.FileRecord) error {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, cybervault.MsgVaultEmpty)
		return nil
	}

	// Calculate column widths
	maxNameLen := 4 // "NAME"
	for i := range records {
		if len(records[i].Name) > maxNameLen {
			maxNameLen = len(records[i].Name)
		}
	}
	if maxNameLen > 48 {
		maxNameLen = 48
	}

	_, _ = fmt.Fprintf(w, "%-36s  %-*s  %10s  %s\n", "ID", maxNameLen, "NAME", "SIZE", "UPLOADED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s\n", strings.Repeat("-", 36), strings.Repeat("-", maxNameLen), strings.Repeat("-", 10), strings.Repeat("-", 19))

	var total int64
	for i := range records {
		rec := &records[i]
		name := rec.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}
		_, _ = fmt.Fprintf(w, "%-36s  %-*s  %10s  %s\n",
			rec.ID,
			maxNameLen,
			name,
			cybervault.FormatFileSize(rec.Size),
			rec.CreatedAt.Local().Format(timeLayout),
		)
		total += rec.Size
	}

	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "\n%d file(s) (%s total)\n", len(records), cybervault.FormatFileSize(total))
	}
	return nil
}

// FormatDownload formats a completed download as human-readable text.
func (f *HumanFormatter) FormatDownload(w io.Writer, rec cybervault.FileRecord, path string) error {
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "Downloaded: %s -> %s (%s)\n", rec.Name, path, cybervault.FormatFileSize(rec.Size))
	}
	return nil
}

// FormatDelete formats a completed delete as human-readable text.
func (f *HumanFormatter) FormatDelete(w io.Writer, rec cybervault.FileRecord) error {
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "Deleted: %s\n", rec.Name)
	}
	return nil
}

// FormatSession formats the current identity as human-readable text.
func (f *HumanFormatter) FormatSession(w io.Writer, session *cybervault.Session) error {
	if session == nil {
		_, _ = fmt.Fprintln(w, "Not signed in")
		return nil
	}
	_, _ = fmt.Fprintf(w, "Email:   %s\n", session.Identity.Email)
	_, _ = fmt.Fprintf(w, "User ID: %s\n", session.Identity.ID)
	if !session.ExpiresAt.IsZero() {
		_, _ = fmt.Fprintf(w, "Expires: %s\n", session.ExpiresAt.Local().Format(timeLayout))
	}
	return nil
}

// FormatReconcile formats a reconcile report as human-readable text.
func (f *HumanFormatter) FormatReconcile(w io.Writer, report cybervault.ReconcileReport) error {
	if len(report.Orphans) == 0 && len(report.Dangling) == 0 {
		_, _ = fmt.Fprintln(w, "Blobs and records are consistent")
		return nil
	}

	verb := "found"
	if report.Fixed {
		verb = "removed"
	}

	for _, b := range report.Orphans {
		_, _ = fmt.Fprintf(w, "orphaned blob    %s (%s)\n", b.Key, cybervault.FormatFileSize(b.Size))
	}
	for _, r := range report.Dangling {
		_, _ = fmt.Fprintf(w, "dangling record  %s (%s)\n", r.StorageKey, r.ID)
	}
	_, _ = fmt.Fprintf(w, "\n%d orphaned blob(s), %d dangling record(s) %s\n", len(report.Orphans), len(report.Dangling), verb)
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatUpload formats upload results as JSON.
func (f *JSONFormatter) FormatUpload(w io.Writer, results []cybervault.UploadResult) error {
	// Convert errors to strings for JSON output
	type jsonResult struct {
		Name   string                 `json:"name"`
		Record *cybervault.FileRecord `json:"record,omitempty"`
		Error  string                 `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}

	for i := range results {
		r := &results[i]
		jr := jsonResult{Name: r.Name}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		} else {
			rec := r.Record
			jr.Record = &rec
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

// FormatList formats the vault listing as JSON.
func (f *JSONFormatter) FormatList(w io.Writer, records []cybervault.FileRecord) error {
	if records == nil {
		records = []cybervault.FileRecord{}
	}
	return writeJSON(w, struct {
		Files []cybervault.FileRecord `json:"files"`
	}{Files: records})
}

// FormatDownload formats a completed download as JSON.
func (f *JSONFormatter) FormatDownload(w io.Writer, rec cybervault.FileRecord, path string) error {
	return writeJSON(w, struct {
		Record    cybervault.FileRecord `json:"record"`
		LocalPath string                `json:"local_path"`
	}{Record: rec, LocalPath: path})
}

// FormatDelete formats a completed delete as JSON.
func (f *JSONFormatter) FormatDelete(w io.Writer, rec cybervault.FileRecord) error {
	return writeJSON(w, struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Deleted bool   `json:"deleted"`
	}{ID: rec.ID.String(), Name: rec.Name, Deleted: true})
}

// FormatSession formats the current identity as JSON. The access token is never printed.
func (f *JSONFormatter) FormatSession(w io.Writer, session *cybervault.Session) error {
	type jsonSession struct {
		SignedIn  bool                 `json:"signed_in"`
		User      *cybervault.Identity `json:"user,omitempty"`
		ExpiresAt *time.Time           `json:"expires_at,omitempty"`
	}

	output := jsonSession{}
	if session != nil {
		output.SignedIn = true
		id := session.Identity
		output.User = &id
		if !session.ExpiresAt.IsZero() {
			exp := session.ExpiresAt
			output.ExpiresAt = &exp
		}
	}
	return writeJSON(w, output)
}

// FormatReconcile formats a reconcile report as JSON.
func (f *JSONFormatter) FormatReconcile(w io.Writer, report cybervault.ReconcileReport) error {
	return writeJSON(w, report)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
