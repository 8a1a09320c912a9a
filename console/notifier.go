package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/sagarc03/cybervault"
)

// Notifier prints notifications as single prefixed lines.
type Notifier struct {
	mu    sync.Mutex
	w     io.Writer
	quiet bool
}

// NewNotifier returns a Notifier writing to w. With quiet set, only errors are printed.
func NewNotifier(w io.Writer, quiet bool) *Notifier {
	return &Notifier{w: w, quiet: quiet}
}

func (n *Notifier) Notify(note cybervault.Notification) {
	if n.quiet && note.Level != cybervault.LevelError {
		return
	}

	prefix := "[+]"
	if note.Level == cybervault.LevelError {
		prefix = "[!]"
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "%s %s\n", prefix, note.Message)
}
