package cybervault

import "fmt"

// User-facing notification texts.
const (
	MsgSignedIn       = "Access granted!"
	MsgSignedUp       = "Identity created successfully!"
	MsgSignedOut      = "Signed out successfully"
	MsgAuthRequired   = "Authentication required for data upload"
	MsgListFailed     = "Error accessing data vault"
	MsgDownloadFailed = "Data retrieval failed"
	MsgDeleted        = "Data purged successfully"
	MsgDeleteFailed   = "Error purging data"
	MsgVaultEmpty     = "Data vault is empty"
)

func uploadedMessage(name string) string {
	return fmt.Sprintf("Data transfer complete: %s", name)
}

func uploadFailedMessage(name string) string {
	return fmt.Sprintf("Upload failed: %s", name)
}

type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Notification is a transient message shown to the user.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(Notification) {})

func notifySuccess(n Notifier, msg string) {
	n.Notify(Notification{Level: LevelSuccess, Message: msg})
}

func notifyError(n Notifier, msg string) {
	n.Notify(Notification{Level: LevelError, Message: msg})
}
