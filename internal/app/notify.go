package app

import (
	"log"

	"github.com/sqweek/dialog"
)

// Notifier shows a user-facing failure message.
type Notifier interface {
	Notify(title, message string)
}

// DialogNotifier shows a native modal error box.
type DialogNotifier struct{}

// Notify blocks until the user dismisses the box.
func (DialogNotifier) Notify(title, message string) {
	log.Printf("[APP] %s: %s", title, message)
	dialog.Message("%s", message).Title(title).Error()
}

// LogNotifier writes the message to the log.
type LogNotifier struct{}

func (LogNotifier) Notify(title, message string) {
	log.Printf("[APP] %s: %s", title, message)
}
