// Package notify delivers artifact links to recipients out of band.
package notify

import (
	"context"

	"github.com/dmogilev/docmill/internal/logging"
)

// Message describes one outbound share notification.
type Message struct {
	Recipient string
	Subject   string
	ShareURL  string
	FileName  string
}

// Notifier sends share notifications. Implementations must treat delivery
// as best-effort: a failed send never invalidates the share link itself.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier records outbound notifications in the log instead of
// delivering them. It stands in until a real mail or webhook backend is
// configured.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.log.Info(ctx, "share notification",
		"recipient", msg.Recipient,
		"subject", msg.Subject,
		"url", msg.ShareURL,
		"file", msg.FileName,
	)
	return nil
}
