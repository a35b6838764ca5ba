// Package notify delivers run reports through an external mail-relay
// command. Delivery is best-effort: a failed notification is the caller's to
// log, never to fail the run on.
package notify

import (
	"fmt"
	"os/exec"
	"strings"

	"hoard-go/internal/config"
	"hoard-go/internal/hoard"
)

// SendmailNotifier pipes an RFC 822 message into a local mail-relay command
// such as `sendmail -t`.
type SendmailNotifier struct {
	command []string
	from    string
	to      string
}

var _ hoard.Notifier = (*SendmailNotifier)(nil)

// NewSendmailNotifier creates a notifier that runs command (program plus
// arguments) and writes the message to its stdin.
func NewSendmailNotifier(command []string, from, to string) (*SendmailNotifier, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("notifier command must not be empty")
	}
	if to == "" {
		return nil, fmt.Errorf("notifier recipient must not be empty")
	}
	return &SendmailNotifier{command: command, from: from, to: to}, nil
}

// Send delivers one message.
func (n *SendmailNotifier) Send(subject, body string) error {
	cmd := exec.Command(n.command[0], n.command[1:]...)
	cmd.Stdin = strings.NewReader(n.message(subject, body))

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("running %s: %w (output: %s)", n.command[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// message assembles the headers and body handed to the relay command.
func (n *SendmailNotifier) message(subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\n", n.to)
	if n.from != "" {
		fmt.Fprintf(&b, "From: %s\n", n.from)
	}
	fmt.Fprintf(&b, "Subject: %s\n\n", subject)
	b.WriteString(body)
	return b.String()
}

// NopNotifier discards notifications (notifier type "none").
type NopNotifier struct{}

var _ hoard.Notifier = (*NopNotifier)(nil)

func NewNopNotifier() *NopNotifier { return &NopNotifier{} }

func (*NopNotifier) Send(string, string) error { return nil }

// NewNotifierFromConfig creates a Notifier based on the notifier config type.
func NewNotifierFromConfig(cfg config.NotifyConfig) (hoard.Notifier, error) {
	switch cfg.Type {
	case "none", "":
		return NewNopNotifier(), nil
	case "sendmail":
		command := cfg.Command
		if len(command) == 0 {
			command = []string{"/usr/sbin/sendmail", "-t"}
		}
		return NewSendmailNotifier(command, cfg.From, cfg.To)
	default:
		return nil, fmt.Errorf("unknown notifier type: %q", cfg.Type)
	}
}
