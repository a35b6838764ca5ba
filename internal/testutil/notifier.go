package testutil

import "hoard-go/internal/hoard"

// RecordingNotifier captures every sent notification.
type RecordingNotifier struct {
	Subjects []string
	Bodies   []string
	Err      error
}

var _ hoard.Notifier = (*RecordingNotifier)(nil)

func (n *RecordingNotifier) Send(subject, body string) error {
	if n.Err != nil {
		return n.Err
	}
	n.Subjects = append(n.Subjects, subject)
	n.Bodies = append(n.Bodies, body)
	return nil
}
