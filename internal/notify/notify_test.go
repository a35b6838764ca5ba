package notify_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hoard-go/internal/config"
	"hoard-go/internal/notify"
)

func TestSendmailNotifier_Send(t *testing.T) {
	t.Run("pipes the assembled message into the command", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "message.txt")
		// `sh -c 'cat > file'` stands in for the sendmail relay.
		n, err := notify.NewSendmailNotifier([]string{"sh", "-c", "cat > " + out}, "hoard@example.com", "admin@example.com")
		if err != nil {
			t.Fatalf("NewSendmailNotifier() error = %v", err)
		}

		if err := n.Send("sync OK", "all good\n"); err != nil {
			t.Fatalf("Send() error = %v", err)
		}

		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("reading captured message: %v", err)
		}
		msg := string(data)

		for _, want := range []string{
			"To: admin@example.com\n",
			"From: hoard@example.com\n",
			"Subject: sync OK\n\n",
			"all good",
		} {
			if !strings.Contains(msg, want) {
				t.Errorf("message is missing %q:\n%s", want, msg)
			}
		}
	})

	t.Run("reports a failing command", func(t *testing.T) {
		n, err := notify.NewSendmailNotifier([]string{"sh", "-c", "exit 1"}, "", "admin@example.com")
		if err != nil {
			t.Fatalf("NewSendmailNotifier() error = %v", err)
		}
		if err := n.Send("subject", "body"); err == nil {
			t.Fatal("Send() expected error for a failing relay command")
		}
	})
}

func TestNewSendmailNotifier(t *testing.T) {
	if _, err := notify.NewSendmailNotifier(nil, "", "admin@example.com"); err == nil {
		t.Error("expected error for empty command")
	}
	if _, err := notify.NewSendmailNotifier([]string{"sendmail"}, "", ""); err == nil {
		t.Error("expected error for empty recipient")
	}
}

func TestNewNotifierFromConfig(t *testing.T) {
	t.Run("none yields a nop notifier", func(t *testing.T) {
		n, err := notify.NewNotifierFromConfig(config.NotifyConfig{Type: "none"})
		if err != nil {
			t.Fatalf("NewNotifierFromConfig() error = %v", err)
		}
		if err := n.Send("s", "b"); err != nil {
			t.Errorf("nop Send() error = %v", err)
		}
	})

	t.Run("empty type defaults to nop", func(t *testing.T) {
		if _, err := notify.NewNotifierFromConfig(config.NotifyConfig{}); err != nil {
			t.Fatalf("NewNotifierFromConfig() error = %v", err)
		}
	})

	t.Run("sendmail requires a recipient", func(t *testing.T) {
		if _, err := notify.NewNotifierFromConfig(config.NotifyConfig{Type: "sendmail"}); err == nil {
			t.Fatal("expected error for sendmail without recipient")
		}
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		if _, err := notify.NewNotifierFromConfig(config.NotifyConfig{Type: "carrier-pigeon"}); err == nil {
			t.Fatal("expected error for unknown notifier type")
		}
	})
}
