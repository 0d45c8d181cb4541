package email

import (
	"context"
	"strings"
	"testing"

	"ems/internal/platform/config"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("hr@example.com", "jane@example.com", "Office closed\r\nBcc: evil@example.com", "See you Monday"))

	if !strings.Contains(msg, "From: hr@example.com\r\n") || !strings.Contains(msg, "To: jane@example.com\r\n") {
		t.Fatalf("missing address headers: %q", msg)
	}
	if strings.Contains(msg, "\r\nBcc:") {
		t.Fatalf("subject injected a header: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nSee you Monday") {
		t.Fatalf("body not separated from headers: %q", msg)
	}
}

func TestNewWithoutSMTPIsNoop(t *testing.T) {
	mailer := New(config.Config{EmailEnabled: true})
	if err := mailer.Send(context.Background(), "a@example.com", "b@example.com", "s", "b"); err != nil {
		t.Fatalf("noop mailer returned %v", err)
	}
}
