package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestNewSMTPMailerRequiresHostAndFrom(t *testing.T) {
	if _, err := NewSMTPMailer(SMTPConfig{From: "a@b.c"}); err == nil {
		t.Fatal("expected error without host")
	}
	if _, err := NewSMTPMailer(SMTPConfig{Host: "localhost"}); err == nil {
		t.Fatal("expected error without from")
	}
	m, err := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25, From: "reports@example.com"})
	if err != nil || m.cfg.Timeout == 0 {
		t.Fatalf("unexpected mailer %+v err=%v", m, err)
	}
}

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage("reports@example.com", core.MailMessage{
		To:      "alice@example.com",
		Subject: "2025-01 財務月報",
		Body:    "總收入：1.00",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "alice@example.com") {
		t.Fatalf("recipient missing from message:\n%s", buf.String())
	}

	if _, err := buildMessage("reports@example.com", core.MailMessage{To: "not an address"}); err == nil {
		t.Fatal("expected invalid recipient error")
	}
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))
	if err := m.Send(context.Background(), core.MailMessage{To: "x@example.com", Subject: "s"}); !errors.Is(err, core.ErrMailNotSent) {
		t.Fatalf("send = %v, want ErrMailNotSent", err)
	}
	if !strings.Contains(buf.String(), "to=x@example.com") {
		t.Fatalf("log output = %q", buf.String())
	}
}
