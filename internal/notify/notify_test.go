package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/secureface/secureface/internal/config"
)

func TestSMTPNotifier_SendOTP(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := NewSMTPNotifier(config.SMTPConfig{
		Host: "mail.example.com",
		Port: "587",
		From: "noreply@example.com",
	})
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		if a != nil {
			t.Error("auth should be nil without a username")
		}
		return nil
	}

	err := n.SendOTP(context.Background(), "alice@example.com", "Alice", "123456", 120*time.Second)
	if err != nil {
		t.Fatalf("SendOTP() error = %v", err)
	}

	if gotAddr != "mail.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "noreply@example.com" {
		t.Errorf("from = %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "alice@example.com" {
		t.Errorf("to = %v", gotTo)
	}

	msg := string(gotMsg)
	for _, want := range []string{"Hello Alice", "123456", "120 seconds", "Subject: "} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestSMTPNotifier_SendFailure(t *testing.T) {
	n := NewSMTPNotifier(config.SMTPConfig{Host: "mail.example.com", Port: "25", From: "x@y.z"})
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	}

	if err := n.SendOTP(context.Background(), "a@b.c", "", "000000", time.Minute); err == nil {
		t.Error("SendOTP() = nil, want error")
	}
}

func TestLogNotifier(t *testing.T) {
	var logged string
	n := &LogNotifier{Logf: func(format string, v ...any) {
		logged = fmt.Sprintf(format, v...)
	}}

	if err := n.SendOTP(context.Background(), "alice@example.com", "Alice", "654321", 120*time.Second); err != nil {
		t.Fatalf("SendOTP() error = %v", err)
	}
	if !strings.Contains(logged, "654321") || !strings.Contains(logged, "alice@example.com") {
		t.Errorf("log line = %q, want recipient and code", logged)
	}
}
