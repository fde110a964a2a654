package twiliowhatsapp

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMockClient_SendMessage(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	err := mock.SendMessage(ctx, "12345", "Hola")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := mock.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if sent[0].Body != "Hola" || sent[0].To != "12345" {
		t.Errorf("unexpected message %+v", sent[0])
	}

	mock.Err = errors.New("twilio down")
	if err := mock.SendMessage(ctx, "12345", "otra"); err == nil {
		t.Fatal("expected configured error")
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(WithAccountSID("AC123")); err == nil {
		t.Error("expected error without auth token")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Error("expected error without sending number")
	}
	c, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok"), WithFromWhats("+14155238886"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.fromWhats != "whatsapp:+14155238886" {
		t.Errorf("fromWhats = %q", c.fromWhats)
	}
}

func TestWhatsAppAddress(t *testing.T) {
	cases := map[string]string{
		"5216671234567":           "whatsapp:+5216671234567",
		"+5216671234567":          "whatsapp:+5216671234567",
		"whatsapp:+5216671234567": "whatsapp:+5216671234567",
	}
	for in, want := range cases {
		if got := WhatsAppAddress(in); got != want {
			t.Errorf("WhatsAppAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitBody(t *testing.T) {
	if parts := SplitBody("corto", 10); len(parts) != 1 || parts[0] != "corto" {
		t.Fatalf("unexpected split: %q", parts)
	}

	body := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	parts := SplitBody(body, 10)
	if len(parts) != 2 || parts[0] != strings.Repeat("a", 8) || parts[1] != strings.Repeat("b", 8) {
		t.Fatalf("expected newline split, got %q", parts)
	}

	parts = SplitBody(strings.Repeat("ñ", 25), 10)
	if len(parts) != 3 || len([]rune(parts[2])) != 5 {
		t.Fatalf("expected rune-based hard split, got %q", parts)
	}
}
