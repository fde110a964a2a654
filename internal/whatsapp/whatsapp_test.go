package whatsapp

import (
	"context"
	"testing"

	"go.mau.fi/whatsmeow/types"
)

func TestWithDBDSNOption(t *testing.T) {
	opts := &Opts{}

	testDSN := "/var/lib/yonkebot/test.db"
	WithDBDSN(testDSN)(opts)

	if opts.DBDSN != testDSN {
		t.Errorf("Expected DBDSN to be %q, got %q", testDSN, opts.DBDSN)
	}
}

func TestWithQRCodeOutputOption(t *testing.T) {
	opts := &Opts{}

	testPath := "/tmp/qr.txt"
	WithQRCodeOutput(testPath)(opts)

	if opts.QRPath != testPath {
		t.Errorf("Expected QRPath to be %q, got %q", testPath, opts.QRPath)
	}
}

func TestWithNumericCodeOption(t *testing.T) {
	opts := &Opts{}

	WithNumericCode()(opts)

	if !opts.NumericCode {
		t.Errorf("Expected NumericCode to be true, got false")
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	tests := []struct {
		dsn  string
		want bool
	}{
		{"/tmp/test.db", false},
		{"file:/tmp/test.db?_foreign_keys=on", true},
		{"/tmp/test.db?foreign_keys=on", true},
	}
	for _, tt := range tests {
		if got := ForeignKeysEnabled(tt.dsn); got != tt.want {
			t.Errorf("ForeignKeysEnabled(%q) = %v, want %v", tt.dsn, got, tt.want)
		}
	}
}

func TestSenderIdentity(t *testing.T) {
	jid := types.NewJID("5216671234567", JIDSuffix)
	if got := SenderIdentity(jid); got != "+5216671234567" {
		t.Errorf("SenderIdentity = %q", got)
	}
}

func TestMockClientRecords(t *testing.T) {
	m := NewMockClient()
	if err := m.SendMessage(context.Background(), "5216671234567", "hola"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent := m.Sent()
	if len(sent) != 1 || sent[0].To != "5216671234567" || sent[0].Body != "hola" {
		t.Fatalf("unexpected recorded messages: %+v", sent)
	}
}
