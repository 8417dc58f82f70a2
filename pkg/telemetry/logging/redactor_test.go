package logging

import (
	"log/slog"
	"testing"

	"kinship-hq/sentinel/pkg/config"
)

func TestNewRedactor(t *testing.T) {
	r, err := NewRedactor(nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != len(defaultPatterns) {
		t.Errorf("Len() = %d, want %d", r.Len(), len(defaultPatterns))
	}

	r, err = NewRedactor([]config.RedactPattern{{Name: "member_id", Pattern: `mbr_[0-9]{6}`, Replacement: "mbr_***"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := r.RedactString("member mbr_123456 joined"); got != "member mbr_*** joined" {
		t.Errorf("custom pattern: got %q", got)
	}
}

func TestRedactor_RedactString(t *testing.T) {
	r, err := NewRedactor(nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"email", "mail bob.smith@mail.example.org now", "mail ***@mail.example.org now"},
		{"ipv4", "from 10.1.2.3", "from 10.*.*.*"},
		{"phone", "call 555-867-5309", "call ***-***-****"},
		{"phone with country code", "call 1-555-867-5309", "call ***-***-****"},
		{"bearer", "Authorization: Bearer abc.def.ghi", "Authorization: Bearer ***"},
		{"password", "password=letmein", "password: ***"},
		{"nothing", "content flagged for abusive language", "content flagged for abusive language"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r, err := NewRedactor(nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"sensitive string", slog.String("postgres_dsn", "host=db password=x"), "host***"},
		{"short secret", slog.String("secret", "abc"), "***"},
		{"sensitive non-string", slog.Int("token", 1234), "***"},
		{"plain int", slog.Int("length", 42), "42"},
		{"plain string", slog.String("severity", "high"), "high"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactAttr(tt.attr)
			if got.Value.String() != tt.want {
				t.Errorf("RedactAttr() = %q, want %q", got.Value.String(), tt.want)
			}
		})
	}

	g := r.RedactAttr(slog.Group("author", slog.String("email", "a@b.io")))
	if g.Value.Kind() != slog.KindGroup {
		t.Fatalf("group kind = %v", g.Value.Kind())
	}
	if v := g.Value.Group()[0].Value.String(); v != "***@b.io" {
		t.Errorf("grouped email = %q", v)
	}
}
