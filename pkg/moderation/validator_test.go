package moderation

import (
	"reflect"
	"strings"
	"testing"

	"kinship-hq/sentinel/pkg/config"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(config.DefaultThresholds())

	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "clean sentence",
			content: "I have a great recipe for pasta tonight!",
		},
		{
			name:    "empty",
			content: "",
			want:    []string{ReasonRequired},
		},
		{
			name:    "single word repeated nine times",
			content: "spam spam spam spam spam spam spam spam spam",
			want:    []string{ReasonRepetition},
		},
		{
			name:    "leetspeak repetition",
			content: "5pam spam sp4m spam 5p4m spam spam sp@m spam",
			want:    []string{ReasonRepetition},
		},
		{
			name:    "eight tokens is not enough",
			content: "spam spam spam spam spam spam spam spam",
		},
		{
			name:    "short tokens ignored",
			content: "no no no no no no no no no no no no",
		},
		{
			name:    "letter run",
			content: "hellooooo",
			want:    []string{ReasonCharRepetition},
		},
		{
			name:    "four in a row allowed",
			content: "hellooo!!!!",
		},
		{
			name:    "shouting",
			content: "WHY WOULD YOU DO THAT",
			want:    []string{ReasonCapitalization},
		},
		{
			name:    "short shouting allowed",
			content: "OMG YES",
		},
		{
			name:    "symbol soup",
			content: "#$%&*@#$%& hi there",
			want:    []string{ReasonSuspiciousPattern},
		},
		{
			name:    "www link",
			content: "Check my site www.freemoney.com now!!!",
			want:    []string{ReasonLinks},
		},
		{
			name:    "https link",
			content: "see https://example.org/path",
			want:    []string{ReasonLinks},
		},
		{
			name:    "bare domain",
			content: "go to freemoney.xyz today",
			want:    []string{ReasonLinks},
		},
		{
			name:    "version string is not a link",
			content: "upgraded to v2.0 yesterday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.content)
			if got.Valid != (len(tt.want) == 0) {
				t.Errorf("Valid = %v, errors %v", got.Valid, got.Errors)
			}
			if len(tt.want) == 0 && len(got.Errors) == 0 {
				return
			}
			if !reflect.DeepEqual(got.Errors, tt.want) {
				t.Errorf("Errors = %v, want %v", got.Errors, tt.want)
			}
			if len(got.Checks) != len(got.Errors) {
				t.Errorf("Checks %v not parallel to Errors %v", got.Checks, got.Errors)
			}
		})
	}
}

func TestValidator_MaxLength(t *testing.T) {
	v := NewValidator(config.DefaultThresholds())

	atLimit := strings.Repeat("abcd ", 2000)
	if got := v.Validate(atLimit); containsReason(got.Errors, "maximum length") {
		t.Errorf("10000 characters should be accepted, got %v", got.Errors)
	}

	over := atLimit + "x"
	got := v.Validate(over)
	if got.Valid {
		t.Fatal("expected content over the limit to be rejected")
	}
	want := "Content exceeds maximum length of 10000 characters"
	if got.Errors[0] != want {
		t.Errorf("first error = %q, want %q", got.Errors[0], want)
	}
}

func TestValidator_LengthCountsCharacters(t *testing.T) {
	th := config.DefaultThresholds()
	th.MaxLength = 5
	v := NewValidator(th)

	// Five runes, fifteen bytes.
	if got := v.Validate("日本語です"); containsReason(got.Errors, "maximum length") {
		t.Errorf("expected multi-byte content within limit, got %v", got.Errors)
	}
}

func TestValidator_ChecksAccumulate(t *testing.T) {
	v := NewValidator(config.DefaultThresholds())

	got := v.Validate("BUY NOW!!!!!! WWW.CHEAP.COM")
	want := []string{ReasonCharRepetition, ReasonCapitalization, ReasonLinks}
	if !reflect.DeepEqual(got.Errors, want) {
		t.Errorf("Errors = %v, want %v", got.Errors, want)
	}
}

func TestNormalizeForRepetition(t *testing.T) {
	got := normalizeForRepetition("H3ll0, W0rld! 4ll g00d?")
	want := "hello world all good"
	if got != want {
		t.Errorf("normalizeForRepetition = %q, want %q", got, want)
	}
}

func containsReason(errs []string, fragment string) bool {
	for _, e := range errs {
		if strings.Contains(e, fragment) {
			return true
		}
	}
	return false
}
