package types

import (
	"encoding/json"
	"strings"
	"testing"

	"kinship-hq/sentinel/pkg/moderation"
)

func TestNewClassifyResponse(t *testing.T) {
	tests := []struct {
		name    string
		verdict *moderation.Verdict
		want    string
	}{
		{
			name:    "clean",
			verdict: &moderation.Verdict{Valid: true, Violations: []moderation.Violation{}, Message: moderation.MessageApproved},
			want:    `{"success":true,"flagged":false,"violations":[],"message":"Content approved"}`,
		},
		{
			name: "flagged",
			verdict: &moderation.Verdict{
				Valid:   true,
				Flagged: true,
				Violations: []moderation.Violation{
					{Kind: moderation.KindAbusiveLanguage, Confidence: 0.6},
				},
				Severity: moderation.SeverityMedium,
				Message:  "Content flagged for: abusive language",
			},
			want: `{"success":true,"flagged":true,"violations":["abusive_language"],"severityLevel":"medium","requiresReview":false,"message":"Content flagged for: abusive language"}`,
		},
		{
			name: "structural",
			verdict: &moderation.Verdict{
				Flagged:    true,
				Violations: []moderation.Violation{{Kind: moderation.KindInvalidStructure, Confidence: 1}},
				Errors:     []string{"external links not allowed"},
				Message:    moderation.MessageInvalid,
			},
			want: `{"success":false,"flagged":true,"violations":["invalid_structure"],"errors":["external links not allowed"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(NewClassifyResponse(tt.verdict))
			if err != nil {
				t.Fatal(err)
			}
			if got := string(b); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestClassifyResponse_Structural(t *testing.T) {
	structural := NewClassifyResponse(&moderation.Verdict{
		Flagged:    true,
		Violations: []moderation.Violation{{Kind: moderation.KindInvalidStructure}},
		Errors:     []string{"content is empty"},
	})
	if !structural.Structural() {
		t.Error("structural rejection not detected")
	}
	if NewFailureResponse("boom").Structural() {
		t.Error("internal failure reported as structural")
	}
}

func TestNewFailureResponse(t *testing.T) {
	tests := []struct {
		name string
		resp *ClassifyResponse
		want string
	}{
		{
			name: "internal failure",
			resp: NewFailureResponse("Internal server error"),
			want: `{"success":false,"error":"Internal server error"}`,
		},
		{
			name: "error wins over verdict fields",
			resp: &ClassifyResponse{Flagged: false, Violations: []string{}, Message: "Content approved", Error: "store unavailable"},
			want: `{"success":false,"error":"store unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatal(err)
			}
			if got := string(b); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
			if strings.Contains(string(b), "flagged") {
				t.Errorf("failure body must not carry flagged: %s", b)
			}
		})
	}
}

func TestFailureResponse_RoundTrip(t *testing.T) {
	b, err := json.Marshal(NewFailureResponse("Internal server error"))
	if err != nil {
		t.Fatal(err)
	}
	var got ClassifyResponse
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Success || got.Error != "Internal server error" {
		t.Errorf("decoded = %+v", got)
	}
}
