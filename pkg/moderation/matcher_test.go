package moderation

import (
	"sync"
	"testing"
)

func TestObfuscate(t *testing.T) {
	tests := []struct {
		phrase string
		want   string
	}{
		{"kys", `k+y+[s5$]+`},
		{"go die", `[g9]+[o0]+\s+d+[i!1]+[e3]+`},
		{"Tab", `[t7+]+[a@4]+[b8]+`},
	}

	for _, tt := range tests {
		if got := Obfuscate(tt.phrase); got != tt.want {
			t.Errorf("Obfuscate(%q) = %q, want %q", tt.phrase, got, tt.want)
		}
	}
}

func TestPhrasePattern_Obfuscated(t *testing.T) {
	p, err := PhrasePattern("incitement", KindAbusiveLanguage, []string{"kill yourself", "kys"}, true)
	if err != nil {
		t.Fatalf("PhrasePattern: %v", err)
	}

	matches := []string{
		"kill yourself",
		"k1ll y0urs3lf",
		"KILL   YOURSELF",
		"just kys.",
		"ky5",
		"kyyyys lol",
	}
	for _, text := range matches {
		if !p.Match(text) {
			t.Errorf("expected %q to match", text)
		}
	}

	misses := []string{
		"skills",
		"killjoy yourselves",
		"keys",
	}
	for _, text := range misses {
		if p.Match(text) {
			t.Errorf("expected %q not to match", text)
		}
	}
}

func TestPhrasePattern_Literal(t *testing.T) {
	p, err := PhrasePattern("promo", KindSpam, []string{"free crypto", "dm me (now)"}, false)
	if err != nil {
		t.Fatalf("PhrasePattern: %v", err)
	}
	if !p.Match("get FREE crypto today") {
		t.Error("expected case-insensitive literal match")
	}
	if p.Match("get fr33 crypto today") {
		t.Error("literal patterns must not tolerate leetspeak")
	}
	if !p.Match("dm me (now) please") {
		t.Error("expected metacharacters to be quoted")
	}
}

func TestPhrasePattern_Empty(t *testing.T) {
	if _, err := PhrasePattern("empty", KindSpam, []string{" ", ""}, false); err == nil {
		t.Error("expected error for phrases that are all blank")
	}
}

func TestNewPattern_InvalidExpression(t *testing.T) {
	if _, err := NewPattern("bad", KindSpam, `([unclosed`); err == nil {
		t.Error("expected compile error")
	}
}

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		name      string
		text      string
		wantKinds []ViolationKind
		abusive   int
		dangerous int
	}{
		{
			name: "clean",
			text: "I have a great recipe for pasta tonight!",
		},
		{
			name:      "insult and incitement",
			text:      "You are so stupid and worthless, kys",
			wantKinds: []ViolationKind{KindAbusiveLanguage},
			abusive:   2,
		},
		{
			name:      "obfuscated incitement",
			text:      "k1ll y0urs3lf",
			wantKinds: []ViolationKind{KindAbusiveLanguage},
			abusive:   1,
		},
		{
			name:      "self harm ideation",
			text:      "some days I just want to die",
			wantKinds: []ViolationKind{KindDangerousContent},
			dangerous: 1,
		},
		{
			name:      "both categories",
			text:      "you are worthless, and I know how to make a bomb",
			wantKinds: []ViolationKind{KindAbusiveLanguage, KindDangerousContent},
			abusive:   1,
			dangerous: 1,
		},
		{
			name:      "several dangerous patterns",
			text:      "how to make a bomb and where to buy fentanyl",
			wantKinds: []ViolationKind{KindDangerousContent},
			dangerous: 2,
		},
		{
			name: "substrings of benign words",
			text: "the paradox left me dumbfounded, closer to home",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(tt.text)
			if len(got.Kinds) != len(tt.wantKinds) {
				t.Fatalf("Kinds = %v, want %v (patterns %v)", got.Kinds, tt.wantKinds, got.Patterns)
			}
			for i := range tt.wantKinds {
				if got.Kinds[i] != tt.wantKinds[i] {
					t.Errorf("Kinds[%d] = %s, want %s", i, got.Kinds[i], tt.wantKinds[i])
				}
			}
			if got.Counts[KindAbusiveLanguage] != tt.abusive {
				t.Errorf("abusive count = %d, want %d (patterns %v)", got.Counts[KindAbusiveLanguage], tt.abusive, got.Patterns)
			}
			if got.Counts[KindDangerousContent] != tt.dangerous {
				t.Errorf("dangerous count = %d, want %d (patterns %v)", got.Counts[KindDangerousContent], tt.dangerous, got.Patterns)
			}
		})
	}
}

func TestMatcher_CustomPatterns(t *testing.T) {
	m := NewMatcher()
	before := m.Patterns().Len()

	spam, err := PhrasePattern("crypto_promo", KindSpam, []string{"free crypto"}, false)
	if err != nil {
		t.Fatal(err)
	}
	m.SetCustomPatterns([]Pattern{spam})

	if got := m.Patterns().Len(); got != before+1 {
		t.Errorf("pattern count = %d, want %d", got, before+1)
	}
	got := m.Match("claim your free crypto")
	if !got.Has(KindSpam) || len(got.Kinds) != 1 {
		t.Errorf("expected spam only, got %v", got.Kinds)
	}

	m.SetCustomPatterns(nil)
	if got := m.Match("claim your free crypto"); len(got.Kinds) != 0 {
		t.Errorf("expected custom pattern removed, got %v", got.Kinds)
	}
}

func TestMatcher_ConcurrentSwap(t *testing.T) {
	m := NewMatcher()
	spam := MustPattern("promo", KindSpam, `(?i)\bpromo\b`)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if i%2 == 0 {
					m.SetCustomPatterns([]Pattern{spam})
				} else {
					m.Match("you are stupid, promo inside")
				}
			}
		}(i)
	}
	wg.Wait()
}
