package moderation

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled detection pattern tagged with the kind it reports.
type Pattern struct {
	Name string
	Kind ViolationKind
	re   *regexp.Regexp
}

// NewPattern compiles expr into a Pattern.
func NewPattern(name string, kind ViolationKind, expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern %q: %w", name, err)
	}
	return Pattern{Name: name, Kind: kind, re: re}, nil
}

// MustPattern is like NewPattern but panics on error.
func MustPattern(name string, kind ViolationKind, expr string) Pattern {
	p, err := NewPattern(name, kind, expr)
	if err != nil {
		panic(err)
	}
	return p
}

// PhrasePattern builds a case-insensitive pattern matching any of phrases
// as whole words. With obfuscate set every letter also matches its common
// leetspeak substitutes.
func PhrasePattern(name string, kind ViolationKind, phrases []string, obfuscate bool) (Pattern, error) {
	if len(phrases) == 0 {
		return Pattern{}, fmt.Errorf("pattern %q: no phrases", name)
	}
	alts := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		if obfuscate {
			alts = append(alts, Obfuscate(phrase))
		} else {
			alts = append(alts, literalPhrase(phrase))
		}
	}
	if len(alts) == 0 {
		return Pattern{}, fmt.Errorf("pattern %q: no phrases", name)
	}
	expr := `(?i)(?:^|[^\p{L}\p{N}])(?:` + strings.Join(alts, "|") + `)(?:$|[^\p{L}\p{N}])`
	return NewPattern(name, kind, expr)
}

// Match reports whether the pattern matches text.
func (p Pattern) Match(text string) bool {
	return p.re != nil && p.re.MatchString(text)
}

// String returns the compiled expression.
func (p Pattern) String() string {
	if p.re == nil {
		return ""
	}
	return p.re.String()
}

// leetClasses maps a letter to the characters that commonly stand in for it.
var leetClasses = map[rune]string{
	'a': "[a@4]",
	'b': "[b8]",
	'e': "[e3]",
	'g': "[g9]",
	'i': "[i!1]",
	'l': "[l1]",
	'o': "[o0]",
	's': `[s5$]`,
	't': `[t7+]`,
}

// Obfuscate turns a plain phrase into an expression tolerant of leetspeak
// substitution and stretched letters: "kys" matches "kyyys" and "ky5".
// Whitespace between words matches any run of whitespace.
func Obfuscate(phrase string) string {
	var b strings.Builder
	for i, word := range strings.Fields(strings.ToLower(phrase)) {
		if i > 0 {
			b.WriteString(`\s+`)
		}
		for _, r := range word {
			if class, ok := leetClasses[r]; ok {
				b.WriteString(class)
			} else {
				b.WriteString(regexp.QuoteMeta(string(r)))
			}
			b.WriteByte('+')
		}
	}
	return b.String()
}

func literalPhrase(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}

// abusivePhrases are the built-in abusive language groups. Each group is one
// pattern; groups are evaluated in order.
var abusivePhrases = []struct {
	name    string
	phrases []string
}{
	{"insult", []string{
		"stupid", "worthless", "pathetic", "loser", "idiot", "moron", "dumb", "ugly",
		"nobody likes you", "you are trash", "waste of space",
	}},
	{"self_harm_incitement", []string{
		"kill yourself", "kill your self", "kys", "go die", "end your life",
		"nobody would miss you", "drink bleach",
	}},
	{"sexual_solicitation", []string{
		"send nudes", "send me nudes", "send pics", "nude pics", "sext me",
		"show me your body", "take your clothes off",
	}},
	{"hate_speech", []string{
		"subhuman", "inferior race", "go back to your country", "your kind are vermin",
		"should be exterminated", "gas them",
	}},
	{"threat", []string{
		"i will kill you", "ill kill you", "gonna kill you", "going to kill you",
		"i will hurt you", "beat you up", "watch your back", "i know where you live",
		"you will regret this",
	}},
	{"doxxing", []string{
		"dox", "doxing", "dox you", "post her address", "post his address",
		"leak her address", "leak his address", "leak their address",
		"what is your home address", "give me her number", "give me his number",
	}},
}

// dangerousExprs are the built-in dangerous content patterns. They are
// matched as plain words without leetspeak tolerance.
var dangerousExprs = []struct {
	name string
	expr string
}{
	{"self_harm", `(?i)\b(?:suicide|suicidal|kill myself|end my life|want to die|self[- ]harm|cut myself|overdose on)\b`},
	{"weapons", `(?i)\b(?:make a bomb|build a bomb|pipe bomb|bomb threat|ghost gun|untraceable gun|3d printed gun|buy (?:a )?gun without)\b`},
	{"terrorism", `(?i)\b(?:mass shooting|shoot up the|terrorist attack|join (?:isis|al[- ]qaeda)|jihad against)\b`},
	{"drugs", `(?i)\b(?:sell(?:ing)? (?:weed|cocaine|coke|meth|heroin|fentanyl|pills)|buy (?:cocaine|meth|heroin|fentanyl)|drug dealer|plug for (?:coke|molly|xans))\b`},
	{"hacking", `(?i)\b(?:hack (?:into|your|their|his|her) (?:account|email|phone)|ddos attack|phishing kit|steal (?:passwords|credentials)|keylogger)\b`},
	{"fraud", `(?i)\b(?:stolen credit cards?|credit card dumps?|fake (?:id|passport)s?|money laundering|counterfeit (?:money|bills)|carding)\b`},
}

// BuiltinAbusivePatterns returns the built-in abusive language pattern set.
func BuiltinAbusivePatterns() []Pattern {
	patterns := make([]Pattern, 0, len(abusivePhrases))
	for _, group := range abusivePhrases {
		p, err := PhrasePattern(group.name, KindAbusiveLanguage, group.phrases, true)
		if err != nil {
			panic(err)
		}
		patterns = append(patterns, p)
	}
	return patterns
}

// BuiltinDangerousPatterns returns the built-in dangerous content pattern set.
func BuiltinDangerousPatterns() []Pattern {
	patterns := make([]Pattern, 0, len(dangerousExprs))
	for _, d := range dangerousExprs {
		patterns = append(patterns, MustPattern(d.name, KindDangerousContent, d.expr))
	}
	return patterns
}
