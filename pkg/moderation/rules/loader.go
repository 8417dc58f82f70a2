package rules

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kinship-hq/sentinel/pkg/moderation"
)

// maxFileSize bounds the size of a rules file.
const maxFileSize = 1 << 20

// File is the on-disk layout of a custom rules file.
type File struct {
	Version int    `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// Rule is one custom detection rule. Exactly one of Regex or Phrases must be
// set.
type Rule struct {
	Name string `yaml:"name"`

	// Kind is abusive_language, dangerous_content or spam.
	Kind string `yaml:"kind"`

	// Regex is a raw RE2 expression.
	Regex string `yaml:"regex"`

	// Phrases are matched case-insensitively as whole words.
	Phrases []string `yaml:"phrases"`

	// Obfuscate makes phrases tolerant of leetspeak substitution.
	Obfuscate bool `yaml:"obfuscate"`

	// Disabled rules are parsed but not compiled.
	Disabled bool `yaml:"disabled"`
}

// LoadError describes a rules file that could not be read or compiled.
type LoadError struct {
	// Path is the rules file.
	Path string

	// Rule is the offending rule name, empty for file level errors.
	Rule string

	Message string
	Cause   error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	prefix := fmt.Sprintf("failed to load rules file %q", e.Path)
	if e.Rule != "" {
		prefix += fmt.Sprintf(" (rule %q)", e.Rule)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// LoadFile reads and compiles a rules file.
func LoadFile(path string) ([]moderation.Pattern, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "cannot stat file", Cause: err}
	}
	if info.Size() > maxFileSize {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("file exceeds %d bytes", maxFileSize)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "cannot read file", Cause: err}
	}

	patterns, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
			return nil, le
		}
		return nil, &LoadError{Path: path, Message: "invalid rules", Cause: err}
	}
	return patterns, nil
}

// Parse compiles rules from YAML. All rules must compile for the set to be
// accepted.
func Parse(data []byte) ([]moderation.Pattern, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &LoadError{Message: "invalid YAML", Cause: err}
	}
	if f.Version > 1 {
		return nil, &LoadError{Message: fmt.Sprintf("unsupported version %d", f.Version)}
	}

	seen := make(map[string]bool, len(f.Rules))
	patterns := make([]moderation.Pattern, 0, len(f.Rules))
	for i, r := range f.Rules {
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule_%d", i)
		}
		if seen[r.Name] {
			return nil, &LoadError{Rule: r.Name, Message: "duplicate rule name"}
		}
		seen[r.Name] = true

		if r.Disabled {
			continue
		}
		p, err := compile(r)
		if err != nil {
			return nil, &LoadError{Rule: r.Name, Message: "invalid rule", Cause: err}
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func compile(r Rule) (moderation.Pattern, error) {
	kind, err := moderation.ParseViolationKind(r.Kind)
	if err != nil {
		return moderation.Pattern{}, err
	}
	if kind == moderation.KindInvalidStructure {
		return moderation.Pattern{}, fmt.Errorf("kind %q is reserved for the structural validator", r.Kind)
	}

	switch {
	case r.Regex != "" && len(r.Phrases) > 0:
		return moderation.Pattern{}, errors.New("regex and phrases are mutually exclusive")
	case r.Regex != "":
		return moderation.NewPattern(r.Name, kind, r.Regex)
	case len(r.Phrases) > 0:
		return moderation.PhrasePattern(r.Name, kind, r.Phrases, r.Obfuscate)
	default:
		return moderation.Pattern{}, errors.New("one of regex or phrases is required")
	}
}
