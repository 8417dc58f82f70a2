package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kinship-hq/sentinel/pkg/cli"
	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/moderation"
	"kinship-hq/sentinel/pkg/moderation/rules"
)

var rulesFlags struct {
	file   string
	dir    string
	format string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Work with custom rules files",
}

var rulesLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate custom rules files",
	Long: `Validate custom rules files without starting the server.

Every rule must have a known kind, exactly one of regex or phrases, and a
regex that compiles. A file is only accepted when all its rules are valid.

Examples:
  # Lint single file
  sentinel rules lint --file rules.yaml

  # Lint directory
  sentinel rules lint --dir rules/

  # JSON output for CI/CD
  sentinel rules lint --file rules.yaml --format json`,
	Args: cobra.NoArgs,
	RunE: lintRules,
}

var rulesTestCmd = &cobra.Command{
	Use:   "test [content]",
	Short: "Classify content with a rules file applied",
	Long: `Classify content with the built-in patterns plus the rules in --file and
print which patterns matched. Nothing is written to the store.

Example:
  sentinel rules test --file rules.yaml "buy cheap followers"`,
	RunE: testRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesLintCmd, rulesTestCmd)

	rulesCmd.PersistentFlags().StringVarP(&rulesFlags.file, "file", "f", "", "rules file")
	rulesCmd.PersistentFlags().StringVar(&rulesFlags.format, "format", "text", "output format: text, json")
	rulesLintCmd.Flags().StringVarP(&rulesFlags.dir, "dir", "d", "", "directory of rules files")
}

// LintResult is the lint outcome for a single rules file.
type LintResult struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Rules int    `json:"rules"`
	Rule  string `json:"rule,omitempty"`
	Error string `json:"error,omitempty"`
}

type lintReport struct {
	Results []LintResult `json:"results"`
}

func (r lintReport) Headers() []string {
	return []string{"FILE", "VALID", "RULES", "ERROR"}
}

func (r lintReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Results))
	for _, res := range r.Results {
		rows = append(rows, []string{res.File, strconv.FormatBool(res.Valid), strconv.Itoa(res.Rules), res.Error})
	}
	return rows
}

func lintRules(cmd *cobra.Command, args []string) error {
	files, err := rulesFiles()
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(cli.OutputFormat(rulesFlags.format))
	if err != nil {
		return err
	}

	report := lintReport{Results: make([]LintResult, 0, len(files))}
	invalid := 0
	for _, file := range files {
		res := lintFile(file)
		if !res.Valid {
			invalid++
		}
		report.Results = append(report.Results, res)
	}

	if err := formatter.FormatTo(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d rules files invalid", invalid, len(files))
	}
	return nil
}

func rulesFiles() ([]string, error) {
	if rulesFlags.file == "" && rulesFlags.dir == "" {
		return nil, fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string
	if rulesFlags.file != "" {
		files = append(files, rulesFlags.file)
	}
	if rulesFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(rulesFlags.dir, pattern))
			if err != nil {
				return nil, fmt.Errorf("failed to list rules files: %w", err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no rules files found")
	}
	return files, nil
}

func lintFile(path string) LintResult {
	res := LintResult{File: path}
	patterns, err := rules.LoadFile(path)
	if err != nil {
		var le *rules.LoadError
		if errors.As(err, &le) {
			res.Rule = le.Rule
			res.Error = le.Message
			if le.Cause != nil {
				res.Error += ": " + le.Cause.Error()
			}
			if le.Rule != "" {
				res.Error = fmt.Sprintf("rule %q: %s", le.Rule, res.Error)
			}
		} else {
			res.Error = err.Error()
		}
		return res
	}
	res.Valid = true
	res.Rules = len(patterns)
	return res
}

type ruleTestResult struct {
	Flagged    bool     `json:"flagged"`
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
	Severity   string   `json:"severityLevel,omitempty"`
	Patterns   []string `json:"patterns"`
	Errors     []string `json:"errors,omitempty"`
}

func (r ruleTestResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "valid: %t\nflagged: %t\n", r.Valid, r.Flagged)
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "errors: %s\n", strings.Join(r.Errors, "; "))
	}
	if r.Flagged && r.Valid {
		fmt.Fprintf(&b, "violations: %s\nseverity: %s\n", strings.Join(r.Violations, ","), r.Severity)
	}
	fmt.Fprintf(&b, "patterns: %s", strings.Join(r.Patterns, ","))
	return b.String()
}

func testRules(cmd *cobra.Command, args []string) error {
	if rulesFlags.file == "" {
		return fmt.Errorf("--file must be specified")
	}
	formatter, err := cli.NewFormatter(cli.OutputFormat(rulesFlags.format))
	if err != nil {
		return err
	}
	content, err := readContent(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	patterns, err := rules.LoadFile(rulesFlags.file)
	if err != nil {
		return err
	}
	classifier := moderation.NewClassifier(config.DefaultThresholds())
	classifier.Matcher().SetCustomPatterns(patterns)

	v := classifier.Classify(content)
	res := ruleTestResult{
		Flagged:    v.Flagged,
		Valid:      v.Valid,
		Violations: make([]string, 0, len(v.Violations)),
		Severity:   string(v.Severity),
		Patterns:   append([]string{}, v.Patterns...),
		Errors:     v.Errors,
	}
	for _, k := range v.Kinds() {
		res.Violations = append(res.Violations, string(k))
	}
	return formatter.FormatTo(cmd.OutOrStdout(), res)
}
