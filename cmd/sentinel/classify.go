package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kinship-hq/sentinel/pkg/api/types"
	"kinship-hq/sentinel/pkg/cli"
	"kinship-hq/sentinel/pkg/client"
	"kinship-hq/sentinel/pkg/moderation"
)

// errBlocked is returned with --exit-code when the decision is block.
var errBlocked = errors.New("content blocked")

var classifyFlags struct {
	user        string
	contentType string
	escalate    bool
	remote      string
	timeout     time.Duration
	output      string
	exitCode    bool
}

var classifyCmd = &cobra.Command{
	Use:   "classify [content]",
	Short: "Classify a piece of content",
	Long: `Classify content and print the verdict with the caller decision.

Content is taken from the arguments, or from stdin when no argument or "-"
is given. By default classification runs in process and nothing is written.
Use --escalate to write the moderation record, reviewer notifications and
user warning, or --remote to classify against a running server.

Examples:
  # Classify in process
  sentinel classify --user u1 "hello there"

  # Classify a post and escalate if flagged
  sentinel classify --user u1 --type post --escalate "text"

  # Ask a running server and fail the shell pipeline on block
  echo "text" | sentinel classify --user u1 --remote http://127.0.0.1:8090 --exit-code`,
	RunE: classifyContent,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVarP(&classifyFlags.user, "user", "u", "", "author id (required)")
	classifyCmd.Flags().StringVarP(&classifyFlags.contentType, "type", "t", "message", "content type: message, post, comment, profile")
	classifyCmd.Flags().BoolVar(&classifyFlags.escalate, "escalate", false, "write escalation side effects for flagged content")
	classifyCmd.Flags().StringVar(&classifyFlags.remote, "remote", "", "base URL of a running server")
	classifyCmd.Flags().DurationVar(&classifyFlags.timeout, "timeout", 5*time.Second, "timeout for --remote calls")
	classifyCmd.Flags().StringVarP(&classifyFlags.output, "output", "o", "text", "output format: text, json, csv")
	classifyCmd.Flags().BoolVar(&classifyFlags.exitCode, "exit-code", false, "exit non-zero when the content is blocked")
	_ = classifyCmd.MarkFlagRequired("user")
}

// classifyOutput is the verdict plus the caller decision.
type classifyOutput struct {
	Decision   client.Action           `json:"decision"`
	Notice     string                  `json:"notice,omitempty"`
	Verdict    *types.ClassifyResponse `json:"verdict,omitempty"`
	Confidence *float64                `json:"confidence,omitempty"`
	Patterns   []string                `json:"patterns,omitempty"`
	Escalation *escalationOutput       `json:"escalation,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

type escalationOutput struct {
	Queued    bool     `json:"queued,omitempty"`
	RecordID  string   `json:"recordId,omitempty"`
	Notified  []string `json:"notified,omitempty"`
	WarningID string   `json:"warningId,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

func (o *classifyOutput) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

func (o *classifyOutput) Rows() [][]string {
	rows := [][]string{{"decision", string(o.Decision)}}
	add := func(k, v string) {
		if v != "" {
			rows = append(rows, []string{k, v})
		}
	}
	add("notice", o.Notice)
	add("error", o.Error)
	if v := o.Verdict; v != nil {
		rows = append(rows, []string{"flagged", strconv.FormatBool(v.Flagged)})
		add("violations", strings.Join(v.Violations, ","))
		add("severity", v.SeverityLevel)
		if v.RequiresReview != nil {
			rows = append(rows, []string{"requires_review", strconv.FormatBool(*v.RequiresReview)})
		}
		add("message", v.Message)
		add("errors", strings.Join(v.Errors, "; "))
	}
	if o.Confidence != nil {
		rows = append(rows, []string{"confidence", strconv.FormatFloat(*o.Confidence, 'f', 2, 64)})
	}
	add("patterns", strings.Join(o.Patterns, ","))
	if e := o.Escalation; e != nil {
		if e.Queued {
			rows = append(rows, []string{"escalation", "queued"})
		}
		add("record_id", e.RecordID)
		add("notified", strings.Join(e.Notified, ","))
		add("warning_id", e.WarningID)
		add("escalation_errors", strings.Join(e.Errors, "; "))
	}
	return rows
}

func newClassifyOutput(d client.Decision) *classifyOutput {
	return &classifyOutput{
		Decision: d.Action,
		Notice:   d.Message,
		Verdict:  d.Verdict,
	}
}

func classifyContent(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(classifyFlags.output))
	if err != nil {
		return err
	}
	content, err := readContent(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	contentType, err := moderation.ParseContentType(classifyFlags.contentType)
	if err != nil {
		return cli.NewConfigError("type", err.Error())
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var out *classifyOutput
	if classifyFlags.remote != "" {
		out, err = classifyRemote(ctx, content, contentType)
	} else {
		out, err = classifyInProcess(ctx, content, contentType)
	}
	if err != nil {
		return err
	}

	if err := formatter.FormatTo(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	if classifyFlags.exitCode && out.Decision == client.ActionBlock {
		return errBlocked
	}
	return nil
}

func classifyInProcess(ctx context.Context, content string, contentType moderation.ContentType) (*classifyOutput, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := newApp(ctx, cfg, appOptions{escalate: classifyFlags.escalate})
	if err != nil {
		return nil, err
	}
	defer a.close(ctx)

	return classifyWith(ctx, a, moderation.Request{
		Content:     content,
		AuthorID:    classifyFlags.user,
		ContentType: contentType,
	})
}

func classifyWith(ctx context.Context, a *app, req moderation.Request) (*classifyOutput, error) {
	res, err := a.service.Classify(ctx, req)
	if err != nil {
		return nil, err
	}

	out := newClassifyOutput(client.Decide(types.NewClassifyResponse(res.Verdict)))
	if res.Verdict.Flagged && res.Verdict.Valid {
		confidence := res.Verdict.Confidence
		out.Confidence = &confidence
	}
	out.Patterns = res.Verdict.Patterns

	switch {
	case res.Queued:
		out.Escalation = &escalationOutput{Queued: true}
	case res.Escalation != nil:
		e := &escalationOutput{
			RecordID:  res.Escalation.RecordID,
			Notified:  res.Escalation.Notified,
			WarningID: res.Escalation.WarningID,
		}
		for _, stepErr := range res.Escalation.Errors {
			e.Errors = append(e.Errors, stepErr.Error())
		}
		out.Escalation = e
	}
	return out, nil
}

func classifyRemote(ctx context.Context, content string, contentType moderation.ContentType) (*classifyOutput, error) {
	c, err := client.New(client.Config{
		BaseURL: classifyFlags.remote,
		Timeout: classifyFlags.timeout,
	})
	if err != nil {
		return nil, cli.NewConfigError("remote", err.Error())
	}

	resp, err := c.Classify(ctx, types.ClassifyRequest{
		Content:     &content,
		UserID:      classifyFlags.user,
		ContentType: string(contentType),
	})
	if err != nil {
		out := newClassifyOutput(client.Decide(nil))
		out.Error = err.Error()
		return out, nil
	}
	return newClassifyOutput(client.Decide(resp)), nil
}

// readContent joins args, or reads r when args are empty or "-".
func readContent(r io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read content from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
