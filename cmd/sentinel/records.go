package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kinship-hq/sentinel/pkg/api/handlers"
	"kinship-hq/sentinel/pkg/api/types"
	"kinship-hq/sentinel/pkg/cli"
	"kinship-hq/sentinel/pkg/store"
	"kinship-hq/sentinel/pkg/store/retention"
)

var recordsFlags struct {
	author   string
	severity string
	kind     string
	reviewed string
	limit    int
	offset   int
	output   string
	days     int
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect and review moderation records",
	Long: `Inspect moderation records, mark them reviewed, and prune old data.

Examples:
  # Unreviewed high severity records
  sentinel records list --severity high --reviewed false

  # One record as JSON
  sentinel records show 6f1c... --output json

  # Mark a record reviewed
  sentinel records review 6f1c...

  # Notifications for a reviewer and warnings for an author
  sentinel records notifications mod-1
  sentinel records warnings u42

  # Run one retention pass now
  sentinel records prune --days 90`,
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List moderation records, newest first",
	Args:  cobra.NoArgs,
	RunE:  listRecords,
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one moderation record",
	Args:  cobra.ExactArgs(1),
	RunE:  showRecord,
}

var recordsReviewCmd = &cobra.Command{
	Use:   "review <id>",
	Short: "Mark a moderation record reviewed",
	Args:  cobra.ExactArgs(1),
	RunE:  reviewRecord,
}

var recordsNotificationsCmd = &cobra.Command{
	Use:   "notifications <reviewer-id>",
	Short: "List the notifications sent to a reviewer",
	Args:  cobra.ExactArgs(1),
	RunE:  listNotifications,
}

var recordsWarningsCmd = &cobra.Command{
	Use:   "warnings <author-id>",
	Short: "List the warnings issued to an author",
	Args:  cobra.ExactArgs(1),
	RunE:  listWarnings,
}

var recordsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete reviewed records and acknowledged warnings past retention",
	Args:  cobra.NoArgs,
	RunE:  pruneRecords,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsListCmd, recordsShowCmd, recordsReviewCmd,
		recordsNotificationsCmd, recordsWarningsCmd, recordsPruneCmd)

	recordsCmd.PersistentFlags().StringVarP(&recordsFlags.output, "output", "o", "text", "output format: text, json, csv")

	f := recordsListCmd.Flags()
	f.StringVar(&recordsFlags.author, "author", "", "filter by author id")
	f.StringVar(&recordsFlags.severity, "severity", "", "filter by severity: low, medium, high, critical")
	f.StringVar(&recordsFlags.kind, "kind", "", "filter by most severe violation kind")
	f.StringVar(&recordsFlags.reviewed, "reviewed", "", "filter by review state: true, false")
	f.IntVar(&recordsFlags.limit, "limit", store.DefaultQueryLimit, "maximum records to return")
	f.IntVar(&recordsFlags.offset, "offset", 0, "records to skip")

	recordsPruneCmd.Flags().IntVar(&recordsFlags.days, "days", 0, "override storage.retention.days")
}

// recordTable renders a record list.
type recordTable struct {
	*types.RecordList
}

func (t recordTable) Headers() []string {
	return []string{"ID", "AUTHOR", "TYPE", "KIND", "SEVERITY", "CONFIDENCE", "REVIEWED", "CREATED"}
}

func (t recordTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Records))
	for _, r := range t.Records {
		rows = append(rows, []string{
			r.ID,
			r.AuthorID,
			r.ContentType,
			r.ViolationKind,
			r.SeverityLevel,
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			strconv.FormatBool(r.Reviewed),
			r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

// recordDetail renders one record vertically.
type recordDetail struct {
	types.ModerationRecord
}

func (d recordDetail) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

func (d recordDetail) Rows() [][]string {
	r := d.ModerationRecord
	return [][]string{
		{"id", r.ID},
		{"author", r.AuthorID},
		{"content_type", r.ContentType},
		{"kind", r.ViolationKind},
		{"violations", strings.Join(r.Violations, ",")},
		{"severity", r.SeverityLevel},
		{"confidence", strconv.FormatFloat(r.Confidence, 'f', 2, 64)},
		{"reviewed", strconv.FormatBool(r.Reviewed)},
		{"created", r.CreatedAt.UTC().Format(time.RFC3339)},
		{"content", r.Content},
	}
}

type notificationRow struct {
	ID       string    `json:"id"`
	RecordID string    `json:"moderationRecordId"`
	Message  string    `json:"message"`
	Created  time.Time `json:"createdAt"`
}

type notificationTable struct {
	Recipient     string            `json:"recipientId"`
	Notifications []notificationRow `json:"notifications"`
}

func (t notificationTable) Headers() []string {
	return []string{"ID", "RECORD", "CREATED", "MESSAGE"}
}

func (t notificationTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Notifications))
	for _, n := range t.Notifications {
		rows = append(rows, []string{n.ID, n.RecordID, n.Created.UTC().Format(time.RFC3339), n.Message})
	}
	return rows
}

type warningRow struct {
	ID           string    `json:"id"`
	RecordID     string    `json:"moderationRecordId"`
	WarningType  string    `json:"warningType"`
	Message      string    `json:"message"`
	Acknowledged bool      `json:"acknowledged"`
	Created      time.Time `json:"createdAt"`
}

type warningTable struct {
	Author   string       `json:"authorId"`
	Warnings []warningRow `json:"warnings"`
}

func (t warningTable) Headers() []string {
	return []string{"ID", "RECORD", "TYPE", "ACKNOWLEDGED", "CREATED", "MESSAGE"}
}

func (t warningTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Warnings))
	for _, w := range t.Warnings {
		rows = append(rows, []string{
			w.ID, w.RecordID, w.WarningType, strconv.FormatBool(w.Acknowledged),
			w.Created.UTC().Format(time.RFC3339), w.Message,
		})
	}
	return rows
}

// withStore runs fn against the configured store and prints its result.
func withStore(cmd *cobra.Command, format string, fn func(ctx context.Context, a *app) (any, error)) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(format))
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newStoreApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close(ctx)

	result, err := fn(ctx, a)
	if err != nil {
		return err
	}
	return formatter.FormatTo(cmd.OutOrStdout(), result)
}

// recordQuery validates the list flags the same way the HTTP API validates
// query parameters.
func recordQuery() (*store.Query, error) {
	values := url.Values{}
	set := func(k, v string) {
		if v != "" {
			values.Set(k, v)
		}
	}
	set("author", recordsFlags.author)
	set("severity", recordsFlags.severity)
	set("kind", recordsFlags.kind)
	set("reviewed", recordsFlags.reviewed)
	values.Set("limit", strconv.Itoa(recordsFlags.limit))
	values.Set("offset", strconv.Itoa(recordsFlags.offset))
	return handlers.ParseQuery(values)
}

func listRecords(cmd *cobra.Command, args []string) error {
	q, err := recordQuery()
	if err != nil {
		return err
	}
	return withStore(cmd, recordsFlags.output, func(ctx context.Context, a *app) (any, error) {
		records, err := a.store.QueryModerationRecords(ctx, q)
		if err != nil {
			return nil, err
		}
		return recordTable{types.NewRecordList(records, q.EffectiveLimit(), q.Offset)}, nil
	})
}

func showRecord(cmd *cobra.Command, args []string) error {
	return withStore(cmd, recordsFlags.output, func(ctx context.Context, a *app) (any, error) {
		r, err := a.store.GetModerationRecord(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return recordDetail{types.NewModerationRecord(r)}, nil
	})
}

func reviewRecord(cmd *cobra.Command, args []string) error {
	return withStore(cmd, recordsFlags.output, func(ctx context.Context, a *app) (any, error) {
		if err := a.store.MarkReviewed(ctx, args[0]); err != nil {
			return nil, err
		}
		r, err := a.store.GetModerationRecord(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return recordDetail{types.NewModerationRecord(r)}, nil
	})
}

func listNotifications(cmd *cobra.Command, args []string) error {
	return withStore(cmd, recordsFlags.output, func(ctx context.Context, a *app) (any, error) {
		ns, err := a.store.ListNotifications(ctx, args[0])
		if err != nil {
			return nil, err
		}
		t := notificationTable{Recipient: args[0], Notifications: make([]notificationRow, 0, len(ns))}
		for _, n := range ns {
			t.Notifications = append(t.Notifications, notificationRow{
				ID: n.ID, RecordID: n.ModerationRecordID, Message: n.Message, Created: n.CreatedAt,
			})
		}
		return t, nil
	})
}

func listWarnings(cmd *cobra.Command, args []string) error {
	return withStore(cmd, recordsFlags.output, func(ctx context.Context, a *app) (any, error) {
		ws, err := a.store.ListWarnings(ctx, args[0])
		if err != nil {
			return nil, err
		}
		t := warningTable{Author: args[0], Warnings: make([]warningRow, 0, len(ws))}
		for _, w := range ws {
			t.Warnings = append(t.Warnings, warningRow{
				ID: w.ID, RecordID: w.ModerationRecordID, WarningType: w.WarningType,
				Message: w.Message, Acknowledged: w.Acknowledged, Created: w.CreatedAt,
			})
		}
		return t, nil
	})
}

type pruneSummary struct {
	Cutoff        time.Time `json:"cutoff"`
	Records       int64     `json:"records"`
	Notifications int64     `json:"notifications"`
	Warnings      int64     `json:"warnings"`
}

func (s pruneSummary) String() string {
	return fmt.Sprintf("pruned %d records, %d notifications, %d warnings created before %s",
		s.Records, s.Notifications, s.Warnings, s.Cutoff.UTC().Format(time.RFC3339))
}

func pruneRecords(cmd *cobra.Command, args []string) error {
	if recordsFlags.days < 0 {
		return cli.NewConfigError("days", "must be >= 0")
	}
	return withStore(cmd, recordsFlags.output, func(ctx context.Context, a *app) (any, error) {
		rc := a.cfg.Storage.Retention
		if recordsFlags.days > 0 {
			rc.Days = recordsFlags.days
		}
		if rc.Days == 0 {
			return nil, cli.NewConfigError("storage.retention.days", "retention is disabled; pass --days to prune")
		}
		pruner := retention.NewPruner(a.store, rc, a.logger)
		cutoff := pruner.Cutoff()
		res, err := pruner.Prune(ctx)
		if err != nil {
			return nil, err
		}
		return pruneSummary{
			Cutoff:        cutoff,
			Records:       res.Records,
			Notifications: res.Notifications,
			Warnings:      res.Warnings,
		}, nil
	})
}
