package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var rolesFlags struct {
	output string
}

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage reviewer roles",
	Long: `Grant, revoke and list user roles.

Holders of the roles listed in escalation.reviewer_roles (admin and
moderator by default) are notified about high and critical severity
content.

Examples:
  sentinel roles grant u42 moderator
  sentinel roles revoke u42 moderator
  sentinel roles list --output json`,
}

var rolesGrantCmd = &cobra.Command{
	Use:   "grant <user-id> <role>",
	Short: "Grant a role to a user",
	Args:  cobra.ExactArgs(2),
	RunE:  grantRole,
}

var rolesRevokeCmd = &cobra.Command{
	Use:   "revoke <user-id> <role>",
	Short: "Revoke a role from a user",
	Args:  cobra.ExactArgs(2),
	RunE:  revokeRole,
}

var rolesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List role assignments",
	Args:  cobra.NoArgs,
	RunE:  listRoles,
}

func init() {
	rootCmd.AddCommand(rolesCmd)
	rolesCmd.AddCommand(rolesGrantCmd, rolesRevokeCmd, rolesListCmd)
	rolesCmd.PersistentFlags().StringVarP(&rolesFlags.output, "output", "o", "text", "output format: text, json, csv")
}

type roleRow struct {
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	GrantedAt time.Time `json:"grantedAt"`
}

type roleTable struct {
	Roles []roleRow `json:"roles"`
}

func (t roleTable) Headers() []string {
	return []string{"USER", "ROLE", "GRANTED"}
}

func (t roleTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Roles))
	for _, r := range t.Roles {
		rows = append(rows, []string{r.UserID, r.Role, r.GrantedAt.UTC().Format(time.RFC3339)})
	}
	return rows
}

func normalizeRole(role string) (string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return "", fmt.Errorf("role must not be empty")
	}
	return role, nil
}

func grantRole(cmd *cobra.Command, args []string) error {
	role, err := normalizeRole(args[1])
	if err != nil {
		return err
	}
	return withStore(cmd, rolesFlags.output, func(ctx context.Context, a *app) (any, error) {
		if err := a.store.GrantRole(ctx, args[0], role); err != nil {
			return nil, err
		}
		if !slices.Contains(a.cfg.Escalation.ReviewerRoles, role) {
			a.logger.Warn("role is not a reviewer role, holders will not be notified",
				"role", role, "reviewer_roles", a.cfg.Escalation.ReviewerRoles)
		}
		return fmt.Sprintf("granted %s to %s", role, args[0]), nil
	})
}

func revokeRole(cmd *cobra.Command, args []string) error {
	role, err := normalizeRole(args[1])
	if err != nil {
		return err
	}
	return withStore(cmd, rolesFlags.output, func(ctx context.Context, a *app) (any, error) {
		if err := a.store.RevokeRole(ctx, args[0], role); err != nil {
			return nil, err
		}
		return fmt.Sprintf("revoked %s from %s", role, args[0]), nil
	})
}

func listRoles(cmd *cobra.Command, args []string) error {
	return withStore(cmd, rolesFlags.output, func(ctx context.Context, a *app) (any, error) {
		assignments, err := a.store.ListRoles(ctx)
		if err != nil {
			return nil, err
		}
		t := roleTable{Roles: make([]roleRow, 0, len(assignments))}
		for _, ra := range assignments {
			t.Roles = append(t.Roles, roleRow{UserID: ra.UserID, Role: ra.Role, GrantedAt: ra.GrantedAt})
		}
		return t, nil
	})
}
