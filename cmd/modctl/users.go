package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andmorefine/clay-community-site/pkg/client"
)

var (
	sanctionReason   string
	sanctionDuration string
	usersFilter      string
)

// ── users ────────────────────────────────────────────────────────────────────

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Browse accounts and their moderation history",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := authedClient(ctx)
		if err != nil {
			return err
		}
		list, err := c.ListUsers(ctx, usersFilter, listLimit)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(list)
		}
		if len(list) == 0 {
			fmt.Println("no users")
			return nil
		}
		w := newTable()
		fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tSUSPENDED\tWARNINGS\tJOINED")
		for _, u := range list {
			suspended := "no"
			if u.Suspended {
				suspended = "yes"
				if u.SuspendedUntil != nil {
					suspended = "until " + u.SuspendedUntil.Format("2006-01-02")
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				u.ID, u.Username, u.Role, suspended, u.WarningCount, u.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var usersHistoryCmd = &cobra.Command{
	Use:   "history <user-id>",
	Short: "Show actions taken against an account and reports on its profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("user", args[0])
		if err != nil {
			return err
		}
		c, err := authedClient(ctx)
		if err != nil {
			return err
		}
		h, err := c.UserActions(ctx, id)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(h)
		}
		if len(h.Actions) == 0 {
			fmt.Println("no actions")
		} else {
			w := newTable()
			fmt.Fprintln(w, "ID\tTYPE\tMODERATOR\tREASON\tCREATED")
			for _, a := range h.Actions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					a.ID, a.ActionType, a.ModeratorID, a.Reason, a.CreatedAt.Format("2006-01-02 15:04"))
			}
			_ = w.Flush()
		}
		fmt.Println()
		printReports(h.Reports)
		return nil
	},
}

// ── sanctions ────────────────────────────────────────────────────────────────

var suspendCmd = &cobra.Command{
	Use:   "suspend <user-id>",
	Short: "Suspend an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("user", args[0])
		if err != nil {
			return err
		}
		c, err := authedClient(ctx)
		if err != nil {
			return err
		}
		a, err := c.Suspend(ctx, id, sanctionDuration, sanctionReason)
		return printAction("user suspended", a, err)
	},
}

var unsuspendCmd = &cobra.Command{
	Use:   "unsuspend <user-id>",
	Short: "Lift an account suspension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("user", args[0])
		if err != nil {
			return err
		}
		c, err := authedClient(ctx)
		if err != nil {
			return err
		}
		a, err := c.Unsuspend(ctx, id)
		return printAction("suspension lifted", a, err)
	},
}

var warnCmd = &cobra.Command{
	Use:   "warn <user-id>",
	Short: "Warn an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("user", args[0])
		if err != nil {
			return err
		}
		c, err := authedClient(ctx)
		if err != nil {
			return err
		}
		a, err := c.Warn(ctx, id, sanctionReason)
		return printAction("user warned", a, err)
	},
}

func printAction(msg string, a *client.ModerationAction, err error) error {
	if err != nil {
		return err
	}
	if outputFormat == "json" {
		return printJSON(a)
	}
	fmt.Printf("✓ %s\n", msg)
	if a != nil {
		fmt.Printf("  action:  %s %s\n", a.ActionType, a.ID)
		if a.ExpiresAt != nil {
			fmt.Printf("  expires: %s\n", a.ExpiresAt.Format("2006-01-02 15:04 MST"))
		}
	}
	return nil
}

func init() {
	usersListCmd.Flags().StringVar(&usersFilter, "filter", "", "suspended or warned")
	usersListCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum rows")
	usersCmd.AddCommand(usersListCmd, usersHistoryCmd)

	suspendCmd.Flags().StringVar(&sanctionDuration, "duration", "1_day", "1_day, 3_days, 1_week, 1_month or permanent")
	for _, c := range []*cobra.Command{suspendCmd, warnCmd} {
		c.Flags().StringVar(&sanctionReason, "reason", "", "reason shown to the user")
		_ = c.MarkFlagRequired("reason")
	}
}
