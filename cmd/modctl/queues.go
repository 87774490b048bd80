package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
	"github.com/andmorefine/clay-community-site/pkg/client"
)

// ── reports ──────────────────────────────────────────────────────────────────

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List and resolve user reports",
}

var (
	listStatus string
	listLimit  int
)

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := authedClient(ctx)
		if err != nil {
			return err
		}
		reports, err := c.ListReports(ctx, listStatus, listLimit)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(reports)
		}
		printReports(reports)
		return nil
	},
}

var (
	resolveContentAction string
	resolveDuration      string
	resolveReason        string
)

var reportsResolveCmd = &cobra.Command{
	Use:   "resolve <report-id> <dismiss|approve|warn_user|suspend_user>",
	Short: "Act on a report",
	Long: `resolve closes a report with one of the moderator actions:

  modctl reports resolve <id> dismiss
  modctl reports resolve <id> approve --content remove
  modctl reports resolve <id> warn_user --reason "spam links"
  modctl reports resolve <id> suspend_user --duration 1_week --reason "repeat spam"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("report", args[0])
		if err != nil {
			return err
		}
		c, err := authedClient(ctx)
		if err != nil {
			return err
		}
		res, err := c.ResolveReport(ctx, id, &client.ResolveReportRequest{
			Action:        model.ReportAction(args[1]),
			ContentAction: model.ContentAction(resolveContentAction),
			Duration:      resolveDuration,
			Reason:        resolveReason,
		})
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(res)
		}
		fmt.Printf("✓ %s\n", res.Message)
		if res.Action != nil {
			fmt.Printf("  action: %s %s\n", res.Action.ActionType, res.Action.ID)
		}
		return nil
	},
}

func printReports(reports []*client.Report) {
	if len(reports) == 0 {
		fmt.Println("no reports")
		return
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tSTATUS\tTARGET\tREASON\tCREATED")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s:%s\t%s\t%s\n",
			r.ID, r.Status, r.Target.Kind, r.Target.ID, r.Reason, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

// ── appeals ──────────────────────────────────────────────────────────────────

var appealsCmd = &cobra.Command{
	Use:   "appeals",
	Short: "List and decide appeals",
}

var appealsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List appeals, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := authedClient(ctx)
		if err != nil {
			return err
		}
		appeals, err := c.ListAppeals(ctx, listStatus, listLimit)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(appeals)
		}
		if len(appeals) == 0 {
			fmt.Println("no appeals")
			return nil
		}
		w := newTable()
		fmt.Fprintln(w, "ID\tSTATUS\tACTION\tAPPELLANT\tCREATED")
		for _, a := range appeals {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				a.ID, a.Status, a.ModerationActionID, a.AppellantID, a.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var appealsResolveCmd = &cobra.Command{
	Use:   "resolve <appeal-id> <approve|deny>",
	Short: "Approve or deny an appeal",
	Long: `Approving an appeal reverses the appealed action: a suspension is lifted
and removed content is republished.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("appeal", args[0])
		if err != nil {
			return err
		}
		c, err := authedClient(ctx)
		if err != nil {
			return err
		}
		res, err := c.ResolveAppeal(ctx, id, args[1])
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(res)
		}
		fmt.Printf("✓ %s\n", res.Message)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{reportsListCmd, appealsListCmd} {
		c.Flags().StringVar(&listStatus, "status", "", "comma-separated status filter (e.g. pending,under_review)")
		c.Flags().IntVar(&listLimit, "limit", 50, "maximum rows")
	}
	reportsResolveCmd.Flags().StringVar(&resolveContentAction, "content", "", "content action for approve: remove or approve")
	reportsResolveCmd.Flags().StringVar(&resolveDuration, "duration", "1_day", "suspension length: 1_day, 3_days, 1_week, 1_month, permanent")
	reportsResolveCmd.Flags().StringVar(&resolveReason, "reason", "", "reason for warn_user / suspend_user")

	reportsCmd.AddCommand(reportsListCmd, reportsResolveCmd)
	appealsCmd.AddCommand(appealsListCmd, appealsResolveCmd)
}
