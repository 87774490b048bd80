package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andmorefine/clay-community-site/pkg/client"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL    string
	cfgFile      string
	outputFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "modctl",
	Short: "Moderation CLI for the clay community site",
	Long: `modctl lets moderators work the report and appeal queues, score text
and sanction accounts from the terminal.

Credentials come from --token, or from email/password in the config file
(~/.clay/modctl.yaml) or the MODCTL_EMAIL / MODCTL_PASSWORD variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.clay")
			viper.SetConfigName("modctl")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("modctl")
		viper.AutomaticEnv()
		if err := viper.ReadInConfig(); err != nil {
			var cfgNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &cfgNotFound) && cfgFile != "" {
				return fmt.Errorf("read config: %w", err)
			}
		}
		if serverURL == "" {
			serverURL = viper.GetString("server")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.clay/modctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "API base URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().String("token", "", "bearer token (skips login)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text or json")
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(appealsCmd)
	rootCmd.AddCommand(suspendCmd)
	rootCmd.AddCommand(unsuspendCmd)
	rootCmd.AddCommand(warnCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(versionCmd)
}

// authedClient returns a client carrying a token, logging in when needed.
func authedClient(ctx context.Context) (*client.Client, error) {
	if tok := viper.GetString("token"); tok != "" {
		return client.New(serverURL, client.WithBearerToken(tok))
	}
	c, err := client.New(serverURL)
	if err != nil {
		return nil, err
	}
	email, password := viper.GetString("email"), viper.GetString("password")
	if email == "" || password == "" {
		return nil, errors.New("no credentials: pass --token or set email and password (MODCTL_EMAIL / MODCTL_PASSWORD)")
	}
	if _, err := c.Login(ctx, email, password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return c, nil
}

func parseID(what, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

// ── login ────────────────────────────────────────────────────────────────────

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and print a bearer token",
	Long: `login exchanges email/password for a token. Store it in the config file
or MODCTL_TOKEN to skip logging in on every command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password := viper.GetString("email"), viper.GetString("password")
		if email == "" || password == "" {
			return errors.New("set email and password (MODCTL_EMAIL / MODCTL_PASSWORD)")
		}
		c, err := client.New(serverURL)
		if err != nil {
			return err
		}
		tok, err := c.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

// ── score ────────────────────────────────────────────────────────────────────

var scoreUser string

var scoreCmd = &cobra.Command{
	Use:   "score <text>",
	Short: "Score text with the spam detector",
	Long: `score runs the content scorer on text. With --user the behaviour of that
account is folded in and the full verdict is shown. Scoring never files a
report.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := authedClient(ctx)
		if err != nil {
			return err
		}
		text := strings.Join(args, " ")

		if scoreUser == "" {
			res, err := c.ScoreText(ctx, text)
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return printJSON(res)
			}
			fmt.Printf("Spam:       %t\n", res.Spam)
			fmt.Printf("Score:      %d\n", res.Score)
			fmt.Printf("Confidence: %s\n", res.Confidence)
			for _, r := range res.Reasons {
				fmt.Printf("  - %s\n", r)
			}
			return nil
		}

		uid, err := parseID("user", scoreUser)
		if err != nil {
			return err
		}
		v, err := c.Verdict(ctx, text, uid)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(v)
		}
		fmt.Printf("Verdict: %s (score %d)\n", v.Action, v.Score)
		if v.Content != nil {
			for _, r := range v.Content.Reasons {
				fmt.Printf("  content:  %s\n", r)
			}
		}
		if v.Behavior != nil {
			for _, r := range v.Behavior.Reasons {
				fmt.Printf("  behavior: %s\n", r)
			}
		}
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreUser, "user", "", "author user id to include behaviour scoring")
}

// ── overview / audit ─────────────────────────────────────────────────────────

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show pending reports, recent actions and pending appeals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := authedClient(ctx)
		if err != nil {
			return err
		}
		ov, err := c.Overview(ctx)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(ov)
		}
		fmt.Printf("Pending reports: %d\n", len(ov.PendingReports))
		fmt.Printf("Recent actions:  %d\n", len(ov.RecentActions))
		fmt.Printf("Pending appeals: %d\n\n", len(ov.PendingAppeals))
		printReports(ov.PendingReports)
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit-verify",
	Short: "Verify the moderation audit hash chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := authedClient(ctx)
		if err != nil {
			return err
		}
		st, err := c.VerifyAudit(ctx)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(st)
		}
		if !st.Valid {
			return fmt.Errorf("audit chain INVALID after %d entries: %s", st.Entries, st.Error)
		}
		fmt.Printf("✓ audit chain valid (%d entries)\n", st.Entries)
		return nil
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the modctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("modctl %s\n", version)
	},
}
