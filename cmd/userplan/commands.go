package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pdfgate/internal/bootstrap"
	"pdfgate/internal/domain"
	"pdfgate/internal/entitlement"
	"pdfgate/internal/infra"
	"pdfgate/internal/registry"
)

// usageWindow is the look-back for the conversion count shown next to daily_limit.
const usageWindow = 24 * time.Hour

type globalFlags struct {
	driver       string
	databaseURL  string
	sqlitePath   string
	registryFile string
	timeout      time.Duration
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "userplan",
		Short:         "Inspect and change subscription plans and credits",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.driver, "driver", envOr("STORE_DRIVER", infra.StoreDriverPostgres), "store driver (postgres, sqlite)")
	root.PersistentFlags().StringVar(&g.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	root.PersistentFlags().StringVar(&g.sqlitePath, "sqlite-path", envOr("SQLITE_PATH", "./pdfgate.db"), "sqlite database path")
	root.PersistentFlags().StringVar(&g.registryFile, "registry", os.Getenv("TOOL_REGISTRY_FILE"), "tool registry override file")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 10*time.Second, "overall command timeout")

	root.AddCommand(newShowCmd(g), newSetCmd(g), newCheckCmd(g))
	return root
}

func (g *globalFlags) open(ctx context.Context) (*bootstrap.Stores, error) {
	cfg := &infra.Config{
		StoreDriver: strings.ToLower(strings.TrimSpace(g.driver)),
		DatabaseURL: g.databaseURL,
		SQLitePath:  g.sqlitePath,
	}
	if cfg.StoreDriver == infra.StoreDriverPostgres && cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL or --database-url is required for the postgres driver")
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "userplan").Logger().Level(zerolog.WarnLevel)
	return bootstrap.OpenStores(ctx, cfg, logger)
}

func newShowCmd(g *globalFlags) *cobra.Command {
	var id, email string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()
			stores, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer stores.Close()

			p, err := lookup(ctx, stores.Profiles, id, email)
			if err != nil {
				return err
			}
			printProfile(cmd.OutOrStdout(), p)
			used, err := stores.Usage.CountSince(ctx, p.ID, time.Now().Add(-usageWindow))
			if err != nil {
				return fmt.Errorf("count usage: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "conversions_24h=%d\n", used)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user id")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	return cmd
}

func newSetCmd(g *globalFlags) *cobra.Command {
	var (
		id, email, plan string
		credits         int
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Apply a plan change and optionally reset credits",
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, ok := domain.ParsePlanTier(plan)
			if !ok {
				return fmt.Errorf("unsupported plan %q (want free, pro or enterprise)", plan)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()
			stores, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer stores.Close()

			p, err := lookup(ctx, stores.Profiles, id, email)
			if err != nil {
				return err
			}
			updated, err := stores.Profiles.SetPlan(ctx, p.ID, tier, credits)
			if err != nil {
				return fmt.Errorf("update plan: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s: %s -> %s\n", updated.ID, p.Plan, updated.Plan)
			printProfile(cmd.OutOrStdout(), updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user id")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&plan, "plan", "", "plan to assign (free, pro, enterprise)")
	cmd.Flags().IntVar(&credits, "credits", -1, "credit balance to set (negative keeps the current balance)")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	var id, tool string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate access for a user and tool against the live store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(id) == "" || strings.TrimSpace(tool) == "" {
				return errors.New("--id and --tool are required")
			}
			tools, err := registry.Load(g.registryFile)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()
			stores, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer stores.Close()

			evaluator := entitlement.NewEvaluator(stores.Profiles, tools, 0, zerolog.Nop())
			toolID := registry.Normalize(tool)
			d := evaluator.Evaluate(ctx, id, toolID)
			reason := string(d.Reason)
			if !d.Allowed && reason == "" {
				reason = string(domain.KindAccessDenied)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tool=%s registered=%t badge=%q\n", toolID, isRegistered(tools, toolID), tools.Badge(toolID))
			fmt.Fprintf(out, "allowed=%t plan=%s reason=%s\n", d.Allowed, d.Plan, reason)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user id")
	cmd.Flags().StringVar(&tool, "tool", "", "tool name")
	return cmd
}

func lookup(ctx context.Context, profiles bootstrap.ProfileBackend, id, email string) (*domain.Profile, error) {
	id, email = strings.TrimSpace(id), strings.TrimSpace(email)
	var (
		p   *domain.Profile
		err error
	)
	switch {
	case id != "":
		p, err = profiles.ReadProfile(ctx, id)
	case email != "":
		p, err = profiles.ReadProfileByEmail(ctx, email)
	default:
		return nil, errors.New("either --id or --email must be provided")
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

func isRegistered(tools *registry.Registry, toolID string) bool {
	_, ok := tools.Lookup(toolID)
	return ok
}

func printProfile(w io.Writer, p *domain.Profile) {
	fmt.Fprintf(w, "id=%s email=%s plan=%s credits=%d daily_limit=%d updated_at=%s\n",
		p.ID, p.Email, p.Plan, p.CreditsRemaining, p.DailyLimit, p.UpdatedAt.Format(time.RFC3339))
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
