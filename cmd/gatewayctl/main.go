// Package main provides gatewayctl, the gateway's operator CLI: a cobra
// command tree implementing the §6.5 admin/reporting surface
// (add-model, toggle-model, list-models, add-routing-rule,
// create-ab-test, create-budget, export-config, get-usage-report,
// get-system-status), each calling straight into the root aigateway
// package's Admin* methods against an environment-wired Gateway —
// replacing cmd/ferrogw-cli's raw os.Args switch in spirit, grounded on
// cmd/ferrogw/main.go's own env-driven wiring.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/analytics"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/budget"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/configstore"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/router"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/version"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/wiring"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "gatewayctl",
		Short:   "Operate a running LLM gateway's configuration and reporting surface",
		Version: version.String(),
	}
	root.AddCommand(
		newAddModelCmd(),
		newToggleModelCmd(),
		newListModelsCmd(),
		newAddRoutingRuleCmd(),
		newCreateABTestCmd(),
		newCreateBudgetCmd(),
		newExportConfigCmd(),
		newGetUsageReportCmd(),
		newGetSystemStatusCmd(),
	)
	return root
}

// decodeFile reads path and unmarshals its JSON into v.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func newAddModelCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add-model",
		Short: "Add or replace a Model Configuration from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg configstore.ModelConfig
			if err := decodeFile(file, &cfg); err != nil {
				return err
			}

			ctx := cmd.Context()
			built, err := wiring.Build(ctx)
			if err != nil {
				return err
			}
			defer built.Close()

			if err := built.Gateway.AdminAddModel(cfg); err != nil {
				return err
			}
			fmt.Printf("model %q added (active=%v, provider_kind=%s)\n", cfg.ModelID, cfg.Active, cfg.ProviderKind)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to a Model Configuration JSON document")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newToggleModelCmd() *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "toggle-model <model-id>",
		Short: "Activate or deactivate a configured model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			built, err := wiring.Build(ctx)
			if err != nil {
				return err
			}
			defer built.Close()

			if err := built.Gateway.AdminToggleModel(args[0], active); err != nil {
				return err
			}
			fmt.Printf("model %q active=%v\n", args[0], active)
			return nil
		},
	}
	cmd.Flags().BoolVar(&active, "active", true, "whether the model should be active")
	return cmd
}

func newListModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-models",
		Short: "List every configured model, active or not",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			built, err := wiring.Build(ctx)
			if err != nil {
				return err
			}
			defer built.Close()

			models := built.Gateway.AdminListModels()
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(models)
		},
	}
}

func newAddRoutingRuleCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add-routing-rule",
		Short: "Add or replace a Routing Rule from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rule router.RoutingRule
			if err := decodeFile(file, &rule); err != nil {
				return err
			}

			ctx := cmd.Context()
			built, err := wiring.Build(ctx)
			if err != nil {
				return err
			}
			defer built.Close()

			built.Gateway.AdminAddRoutingRule(rule)
			fmt.Printf("routing rule %q added\n", rule.RuleID)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to a Routing Rule JSON document")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newCreateABTestCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create-ab-test",
		Short: "Create or replace an A/B test from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var test router.ABTest
			if err := decodeFile(file, &test); err != nil {
				return err
			}

			ctx := cmd.Context()
			built, err := wiring.Build(ctx)
			if err != nil {
				return err
			}
			defer built.Close()

			built.Gateway.AdminCreateABTest(test)
			fmt.Printf("A/B test %q created\n", test.TestID)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to an A/B Test JSON document")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newCreateBudgetCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create-budget",
		Short: "Create or replace a Budget Configuration from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg budget.Config
			if err := decodeFile(file, &cfg); err != nil {
				return err
			}

			ctx := cmd.Context()
			built, err := wiring.Build(ctx)
			if err != nil {
				return err
			}
			defer built.Close()

			built.Gateway.AdminCreateBudget(cfg)
			fmt.Printf("budget %q created (total=%.2f, period=%s)\n", cfg.BudgetID, cfg.Total, cfg.Period)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to a Budget Configuration JSON document")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newExportConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-config",
		Short: "Export the full configuration document (models, routing_rules, ab_tests, budgets, user_tiers, caching_config, rate_limit_config)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			built, err := wiring.Build(ctx)
			if err != nil {
				return err
			}
			defer built.Close()

			data, err := built.Gateway.ExportConfig()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func newGetUsageReportCmd() *cobra.Command {
	var (
		sinceArg string
		untilArg string
		userID   string
		topN     int
	)
	cmd := &cobra.Command{
		Use:   "get-usage-report",
		Short: "Print a Usage Analytics Report for a time window, optionally filtered by user",
		RunE: func(cmd *cobra.Command, args []string) error {
			since, err := parseTimeOrDuration(sinceArg)
			if err != nil {
				return fmt.Errorf("--since: %w", err)
			}
			var until time.Time
			if untilArg != "" {
				until, err = parseTimeOrDuration(untilArg)
				if err != nil {
					return fmt.Errorf("--until: %w", err)
				}
			}

			ctx := cmd.Context()
			built, err := wiring.Build(ctx)
			if err != nil {
				return err
			}
			defer built.Close()

			report, err := built.Gateway.GetUsageReport(ctx, analytics.Window{Since: since, Until: until}, userID, topN)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&sinceArg, "since", "24h", "window start: an RFC3339 timestamp or a duration in the past (e.g. 24h)")
	cmd.Flags().StringVar(&untilArg, "until", "", "window end: RFC3339 timestamp or duration in the past (default: now)")
	cmd.Flags().StringVar(&userID, "user", "", "filter to one user (default: all users)")
	cmd.Flags().IntVar(&topN, "top", 5, "number of top models to include")
	return cmd
}

func newGetSystemStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-system-status",
		Short: "Print per-model health, circuit states, cache stats, and global budget status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			built, err := wiring.Build(ctx)
			if err != nil {
				return err
			}
			defer built.Close()

			status := built.Gateway.GetProviderStatus(ctx)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		},
	}
}

func parseTimeOrDuration(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 timestamp or duration, got %q", s)
	}
	return time.Now().Add(-d), nil
}
