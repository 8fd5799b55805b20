// Command zemenctl is an operator tool for pricing checks, dashboard
// snapshots and ops credential hashing.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/alexedwards/argon2id"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-zemen/internal/analytics"
	"github.com/noah-isme/backend-zemen/internal/backend"
	"github.com/noah-isme/backend-zemen/internal/catalog"
	"github.com/noah-isme/backend-zemen/internal/pricing"
	"github.com/noah-isme/backend-zemen/internal/resilience"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "zemenctl",
		Short:         "Operator tooling for the Zemen site API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.AddCommand(newQuoteCmd(), newDashboardCmd(), newHashPasswordCmd())
	return root
}

func newQuoteCmd() *cobra.Command {
	var taxRate string
	cmd := &cobra.Command{
		Use:   "quote NAME=QTY...",
		Short: "Price a selection against the built-in menu",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := decimal.NewFromString(taxRate)
			if err != nil {
				return fmt.Errorf("invalid tax rate %q: %w", taxRate, err)
			}
			sel, err := parseSelection(args)
			if err != nil {
				return err
			}
			if err := pricing.CheckQuantities(sel); err != nil {
				return err
			}
			cat := catalog.Default().Catalog()
			if unknown := pricing.UnknownItems(cat, sel); len(unknown) > 0 {
				return fmt.Errorf("unknown items: %s", strings.Join(unknown, ", "))
			}
			w := cmd.OutOrStdout()
			for _, li := range pricing.LineItems(cat, sel) {
				fmt.Fprintf(w, "%-24s %3d x %8s\n", li.Name, li.Quantity, dollars(li.UnitPrice))
			}
			totals := pricing.ComputeTotals(cat, sel, rate)
			fmt.Fprintf(w, "subtotal %s\ntax      %s\ntotal    %s\n", dollars(totals.Subtotal), dollars(totals.Tax), dollars(totals.Total))
			return nil
		},
	}
	cmd.Flags().StringVar(&taxRate, "tax-rate", envOr("TAX_RATE", pricing.DefaultTaxRate.String()), "sales tax rate")
	return cmd
}

func newDashboardCmd() *cobra.Command {
	var (
		baseURL string
		token   string
		tz      string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Fetch order history from the backend and print the aggregated report as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				return fmt.Errorf("--token is required")
			}
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("invalid tz %q: %w", tz, err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			client := backend.New(baseURL, resilience.HTTPClient{Client: &http.Client{}, MaxAttempts: 3, BaseBackoff: 200 * time.Millisecond})
			orders, err := client.OrderHistory(ctx, token)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(analytics.Aggregate(orders, loc))
		},
	}
	cmd.Flags().StringVar(&baseURL, "backend", envOr("BACKEND_BASE_URL", "http://localhost:8000"), "backend base URL")
	cmd.Flags().StringVar(&token, "token", os.Getenv("ZEMEN_ADMIN_TOKEN"), "admin session token")
	cmd.Flags().StringVar(&tz, "tz", "Local", "IANA zone used for day boundaries")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall request timeout")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password PASSWORD",
		Short: "Print an argon2id hash for OPS_BASIC_AUTH_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := argon2id.CreateHash(args[0], argon2id.DefaultParams)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func parseSelection(args []string) (pricing.Selection, error) {
	sel := pricing.Selection{}
	for _, arg := range args {
		name, qtyRaw, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("expected NAME=QTY, got %q", arg)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(qtyRaw))
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("invalid quantity for %s: %q", name, qtyRaw)
		}
		sel[name] += qty
	}
	return sel, nil
}

func dollars(m pricing.Money) string {
	return "$" + backend.ToMajor(m).StringFixed(2)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
