package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/pkg/pagination"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply the embedded schema migrations. Already-applied versions are skipped.

Examples:
  inventoryctl migrate
  inventoryctl migrate --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, func(ctx context.Context, b Backend) error {
				files, err := b.MigrationFiles()
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read migrations", err)
				}
				if !dryRun {
					if err := b.Migrate(ctx); err != nil {
						return WrapExitError(ExitFailure, "migration failed", err)
					}
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), map[string]any{"migrations": files, "applied": !dryRun})
				}
				verb := "applied"
				if dryRun {
					verb = "would apply"
				}
				for _, f := range files {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, f)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list migrations without applying them")
	return cmd
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile every product that has variants",
		Long: `Overwrite each product's aggregate stock with the sum of its variant stock.
Exits with status 1 when any product failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, func(ctx context.Context, b Backend) error {
				report, err := b.SyncAll(ctx)
				if report != nil {
					if werr := printSyncReport(cmd, opts, report); werr != nil {
						return werr
					}
				}
				if err != nil {
					return WrapExitError(ExitFailure, "sync interrupted", err)
				}
				if report.Failed > 0 {
					return NewExitError(ExitFailure, fmt.Sprintf("%d of %d products failed", report.Failed, report.Products))
				}
				return nil
			})
		},
	}
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <product-id>",
		Short: "Reconcile one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, func(ctx context.Context, b Backend) error {
				res, err := b.Reconcile(ctx, strings.TrimSpace(args[0]))
				if err != nil {
					return WrapExitError(ExitFailure, "reconcile failed", err)
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "product %s: %d -> %d (variants: %d, drift: %+d, in stock: %t)\n",
					res.ProductID, res.Previous, res.Stock, res.VariantCount, res.Drift(), res.InStock)
				return nil
			})
		},
	}
}

// NewLowStockCommand creates the low-stock command.
func NewLowStockCommand(opts *RootOptions) *cobra.Command {
	var page, perPage int

	cmd := &cobra.Command{
		Use:   "low-stock",
		Short: "List low and out-of-stock products and variants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, func(ctx context.Context, b Backend) error {
				report, err := b.GetLowStock(ctx, pagination.New(page, perPage))
				if err != nil {
					return WrapExitError(ExitFailure, "low-stock query failed", err)
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), report)
				}

				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "KIND\tID\tPRODUCT\tSTOCK\tTHRESHOLD\tBAND")
				for _, inv := range report.Products {
					band := "low"
					if !inv.InStock() {
						band = "out"
					}
					fmt.Fprintf(tw, "product\t%s\t-\t%d\t%d\t%s\n", inv.ProductID, inv.Stock, inv.StockThreshold, band)
				}
				for _, alerts := range [][]domain.VariantAlert{report.Variants, report.OutOfStockVariants} {
					for _, a := range alerts {
						fmt.Fprintf(tw, "variant\t%s\t%s\t%d\t%d\t%s\n", a.VariantID, a.ProductID, a.StockQuantity, a.Threshold, a.Band)
					}
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d low-stock products in total\n", report.ProductsTotal)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page of products to list")
	cmd.Flags().IntVar(&perPage, "per-page", pagination.DefaultPerPage, "products per page")
	return cmd
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var (
		variantID string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "history <product-id>",
		Short: "Show a product's stock ledger, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, func(ctx context.Context, b Backend) error {
				var variant *string
				if v := strings.TrimSpace(variantID); v != "" {
					variant = &v
				}
				entries, err := b.GetStockHistory(ctx, strings.TrimSpace(args[0]), variant, limit)
				if err != nil {
					return WrapExitError(ExitFailure, "history query failed", err)
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), entries)
				}

				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "WHEN\tVARIANT\tCHANGE\tREASON")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%+d\t%s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), formatVariant(e.VariantID), e.Change, e.Reason)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&variantID, "variant", "", "only show entries for this variant")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries (default: server setting)")
	return cmd
}

func printSyncReport(cmd *cobra.Command, opts *RootOptions, report *domain.SyncReport) error {
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "products: %d  reconciled: %d  corrected: %d  failed: %d  (%s)\n",
		report.Products, report.Reconciled, report.Corrected, report.Failed, report.Duration.Round(time.Millisecond))
	if len(report.Failures) == 0 {
		return nil
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "PRODUCT\tERROR")
	for _, f := range report.Failures {
		fmt.Fprintf(tw, "%s\t%s\n", f.ProductID, f.Error)
	}
	return tw.Flush()
}
