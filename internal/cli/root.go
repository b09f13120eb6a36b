// Package cli implements inventoryctl, the operator command line for the
// inventory service.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/pkg/pagination"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Backend is what the commands operate on once connected.
type Backend interface {
	Migrate(ctx context.Context) error
	MigrationFiles() ([]string, error)
	Reconcile(ctx context.Context, productID string) (*domain.ReconcileResult, error)
	SyncAll(ctx context.Context) (*domain.SyncReport, error)
	GetLowStock(ctx context.Context, page pagination.Params) (*domain.LowStockReport, error)
	GetStockHistory(ctx context.Context, productID string, variantID *string, limit int) ([]domain.LedgerEntry, error)
	Close()
}

// Connector opens a Backend. Commands that never touch the database do not
// call it.
type Connector func(ctx context.Context) (Backend, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string // "json" | "text"
	Connect Connector
}

// NewRootCommand creates the root command for inventoryctl.
func NewRootCommand(connect Connector) *cobra.Command {
	opts := &RootOptions{Connect: connect}

	cmd := &cobra.Command{
		Use:   "inventoryctl",
		Short: "Operate the inventory service",
		Long:  "Run migrations, reconcile variant stock and inspect stock levels and history.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewLowStockCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// withBackend connects, runs fn and closes the backend.
func withBackend(cmd *cobra.Command, opts *RootOptions, fn func(context.Context, Backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := opts.Connect(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect", err)
	}
	defer b.Close()
	return fn(ctx, b)
}
