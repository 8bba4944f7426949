package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// Backend names accepted by --backend.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Backend  string // "sqlite" | "badger" | "memory"
	Database string // sqlite file or badger directory
	Manifest string // optional CUE entity manifest
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidBackends defines the allowed CRUD backends.
var ValidBackends = []string{BackendSQLite, BackendBadger, BackendMemory}

// NewRootCommand creates the root command for the mirror CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "mirror - a queryable local record store",
		Long: `Keep a client-local mirror of backend records and query it.

Records are fetched through a CRUD backend (SQLite, Badger or an
in-process memory server), merged into the local store, then filtered
and sorted locally.

The memory backend lives only for one invocation: every run starts with
an empty server, so records put in one run are not visible to the next.
Use it for trying commands out; use sqlite or badger to keep records.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if !slices.Contains(ValidBackends, opts.Backend) {
				return fmt.Errorf("invalid backend %q: must be one of %v", opts.Backend, ValidBackends)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", BackendSQLite, "CRUD backend (sqlite|badger|memory); memory starts empty on every run")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "mirror.db", "sqlite database file or badger directory")
	cmd.PersistentFlags().StringVar(&opts.Manifest, "manifest", "", "CUE entity manifest")

	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}
