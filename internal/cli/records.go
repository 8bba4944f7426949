package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mirror/internal/collection"
	"github.com/roach88/mirror/internal/value"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Fields []string
}

// DeleteResult is the payload of the delete command.
type DeleteResult struct {
	Entity  string   `json:"entity"`
	Deleted []string `json:"deleted"`
}

func (r DeleteResult) String() string {
	return fmt.Sprintf("deleted %d %s record(s)", len(r.Deleted), r.Entity)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// withSession opens a session for entity, runs fn and closes the session.
func withSession(opts *RootOptions, cmd *cobra.Command, entity string, fn func(*OutputFormatter, *Session) error) error {
	f := newFormatter(opts, cmd)
	logger := NewLogger(opts, cmd.ErrOrStderr())

	s, err := OpenSession(opts, entity, logger)
	if err != nil {
		code := ErrCodeBackendOpen
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Message == "failed to load manifest" {
			code = ErrCodeManifest
		}
		if outErr := f.Error(code, err.Error(), nil); outErr != nil {
			return outErr
		}
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			logger.Error("error closing backend", "error", closeErr)
		}
	}()

	return fn(f, s)
}

// swallowed reports a CRUD failure the store was configured not to raise.
func swallowed(f *OutputFormatter, op string) error {
	return f.Fail(ExitFailure, string(collection.ErrCodeBackendFailure), op+" failed", nil)
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <entity> <id>",
		Short: "Fetch one record from the backend",
		Long: `Fetch one record from the backend and print it.

Example:
  mirror get person 0190f5a4-5e1c-7cc2-8b4a-2f6f2b0c9d11
  mirror get person 0190f5a4-5e1c-7cc2-8b4a-2f6f2b0c9d11 --fields name,age`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts.RootOptions, cmd, args[0], func(f *OutputFormatter, s *Session) error {
				res, err := s.Store.Fetch(cmd.Context(), args[1], opts.Fields...)
				if err != nil {
					return f.StoreError("fetch", err)
				}
				if !res.Success {
					return swallowed(f, "fetch")
				}
				return f.Records([]value.Object{res.Data})
			})
		},
	}

	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "fields to fetch (id field is always included)")

	return cmd
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <entity> <json>",
		Short: "Create or update a record",
		Long: `Send a record to the backend and print the stored form.

A record without an identifier is created and gets one from the backend.
An existing record is updated: listed fields replace stored ones and the
rest are kept.

Example:
  mirror put person '{"name":"Ann","age":30}'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			dto, err := parseObject("record", args[1])
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeBadInput, err.Error(), err)
			}
			return withSession(rootOpts, cmd, args[0], func(f *OutputFormatter, s *Session) error {
				res, err := s.Store.Upsert(cmd.Context(), dto)
				if err != nil {
					return f.StoreError("upsert", err)
				}
				if !res.Success {
					return swallowed(f, "upsert")
				}
				return f.Records([]value.Object{res.Data})
			})
		},
	}

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <entity> <id>...",
		Short: "Delete records from the backend",
		Long: `Delete one or more records from the backend.

Several ids are deleted together: if any is unknown, none is deleted.

Example:
  mirror delete person a
  mirror delete person a b c`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, ids := args[0], args[1:]
			return withSession(rootOpts, cmd, entity, func(f *OutputFormatter, s *Session) error {
				op := "destroy"
				var (
					res collection.Result
					err error
				)
				if len(ids) == 1 {
					res, err = s.Store.Destroy(cmd.Context(), ids[0])
				} else {
					op = "destroyMultiple"
					res, err = s.Store.DestroyMultiple(cmd.Context(), ids)
				}
				if err != nil {
					return f.StoreError(op, err)
				}
				if !res.Success {
					return swallowed(f, op)
				}
				return f.Success(DeleteResult{Entity: entity, Deleted: ids})
			})
		},
	}

	return cmd
}
