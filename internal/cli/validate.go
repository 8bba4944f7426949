package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mirror/internal/manifest"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool             `json:"valid"`
	Entities []EntitySummary  `json:"entities,omitempty"`
	Errors   []ValidationItem `json:"errors,omitempty"`
}

// EntitySummary describes one validated entity.
type EntitySummary struct {
	Name               string   `json:"name"`
	IDField            string   `json:"id_field"`
	ThrowOnCrudFailure bool     `json:"throw_on_crud_failure"`
	UUIDIdentifiers    bool     `json:"uuid_ids"`
	DefaultSort        []string `json:"default_sort,omitempty"`
}

// ValidationItem is one manifest problem.
type ValidationItem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [manifest]",
		Short: "Validate an entity manifest",
		Long: `Validate a CUE entity manifest against the manifest schema.

The manifest defaults to the --manifest flag.

Example:
  mirror validate ./entities.cue
  mirror --manifest ./entities.cue validate --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Manifest
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if path == "" {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, "no manifest given", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("manifest not found: %s", path), err)
	}

	formatter.VerboseLog("Validating manifest: %s", path)
	m, err := manifest.Load(path)
	if err != nil {
		return outputValidationErrors(formatter, err)
	}

	result := ValidationResult{Valid: true}
	for _, e := range m.Entities {
		summary := EntitySummary{
			Name:               e.Name,
			IDField:            e.IDField,
			ThrowOnCrudFailure: e.ThrowOnCrudFailure,
			UUIDIdentifiers:    e.UUIDIdentifiers,
		}
		for _, k := range e.DefaultSort {
			key := k.Criteria
			if k.Descending {
				key += " desc"
			}
			summary.DefaultSort = append(summary.DefaultSort, key)
		}
		result.Entities = append(result.Entities, summary)
		formatter.VerboseLog("Entity %s: id field %q", e.Name, e.IDField)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("Manifest valid: %d entit%s (%s)",
		len(m.Entities), pluralY(len(m.Entities)), strings.Join(m.Names(), ", ")))
}

// outputValidationErrors reports a failed manifest load.
func outputValidationErrors(formatter *OutputFormatter, err error) error {
	item := ValidationItem{Field: "manifest", Message: err.Error()}
	var me *manifest.Error
	if errors.As(err, &me) {
		item.Field = me.Field
		item.Message = me.Message
		if me.Pos.IsValid() {
			item.Line = me.Pos.Line()
		}
	}

	if formatter.Format == "json" {
		if outErr := formatter.Error(ErrCodeManifest, "manifest validation failed",
			ValidationResult{Valid: false, Errors: []ValidationItem{item}}); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "manifest validation failed", err)
	}

	w := formatter.Writer
	if item.Line > 0 {
		fmt.Fprintf(w, "line %d: ", item.Line)
	}
	fmt.Fprintf(w, "%s: %s\n", item.Field, item.Message)
	return WrapExitError(ExitFailure, "manifest validation failed", err)
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
