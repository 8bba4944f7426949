package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mirror/internal/queryir"
	"github.com/roach88/mirror/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Where string
}

// CompilationResult is the SQL a where-query pushes down to the sqlite
// backend, with the portability verdict of its IR.
type CompilationResult struct {
	SQL      string   `json:"sql"`
	Params   []any    `json:"params"`
	Portable bool     `json:"portable"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r CompilationResult) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, r.SQL)
	fmt.Fprintf(&b, "params: %v\n", r.Params)
	if r.Portable {
		b.WriteString("portable: yes")
	} else {
		b.WriteString("portable: no")
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "\nwarning: %s", w)
	}
	return b.String()
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <entity>",
		Short: "Compile a where-query to SQL",
		Long: `Compile a where-query to the parameterized SQL the sqlite backend runs.

Array targets become IN lists plus JSON type checks, so the query is
reported as not portable to backends without JSON typing.

Example:
  mirror compile person --where '{"name":"Ann","team":["red","blue"]}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Where, "where", "", "where-query JSON object")

	return cmd
}

func runCompile(opts *CompileOptions, entity string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	where, err := parseObject("--where", opts.Where)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error(), err)
	}

	q := queryir.FromWhere(entity, where)
	validation := queryir.Validate(q)
	formatter.VerboseLog("Query IR: %+v", q)

	sql, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, "compilation failed", err)
	}
	if params == nil {
		params = []any{}
	}

	return formatter.Success(CompilationResult{
		SQL:      sql,
		Params:   params,
		Portable: validation.IsPortable,
		Warnings: validation.Warnings,
	})
}
