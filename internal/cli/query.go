package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/mirror/internal/collection"
	"github.com/roach88/mirror/internal/filter"
	"github.com/roach88/mirror/internal/sorter"
	"github.com/roach88/mirror/internal/value"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Where  string   // where-query object sent to the backend
	Filter string   // filter specification applied locally
	Sort   string   // sort specification applied locally
	Fields []string // fields to fetch
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <entity>",
		Short: "Fetch records, then filter and sort them locally",
		Long: `Fetch the records matching --where from the backend into the local
store, then apply the --filter specification and the --sort criteria.
Without --sort the entity's default sort from the manifest applies.

Filter specifications are JSON: a leaf object with a "type", an array
(all must match) or {"type":"and"|"or","children":[...]}.

Examples:
  mirror query person --where '{"team":["red","blue"]}'
  mirror query person --filter '{"type":"fieldValue","fieldName":"age","comparator":"isGreaterThan","needle":21}'
  mirror query person --sort '[{"criteria":"age","descending":true},"name"]'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Where, "where", "", "where-query JSON object sent to the backend")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter specification JSON applied locally")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort specification JSON (string, object or array)")
	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "fields to fetch (id field is always included)")

	return cmd
}

func runQuery(opts *QueryOptions, entity string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	where, err := parseObject("--where", opts.Where)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBadInput, err.Error(), err)
	}
	filterSpec, err := parseJSON("--filter", opts.Filter)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBadInput, err.Error(), err)
	}
	node, err := filter.FromValue(filterSpec)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBadInput, err.Error(), err)
	}
	sortSpec, err := parseJSON("--sort", opts.Sort)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBadInput, err.Error(), err)
	}
	criteria, err := sorter.ParseSpec(sortSpec)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBadInput, err.Error(), err)
	}

	return withSession(opts.RootOptions, cmd, entity, func(f *OutputFormatter, s *Session) error {
		res, err := s.Store.FetchList(cmd.Context(), collection.ListQuery{Where: where, Fields: opts.Fields})
		if err != nil {
			return f.StoreError("fetchList", err)
		}
		if !res.Success {
			return swallowed(f, "fetchList")
		}
		f.VerboseLog("Fetched %d %s record(s)", len(res.Data), entity)

		ids, err := s.Store.Select(node)
		if err != nil {
			return f.StoreError("filter", err)
		}
		ids, err = s.Store.Sort(ids, criteria...)
		if err != nil {
			return f.StoreError("sort", err)
		}
		f.VerboseLog("%d record(s) after filter", len(ids))

		snap := s.Store.Snapshot()
		recs := make([]value.Object, 0, len(ids))
		for _, id := range ids {
			rec, err := snap.GetRecord(id)
			if err != nil {
				return f.StoreError("read", err)
			}
			recs = append(recs, rec)
		}
		return f.Records(recs)
	})
}
