package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/mirror/internal/collection"
	"github.com/roach88/mirror/internal/filter"
	"github.com/roach88/mirror/internal/sorter"
	"github.com/roach88/mirror/internal/value"
)

// outcome is what a flow operation produced. result is nil when the
// operation has nothing to report.
type outcome struct {
	result value.Value
	failed bool
}

type operation func(ctx context.Context, h *Harness, args value.Object) (outcome, error)

var operations map[string]operation

func init() {
	operations = map[string]operation{
		"fetch":           opFetch,
		"fetchList":       opFetchList,
		"upsert":          opUpsert,
		"destroy":         opDestroy,
		"destroyMultiple": opDestroyMultiple,
		"merge":           opMerge,
		"upsertLocal":     opUpsertLocal,
		"createLocal":     opCreateLocal,
		"destroyLocal":    opDestroyLocal,
		"deleteFields":    opDeleteFields,
		"empty":           opEmpty,
		"get":             opGet,
		"getRecord":       opGetRecord,
		"where":           opWhere,
		"pluck":           opPluck,
		"select":          opSelect,
		"sort":            opSort,
		"fail":            opFail,
	}
}

func fromResult(res collection.Result) outcome {
	if !res.Success {
		return outcome{failed: true}
	}
	if res.Data.Len() == 0 {
		return outcome{}
	}
	return outcome{result: res.Data}
}

func opFetch(ctx context.Context, h *Harness, args value.Object) (outcome, error) {
	id, err := argString(args, "id")
	if err != nil {
		return outcome{}, err
	}
	fields, err := optStrings(args, "fields")
	if err != nil {
		return outcome{}, err
	}
	res, err := h.store.Fetch(ctx, id, fields...)
	if err != nil {
		return outcome{}, err
	}
	return fromResult(res), nil
}

func opFetchList(ctx context.Context, h *Harness, args value.Object) (outcome, error) {
	q := collection.ListQuery{}
	if v, ok := args.Get("where"); ok {
		where, ok := v.(value.Object)
		if !ok {
			return outcome{}, fmt.Errorf("argument %q must be an object", "where")
		}
		q.Where = where
	}
	fields, err := optStrings(args, "fields")
	if err != nil {
		return outcome{}, err
	}
	q.Fields = fields

	res, err := h.store.FetchList(ctx, q)
	if err != nil {
		return outcome{}, err
	}
	if !res.Success {
		return outcome{failed: true}, nil
	}
	ids := make([]value.Value, len(res.Data))
	for i, rec := range res.Data {
		ids[i], _ = rec.Get(h.store.IDField())
	}
	return outcome{result: value.NewArray(ids...)}, nil
}

func opUpsert(ctx context.Context, h *Harness, args value.Object) (outcome, error) {
	rec, err := argObject(args, "record")
	if err != nil {
		return outcome{}, err
	}
	res, err := h.store.Upsert(ctx, rec)
	if err != nil {
		return outcome{}, err
	}
	return fromResult(res), nil
}

func opDestroy(ctx context.Context, h *Harness, args value.Object) (outcome, error) {
	id, err := argString(args, "id")
	if err != nil {
		return outcome{}, err
	}
	res, err := h.store.Destroy(ctx, id)
	if err != nil {
		return outcome{}, err
	}
	return fromResult(res), nil
}

func opDestroyMultiple(ctx context.Context, h *Harness, args value.Object) (outcome, error) {
	ids, err := optStrings(args, "ids")
	if err != nil {
		return outcome{}, err
	}
	res, err := h.store.DestroyMultiple(ctx, ids)
	if err != nil {
		return outcome{}, err
	}
	return fromResult(res), nil
}

func opMerge(_ context.Context, h *Harness, args value.Object) (outcome, error) {
	v, ok := args.Get("records")
	if !ok {
		return outcome{}, fmt.Errorf("missing argument %q", "records")
	}
	arr, ok := v.(value.Array)
	if !ok {
		return outcome{}, fmt.Errorf("argument %q must be an array", "records")
	}
	recs := make([]value.Object, arr.Len())
	for i, elem := range arr.Values() {
		rec, ok := elem.(value.Object)
		if !ok {
			return outcome{}, fmt.Errorf("records[%d] must be an object", i)
		}
		recs[i] = rec
	}
	return outcome{}, h.store.Merge(recs)
}

func opUpsertLocal(_ context.Context, h *Harness, args value.Object) (outcome, error) {
	rec, err := argObject(args, "record")
	if err != nil {
		return outcome{}, err
	}
	return outcome{}, h.store.UpsertLocal(rec)
}

func opCreateLocal(_ context.Context, h *Harness, args value.Object) (outcome, error) {
	rec, err := argObject(args, "record")
	if err != nil {
		return outcome{}, err
	}
	id, err := h.store.CreateLocal(rec)
	if err != nil {
		return outcome{}, err
	}
	return outcome{result: value.String(id)}, nil
}

func opDestroyLocal(_ context.Context, h *Harness, args value.Object) (outcome, error) {
	id, err := argString(args, "id")
	if err != nil {
		return outcome{}, err
	}
	return outcome{}, h.store.DestroyLocal(id)
}

func opDeleteFields(_ context.Context, h *Harness, args value.Object) (outcome, error) {
	id, err := argString(args, "id")
	if err != nil {
		return outcome{}, err
	}
	fields, err := optStrings(args, "fields")
	if err != nil {
		return outcome{}, err
	}
	return outcome{}, h.store.DeleteFields(id, fields...)
}

func opEmpty(_ context.Context, h *Harness, _ value.Object) (outcome, error) {
	h.store.Empty()
	return outcome{}, nil
}

func opGet(_ context.Context, h *Harness, args value.Object) (outcome, error) {
	id, err := argString(args, "id")
	if err != nil {
		return outcome{}, err
	}
	field, err := argString(args, "field")
	if err != nil {
		return outcome{}, err
	}
	v, err := h.store.Get(id, field)
	if err != nil {
		return outcome{}, err
	}
	return outcome{result: v}, nil
}

func opGetRecord(_ context.Context, h *Harness, args value.Object) (outcome, error) {
	id, err := argString(args, "id")
	if err != nil {
		return outcome{}, err
	}
	rec, err := h.store.GetRecord(id)
	if err != nil {
		return outcome{}, err
	}
	return outcome{result: rec}, nil
}

func opWhere(_ context.Context, h *Harness, args value.Object) (outcome, error) {
	attrs, err := argObject(args, "attrs")
	if err != nil {
		return outcome{}, err
	}
	var opts []collection.WhereOption
	if v, ok := args.Get("ignoreMissing"); ok && value.Equal(v, value.Bool(true)) {
		opts = append(opts, collection.IgnoreMissingFields())
	}
	ids, err := h.store.Where(attrs, opts...)
	if err != nil {
		return outcome{}, err
	}
	return outcome{result: value.Strings(ids...)}, nil
}

func opPluck(_ context.Context, h *Harness, args value.Object) (outcome, error) {
	field, err := argString(args, "field")
	if err != nil {
		return outcome{}, err
	}
	vals, err := h.store.Pluck(field)
	if err != nil {
		return outcome{}, err
	}
	return outcome{result: value.NewArray(vals...)}, nil
}

// opSelect compiles args.filter, applies it to every local record and
// sorts the matches by args.sort when given.
func opSelect(_ context.Context, h *Harness, args value.Object) (outcome, error) {
	spec, _ := args.Get("filter")
	node, err := filter.FromValue(spec)
	if err != nil {
		return outcome{}, invalid(h, err)
	}
	ids, err := h.store.Select(node)
	if err != nil {
		return outcome{}, err
	}
	if sortSpec, ok := args.Get("sort"); ok {
		criteria, err := sorter.ParseSpec(sortSpec)
		if err != nil {
			return outcome{}, invalid(h, err)
		}
		if ids, err = h.store.Sort(ids, criteria...); err != nil {
			return outcome{}, err
		}
	}
	return outcome{result: value.Strings(ids...)}, nil
}

// opSort sorts every local id by args.criteria (or the default sort).
func opSort(_ context.Context, h *Harness, args value.Object) (outcome, error) {
	spec, _ := args.Get("criteria")
	criteria, err := sorter.ParseSpec(spec)
	if err != nil {
		return outcome{}, invalid(h, err)
	}
	ids, err := h.store.Sort(h.store.IDs(), criteria...)
	if err != nil {
		return outcome{}, err
	}
	return outcome{result: value.Strings(ids...)}, nil
}

// opFail makes the next backend call of args.op fail.
func opFail(_ context.Context, h *Harness, args value.Object) (outcome, error) {
	op, err := argString(args, "op")
	if err != nil {
		return outcome{}, err
	}
	msg := "injected failure"
	if v, ok := args.Get("message"); ok {
		if s, ok := v.(value.String); ok {
			msg = string(s)
		}
	}
	h.backend.FailNext(op, errors.New(msg))
	return outcome{}, nil
}

func invalid(h *Harness, err error) error {
	return &collection.Error{
		Code:    collection.ErrCodeInvalidArgument,
		Entity:  h.entity,
		Message: "invalid query",
		Err:     err,
	}
}

func argString(args value.Object, key string) (string, error) {
	v, ok := args.Get(key)
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(value.String)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %s", key, v.Kind())
	}
	return string(s), nil
}

func argObject(args value.Object, key string) (value.Object, error) {
	v, ok := args.Get(key)
	if !ok {
		return value.Object{}, fmt.Errorf("missing argument %q", key)
	}
	obj, ok := v.(value.Object)
	if !ok {
		return value.Object{}, fmt.Errorf("argument %q must be an object, got %s", key, v.Kind())
	}
	return obj, nil
}

func optStrings(args value.Object, key string) ([]string, error) {
	v, ok := args.Get(key)
	if !ok {
		return nil, nil
	}
	arr, ok := v.(value.Array)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an array, got %s", key, v.Kind())
	}
	out := make([]string, arr.Len())
	for i, elem := range arr.Values() {
		s, ok := elem.(value.String)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", key, i)
		}
		out[i] = string(s)
	}
	return out, nil
}
