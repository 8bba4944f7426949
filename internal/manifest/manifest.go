// Package manifest loads per-entity store configuration from CUE.
//
// A manifest declares one block per entity:
//
//	entity: person: {
//		id_field:              "id"
//		throw_on_crud_failure: true
//		uuid_ids:              false
//		default_sort: [{criteria: "name"}, {criteria: "age", descending: true}]
//	}
//
// Every field is optional. The file is unified with a closed schema, so a
// misspelled field is reported with its source position.
package manifest

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/go-playground/validator/v10"

	"github.com/roach88/mirror/internal/collection"
	"github.com/roach88/mirror/internal/sorter"
)

const schemaSource = `
#SortKey: {
	criteria:   string
	descending: *false | bool
}

#Entity: {
	id_field:              *"id" | string
	throw_on_crud_failure: *true | bool
	uuid_ids:              *false | bool
	default_sort:          *[] | [...#SortKey]
}

entity: [string]: #Entity
`

// SortKey is one default sort criterion.
type SortKey struct {
	Criteria   string `json:"criteria" validate:"required"`
	Descending bool   `json:"descending"`
}

// Entity is the configuration of one entity's store.
type Entity struct {
	Name               string    `json:"-" validate:"required,fieldname"`
	IDField            string    `json:"id_field" validate:"required,fieldname"`
	ThrowOnCrudFailure bool      `json:"throw_on_crud_failure"`
	UUIDIdentifiers    bool      `json:"uuid_ids"`
	DefaultSort        []SortKey `json:"default_sort" validate:"dive"`
}

// Manifest is the set of configured entities, sorted by name.
type Manifest struct {
	Entities []Entity `validate:"dive"`
}

// Error reports a manifest problem, with a source position when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("fieldname", validateFieldName)
}

// validateFieldName accepts names usable as record keys and JSON paths.
func validateFieldName(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s != "" && !strings.ContainsAny(s, "\"\x00")
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(path, data)
}

// Parse compiles CUE source into a Manifest. filename is used in error
// positions only.
func Parse(filename string, data []byte) (*Manifest, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	src := ctx.CompileBytes(data, cue.Filename(filename))
	if err := src.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.Unify(src)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	m := &Manifest{}
	entities := v.LookupPath(cue.ParsePath("entity"))
	if entities.Exists() {
		iter, err := entities.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			e := Entity{Name: iter.Label()}
			if err := iter.Value().Decode(&e); err != nil {
				return nil, formatCUEError(err)
			}
			e.Name = iter.Label()
			m.Entities = append(m.Entities, e)
		}
	}
	slices.SortFunc(m.Entities, func(a, b Entity) int { return strings.Compare(a.Name, b.Name) })

	if err := validate.Struct(m); err != nil {
		return nil, &Error{Field: "manifest", Message: err.Error()}
	}
	return m, nil
}

// Lookup returns the named entity's configuration.
func (m *Manifest) Lookup(name string) (Entity, bool) {
	i := slices.IndexFunc(m.Entities, func(e Entity) bool { return e.Name == name })
	if i < 0 {
		return Entity{}, false
	}
	return m.Entities[i], true
}

// Names returns the configured entity names in order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Entities))
	for i, e := range m.Entities {
		names[i] = e.Name
	}
	return names
}

// StoreOptions converts the configuration into collection options.
func (e Entity) StoreOptions() []collection.StoreOption {
	opts := []collection.StoreOption{
		collection.WithIDField(e.IDField),
		collection.WithThrowOnCrudFailure(e.ThrowOnCrudFailure),
	}
	if e.UUIDIdentifiers {
		opts = append(opts, collection.WithUUIDIdentifiers())
	}
	if len(e.DefaultSort) > 0 {
		criteria := make([]sorter.Criterion, len(e.DefaultSort))
		for i, k := range e.DefaultSort {
			c := sorter.By(k.Criteria)
			if k.Descending {
				c = c.Desc()
			}
			criteria[i] = c
		}
		opts = append(opts, collection.WithDefaultSort(criteria...))
	}
	return opts
}

// Default returns the configuration used for entities a manifest does
// not mention.
func Default(name string) Entity {
	return Entity{Name: name, IDField: collection.DefaultIDField, ThrowOnCrudFailure: true}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
