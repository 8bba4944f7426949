package collection

import (
	"cmp"

	"github.com/benbjohnson/immutable"
	"github.com/cespare/xxhash"

	"github.com/roach88/mirror/internal/value"
)

// entry is a stored record together with its insertion sequence.
type entry struct {
	seq int64
	rec value.Object
}

// state is one immutable version of the local store. Every mutation
// returns a new state sharing structure with the old one, so readers
// holding a state never observe a later write.
type state struct {
	byID  *immutable.Map[string, entry]
	order *immutable.SortedMap[int64, string]
}

// idHasher implements immutable.Hasher for record identifiers.
type idHasher struct{}

// Hash returns a hash for key.
func (idHasher) Hash(key string) uint32 {
	return uint32(xxhash.Sum64String(key))
}

// Equal returns true if a is equal to b.
func (idHasher) Equal(a, b string) bool {
	return a == b
}

// seqComparer implements immutable.Comparer for insertion sequences.
type seqComparer struct{}

// Compare returns -1 if a < b, 1 if a > b and 0 if they are equal.
func (seqComparer) Compare(a, b int64) int {
	return cmp.Compare(a, b)
}

func newState() state {
	return state{
		byID:  immutable.NewMap[string, entry](idHasher{}),
		order: immutable.NewSortedMap[int64, string](seqComparer{}),
	}
}

func (s state) len() int {
	return s.byID.Len()
}

func (s state) get(id string) (value.Object, bool) {
	e, ok := s.byID.Get(id)
	return e.rec, ok
}

// put stores rec under id. An existing id keeps its insertion position.
func (s state) put(id string, rec value.Object, nextSeq func() int64) state {
	if old, ok := s.byID.Get(id); ok {
		return state{
			byID:  s.byID.Set(id, entry{seq: old.seq, rec: rec}),
			order: s.order,
		}
	}
	seq := nextSeq()
	return state{
		byID:  s.byID.Set(id, entry{seq: seq, rec: rec}),
		order: s.order.Set(seq, id),
	}
}

func (s state) remove(id string) state {
	old, ok := s.byID.Get(id)
	if !ok {
		return s
	}
	return state{
		byID:  s.byID.Delete(id),
		order: s.order.Delete(old.seq),
	}
}

// ids returns the identifiers in insertion order.
func (s state) ids() []string {
	out := make([]string, 0, s.order.Len())
	itr := s.order.Iterator()
	for !itr.Done() {
		_, id, _ := itr.Next()
		out = append(out, id)
	}
	return out
}

// each calls fn for every record in insertion order until fn returns false.
func (s state) each(fn func(id string, rec value.Object) bool) {
	itr := s.order.Iterator()
	for !itr.Done() {
		_, id, _ := itr.Next()
		e, _ := s.byID.Get(id)
		if !fn(id, e.rec) {
			return
		}
	}
}
