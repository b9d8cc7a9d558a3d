package containers

import (
	"slices"

	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/weave_errors"
	"github.com/pkg/errors"
)

type mapEntry struct {
	value   Value
	deleted bool
	writer  rdx.ID
}

// Map is a last-writer-wins map. Of two writes to a key, the one with
// the greater op ID wins (see rdx.ID.Compare), so the result does not
// depend on the order ops arrive in.
type Map struct {
	entries map[string]mapEntry
}

func NewMap() *Map {
	return &Map{entries: make(map[string]mapEntry)}
}

func (m *Map) Apply(op Op) error {
	set, ok := op.Content.(MapSet)
	if !ok {
		return errors.Wrapf(weave_errors.ErrBadChange, "%c op on a map", op.Content.Lit())
	}
	cur, ok := m.entries[set.Key]
	if ok && !cur.writer.Less(op.ID) {
		return nil
	}
	m.entries[set.Key] = mapEntry{
		value:   set.Value,
		deleted: set.Deleted,
		writer:  op.ID,
	}
	return nil
}

func (m *Map) Check(op Op) error {
	set, ok := op.Content.(MapSet)
	if !ok {
		return errors.Wrapf(weave_errors.ErrBadChange, "%c op on a map", op.Content.Lit())
	}
	if !set.Deleted && !set.Value.Valid() {
		return errors.Wrapf(weave_errors.ErrBadChange, "bad value for key %q", set.Key)
	}
	return nil
}

func (m *Map) Get(key string) (Value, bool) {
	e, ok := m.entries[key]
	if !ok || e.deleted {
		return Value{}, false
	}
	return e.value, true
}

// Writer returns the ID of the op that wrote the key last, tombstones
// included.
func (m *Map) Writer(key string) (rdx.ID, bool) {
	e, ok := m.entries[key]
	return e.writer, ok
}

// Keys lists live keys, sorted.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for key, e := range m.entries {
		if !e.deleted {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

func (m *Map) Len() int {
	n := 0
	for _, e := range m.entries {
		if !e.deleted {
			n++
		}
	}
	return n
}

func (m *Map) Value() map[string]Value {
	ret := make(map[string]Value, len(m.entries))
	for key, e := range m.entries {
		if !e.deleted {
			ret[key] = e.value
		}
	}
	return ret
}
