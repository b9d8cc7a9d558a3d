package weave

import (
	"github.com/drpcorg/weave/containers"
	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/weave_errors"
)

// Map is a handle to a map container of a replica.
type Map struct {
	w    *Weave
	inst *containers.Instance
}

func (m *Map) ID() containers.ID {
	return m.inst.ID()
}

func (m *Map) edit(build func(inst *containers.Instance, next rdx.ID) ([]containers.Content, error)) error {
	if m.w.closed.Load() {
		return weave_errors.ErrClosed
	}
	return m.w.store.Edit(m.inst.ID(), build)
}

// Set writes a scalar; see containers.ValueOf for what v can be.
func (m *Map) Set(key string, v any) error {
	val, err := containers.ValueOf(v)
	if err != nil {
		return err
	}
	return m.edit(func(*containers.Instance, rdx.ID) ([]containers.Content, error) {
		return []containers.Content{containers.MapSet{Key: key, Value: val}}, nil
	})
}

func (m *Map) Delete(key string) error {
	return m.edit(func(*containers.Instance, rdx.ID) ([]containers.Content, error) {
		return []containers.Content{containers.MapSet{Key: key, Deleted: true}}, nil
	})
}

// InsertContainer puts a new container of type t under the key; the
// container is named by the ID of the op that creates it.
func (m *Map) InsertContainer(key string, t containers.Type) (child containers.ID, err error) {
	err = m.edit(func(_ *containers.Instance, next rdx.ID) ([]containers.Content, error) {
		child = containers.Nested(next).WithType(t)
		return []containers.Content{containers.MapSet{Key: key, Value: containers.RefTo(child)}}, nil
	})
	return
}

func (m *Map) Get(key string) (val containers.Value, ok bool) {
	_ = m.inst.WithMap(func(mp *containers.Map) error {
		val, ok = mp.Get(key)
		return nil
	})
	return
}

func (m *Map) Keys() (keys []string) {
	_ = m.inst.WithMap(func(mp *containers.Map) error {
		keys = mp.Keys()
		return nil
	})
	return
}

// Value is a snapshot of the visible entries.
func (m *Map) Value() map[string]containers.Value {
	val, _ := m.inst.Value().(map[string]containers.Value)
	return val
}

// Text is a handle to a text container of a replica.
type Text struct {
	w    *Weave
	inst *containers.Instance
}

func (t *Text) ID() containers.ID {
	return t.inst.ID()
}

// Insert puts s at the rune position pos.
func (t *Text) Insert(pos int, s string) error {
	if t.w.closed.Load() {
		return weave_errors.ErrClosed
	}
	return t.w.store.Edit(t.inst.ID(), func(inst *containers.Instance, _ rdx.ID) (ops []containers.Content, err error) {
		err = inst.WithText(func(txt *containers.Text) error {
			ins, err := txt.InsertAt(pos, s)
			ops = append(ops, ins)
			return err
		})
		return
	})
}

// Delete removes n runes starting at pos.
func (t *Text) Delete(pos, n int) error {
	if t.w.closed.Load() {
		return weave_errors.ErrClosed
	}
	if n == 0 {
		return nil
	}
	return t.w.store.Edit(t.inst.ID(), func(inst *containers.Instance, _ rdx.ID) (ops []containers.Content, err error) {
		err = inst.WithText(func(txt *containers.Text) error {
			del, err := txt.DeleteAt(pos, n)
			ops = append(ops, del)
			return err
		})
		return
	})
}

func (t *Text) String() string {
	s, _ := t.inst.Value().(string)
	return s
}

// Len is the length in runes.
func (t *Text) Len() (n int) {
	_ = t.inst.WithText(func(txt *containers.Text) error {
		n = txt.Len()
		return nil
	})
	return
}
