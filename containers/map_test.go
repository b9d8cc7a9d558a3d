package containers

import (
	"testing"

	"github.com/drpcorg/weave/rdx"
	"github.com/stretchr/testify/assert"
)

func mapOp(client rdx.ClientID, counter rdx.Counter, key string, v any) Op {
	set := MapSet{Key: key}
	if v == nil {
		set.Deleted = true
	} else {
		set.Value, _ = ValueOf(v)
	}
	return Op{ID: rdx.NewID(client, counter), Content: set}
}

func TestMap_LastWriterWins(t *testing.T) {
	x5 := mapOp(0x1, 5, "k", 1)
	y3 := mapOp(0x2, 3, "k", 2)

	a, b := NewMap(), NewMap()
	assert.Nil(t, a.Apply(x5))
	assert.Nil(t, a.Apply(y3))
	assert.Nil(t, b.Apply(y3))
	assert.Nil(t, b.Apply(x5))

	va, _ := a.Get("k")
	vb, _ := b.Get("k")
	assert.Equal(t, Int(1), va)
	assert.Equal(t, va, vb)
	w, _ := a.Writer("k")
	assert.Equal(t, rdx.NewID(1, 5), w)
}

func TestMap_TieOnCounter(t *testing.T) {
	m := NewMap()
	assert.Nil(t, m.Apply(mapOp(0x2, 4, "k", "two")))
	assert.Nil(t, m.Apply(mapOp(0x1, 4, "k", "one")))
	v, ok := m.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "two", v.Native())
}

func TestMap_Delete(t *testing.T) {
	m := NewMap()
	assert.Nil(t, m.Apply(mapOp(0x1, 0, "a", 1.5)))
	assert.Nil(t, m.Apply(mapOp(0x1, 1, "b", true)))
	assert.Nil(t, m.Apply(mapOp(0x1, 2, "a", nil)))
	_, ok := m.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, m.Keys())
	assert.Equal(t, 1, m.Len())
	// an older write does not resurrect the key
	assert.Nil(t, m.Apply(mapOp(0x2, 1, "a", "late")))
	_, ok = m.Get("a")
	assert.False(t, ok)
	assert.Equal(t, map[string]Value{"b": Bool(true)}, m.Value())
}

func TestMap_RejectsTextOps(t *testing.T) {
	m := NewMap()
	op := Op{ID: rdx.NewID(1, 0), Content: TextInsert{Text: "x"}}
	assert.Error(t, m.Apply(op))
	assert.Error(t, m.Check(op))
	assert.Error(t, m.Check(Op{ID: rdx.NewID(1, 0), Content: MapSet{Key: "k"}}))
}
