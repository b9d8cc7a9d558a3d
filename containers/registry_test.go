package containers

import (
	"sync"
	"testing"

	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/weave_errors"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_GetOrCreate(t *testing.T) {
	reg := NewRegistry()
	id := Root("doc").WithType(TextType)

	inst, err := reg.Get(id)
	assert.Nil(t, err)
	assert.Nil(t, inst)

	inst, created, err := reg.GetOrCreate(id)
	assert.Nil(t, err)
	assert.True(t, created)
	again, created, err := reg.GetOrCreate(id)
	assert.Nil(t, err)
	assert.False(t, created)
	assert.Same(t, inst, again)

	_, _, err = reg.GetOrCreate(Root("doc").WithType(MapType))
	assert.ErrorIs(t, err, weave_errors.ErrContainerTypeConflict)
	_, err = reg.Get(Root("doc").WithType(MapType))
	assert.ErrorIs(t, err, weave_errors.ErrContainerTypeConflict)

	_, _, err = reg.GetOrCreate(Root("").WithType(MapType))
	assert.ErrorIs(t, err, weave_errors.ErrUnknownContainer)
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := NewRegistry()
	id := Nested(rdx.NewID(7, 1)).WithType(MapType)
	var wg sync.WaitGroup
	got := make([]*Instance, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _, _ = reg.GetOrCreate(id)
		}(i)
	}
	wg.Wait()
	for _, inst := range got {
		assert.Same(t, got[0], inst)
	}
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_IDs(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []ID{
		Nested(rdx.NewID(2, 1)).WithType(TextType),
		Root("b").WithType(MapType),
		Nested(rdx.NewID(1, 1)).WithType(MapType),
		Root("a").WithType(TextType),
	} {
		_, _, err := reg.GetOrCreate(id)
		assert.Nil(t, err)
	}
	var strs []string
	for _, id := range reg.IDs() {
		strs = append(strs, id.String())
	}
	assert.Equal(t, []string{"/a:Text", "/b:Map", "1-1:Map", "2-1:Text"}, strs)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("/doc:Text")
	assert.Nil(t, err)
	assert.Equal(t, Root("doc").WithType(TextType), id)
	id, err = ParseID("1e-1ab:map")
	assert.Nil(t, err)
	assert.Equal(t, Nested(rdx.NewID(0x1e, 0x1ab)).WithType(MapType), id)
	_, err = ParseID("/doc")
	assert.Error(t, err)
	_, err = ParseID("/doc:List")
	assert.Error(t, err)
}
