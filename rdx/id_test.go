package rdx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseID(t *testing.T) {
	ids := []string{
		"0-0",
		"3-1",
		"fa3-57",
		"fffff-ffffffff",
	}
	for _, str := range ids {
		id := IDFromString(str)
		assert.NotEqual(t, BadId, id)
		assert.Equal(t, str, id.String())
	}
	assert.Equal(t, BadId, IDFromString("12"))
	assert.Equal(t, NewID(0x8e, 0x82f0), IDFromString("8e-82f0"))
}

func TestIDZip(t *testing.T) {
	for _, id := range []ID{ID0, NewID(1, 0), NewID(0xabcdef, 1), NewID(1<<40, 1<<20)} {
		assert.Equal(t, id, IDFromZipBytes(id.ZipBytes()))
	}
	assert.Equal(t, BadId, IDFromZipBytes(make([]byte, 7)))
}

func TestIDOrder(t *testing.T) {
	x5 := NewID(1, 5)
	y3 := NewID(2, 3)
	assert.True(t, y3.Less(x5))
	assert.Equal(t, 1, x5.Compare(y3))
	// same counter: client breaks the tie
	assert.True(t, NewID(1, 3).Less(y3))
	assert.Equal(t, 0, x5.Compare(NewID(1, 5)))
	assert.Equal(t, NewID(1, 7), x5.Inc(2))
}
