package weave

import (
	"testing"

	"github.com/drpcorg/weave/containers"
	"github.com/drpcorg/weave/protocol"
	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/weave_errors"
	"github.com/stretchr/testify/assert"
)

func sampleChange() Change {
	doc := containers.Root("doc")
	nested := containers.Nested(rdx.NewID(0xa, 3)).WithType(containers.TextType)
	return Change{
		Client:    0xb,
		Counter:   7,
		Lamport:   42,
		Deps:      []rdx.ID{rdx.NewID(0xa, 3), rdx.NewID(0xc, 0)},
		Timestamp: 1700000000000,
		Ops: []RemoteOp{
			{
				Container: doc.WithType(containers.MapType),
				Counter:   7,
				Content:   containers.MapSet{Key: "k", Value: containers.Flt(-0.5)},
			},
			{
				Container: doc.WithType(containers.MapType),
				Counter:   8,
				Content:   containers.MapSet{Key: "gone", Deleted: true},
			},
			{
				Container: nested,
				Counter:   9,
				Content: containers.TextInsert{
					Origin: containers.Atom{ID: rdx.NewID(0xa, 4), Off: 2},
					Text:   "ж!",
				},
			},
			{
				Container: nested,
				Counter:   10,
				Content: containers.TextDelete{Spans: []containers.Span{
					{ID: rdx.NewID(0xb, 9), Off: 0, Len: 2},
				}},
			},
		},
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	ch := sampleChange()
	assert.Nil(t, ch.Validate())
	data := EncodeChanges([]Change{ch, ch.Slice(9)})
	changes, err := DecodeChanges(data)
	assert.Nil(t, err)
	assert.Len(t, changes, 2)
	assert.Equal(t, ch, changes[0])
	assert.Equal(t, ch.Slice(9), changes[1])
	assert.Equal(t, rdx.Counter(9), changes[1].Ops[0].Counter)
}

func TestCodec_NoDeps(t *testing.T) {
	ch := sampleChange()
	ch.Deps = nil
	changes, err := DecodeChanges(AppendChange(nil, &ch))
	assert.Nil(t, err)
	assert.Equal(t, []Change{ch}, changes)
}

func TestCodec_Bad(t *testing.T) {
	ch := sampleChange()
	data := AppendChange(nil, &ch)

	_, err := DecodeChanges(data[:len(data)-3])
	assert.ErrorIs(t, err, weave_errors.ErrBadRecord)

	_, err = DecodeChanges(protocol.Record('X', []byte("junk")))
	assert.ErrorIs(t, err, weave_errors.ErrBadRecord)

	_, err = DecodeChanges(protocol.Record('C', protocol.Record('I', []byte{1, 2, 3})))
	assert.ErrorIs(t, err, weave_errors.ErrBadRecord)
}

func TestChange_Slice(t *testing.T) {
	ch := sampleChange()
	assert.Equal(t, rdx.Counter(11), ch.End())
	assert.Equal(t, rdx.NewID(0xb, 10), ch.LastID())

	s := ch.Slice(10)
	assert.Equal(t, rdx.Counter(10), s.Counter)
	assert.Equal(t, uint64(45), s.Lamport)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, ch.Deps, s.Deps)
	assert.Equal(t, ch, ch.Slice(3))
	assert.Equal(t, 0, ch.Slice(20).Len())
}

func TestChange_SliceOwnsMemory(t *testing.T) {
	ch := sampleChange()
	want := sampleChange()
	s := ch.Slice(7)
	s.Deps[0] = rdx.NewID(0xd, 1)
	s.Ops[0].Content = containers.MapSet{Key: "other"}
	s.Ops[3].Content.(containers.TextDelete).Spans[0].Len = 9
	assert.Equal(t, want, ch)

	c := ch.Clone()
	assert.Equal(t, ch, c)
	c.Ops[1].Counter = 99
	assert.Equal(t, want, ch)
}

func TestChange_Validate(t *testing.T) {
	ch := sampleChange()
	ch.Client = 0
	assert.ErrorIs(t, ch.Validate(), weave_errors.ErrBadChange)

	ch = sampleChange()
	ch.Ops = nil
	assert.ErrorIs(t, ch.Validate(), weave_errors.ErrBadChange)

	ch = sampleChange()
	ch.Ops[1].Counter = 100
	assert.ErrorIs(t, ch.Validate(), weave_errors.ErrBadChange)

	ch = sampleChange()
	ch.Deps = append(ch.Deps, rdx.NewID(0xb, 1))
	assert.ErrorIs(t, ch.Validate(), weave_errors.ErrBadChange)

	ch = sampleChange()
	ch.Ops[0].Container = containers.ID{}
	assert.ErrorIs(t, ch.Validate(), weave_errors.ErrBadChange)
}
