package containers

import (
	"math/rand"
	"testing"

	"github.com/drpcorg/weave/rdx"
	"github.com/stretchr/testify/assert"
)

func insOp(client rdx.ClientID, counter rdx.Counter, lamport uint64, origin Atom, text string) Op {
	return Op{
		ID:      rdx.NewID(client, counter),
		Lamport: lamport,
		Content: TextInsert{Origin: origin, Text: text},
	}
}

func TestText_LocalEditing(t *testing.T) {
	txt := NewText()
	var lamport uint64
	edit := func(pos int, s string) {
		ins, err := txt.InsertAt(pos, s)
		assert.Nil(t, err)
		assert.Nil(t, txt.Apply(Op{ID: rdx.NewID(1, rdx.Counter(lamport)), Lamport: lamport, Content: ins}))
		lamport++
	}
	edit(0, "world")
	edit(0, "hello ")
	edit(11, "!")
	edit(5, ",")
	assert.Equal(t, "hello, world!", txt.String())

	del, err := txt.DeleteAt(5, 7)
	assert.Nil(t, err)
	assert.Nil(t, txt.Apply(Op{ID: rdx.NewID(1, 4), Lamport: 4, Content: del}))
	lamport++
	assert.Equal(t, "hello!", txt.String())
	assert.Equal(t, 6, txt.Len())
	assert.Equal(t, 13, txt.Size())

	edit(5, " you")
	assert.Equal(t, "hello you!", txt.String())

	_, err = txt.InsertAt(11, "x")
	assert.Error(t, err)
	_, err = txt.DeleteAt(8, 3)
	assert.Error(t, err)
}

func TestText_DeleteSpans(t *testing.T) {
	txt := NewText()
	assert.Nil(t, txt.Apply(insOp(1, 0, 0, Atom{}, "abc")))
	assert.Nil(t, txt.Apply(insOp(2, 0, 1, Atom{rdx.NewID(1, 0), 2}, "de")))
	del, err := txt.DeleteAt(1, 3)
	assert.Nil(t, err)
	assert.Equal(t, []Span{
		{ID: rdx.NewID(1, 0), Off: 1, Len: 2},
		{ID: rdx.NewID(2, 0), Off: 0, Len: 1},
	}, del.Spans)
}

// Concurrent inserts at the same origin: the higher (lamport, client)
// goes first.
func TestText_ConcurrentSameOrigin(t *testing.T) {
	a := insOp(1, 0, 0, Atom{}, "a")
	b := insOp(1, 1, 1, Atom{rdx.NewID(1, 0), 0}, "b")
	c := insOp(2, 0, 0, Atom{}, "c")

	orders := [][]Op{{a, b, c}, {a, c, b}, {c, a, b}}
	for _, order := range orders {
		txt := NewText()
		for _, op := range order {
			assert.Nil(t, txt.Apply(op))
		}
		assert.Equal(t, "cab", txt.String())
	}
}

func TestText_CheckMissingOrigin(t *testing.T) {
	txt := NewText()
	op := insOp(1, 3, 3, Atom{rdx.NewID(1, 2), 0}, "z")
	assert.Error(t, txt.Check(op, NoInFlight))
	inFlight := func(id rdx.ID) (TextInsert, bool) {
		return TextInsert{Text: "xy"}, id == rdx.NewID(1, 2)
	}
	assert.Nil(t, txt.Check(op, inFlight))
	far := insOp(1, 3, 3, Atom{rdx.NewID(1, 2), 2}, "z")
	assert.Error(t, txt.Check(far, inFlight))
	assert.Error(t, txt.Apply(op))

	del := Op{ID: rdx.NewID(1, 4), Content: TextDelete{Spans: []Span{{ID: rdx.NewID(1, 2), Len: 1}}}}
	assert.Error(t, txt.Check(del, NoInFlight))
	assert.Error(t, txt.Check(Op{Content: TextInsert{}}, NoInFlight))
}

// Random concurrent edits by three writers merge to the same string in
// any causally valid order.
func TestText_ConvergenceRandom(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	type replica struct {
		txt     *Text
		client  rdx.ClientID
		counter rdx.Counter
		lamport uint64
	}
	reps := []*replica{{txt: NewText(), client: 1}, {txt: NewText(), client: 2}, {txt: NewText(), client: 3}}
	var all []Op
	for round := 0; round < 5; round++ {
		var fresh []Op
		for _, r := range reps {
			for i := 0; i < 6; i++ {
				var op Op
				if r.txt.Len() > 0 && rnd.Intn(3) == 0 {
					pos := rnd.Intn(r.txt.Len())
					del, err := r.txt.DeleteAt(pos, 1+rnd.Intn(r.txt.Len()-pos))
					assert.Nil(t, err)
					op = Op{ID: rdx.NewID(r.client, r.counter), Lamport: r.lamport, Content: del}
				} else {
					ins, err := r.txt.InsertAt(rnd.Intn(r.txt.Len()+1), string(rune('a'+rnd.Intn(26))))
					assert.Nil(t, err)
					op = Op{ID: rdx.NewID(r.client, r.counter), Lamport: r.lamport, Content: ins}
				}
				assert.Nil(t, r.txt.Apply(op))
				r.counter++
				r.lamport++
				fresh = append(fresh, op)
			}
		}
		// everybody gets everything: own ops are skipped as duplicates,
		// foreign ones are applied in per-writer order
		for _, r := range reps {
			for _, op := range fresh {
				if op.ID.Client == r.client {
					continue
				}
				assert.Nil(t, r.txt.Apply(op))
				if op.Lamport >= r.lamport {
					r.lamport = op.Lamport + 1
				}
			}
		}
		all = append(all, fresh...)
		assert.Equal(t, reps[0].txt.String(), reps[1].txt.String())
		assert.Equal(t, reps[0].txt.String(), reps[2].txt.String())
	}
	// a fresh replica replaying the whole history agrees too
	late := NewText()
	for _, op := range all {
		assert.Nil(t, late.Apply(op))
	}
	assert.Equal(t, reps[0].txt.String(), late.String())
}
