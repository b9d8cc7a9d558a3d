package containers

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/weave_errors"
	"github.com/pkg/errors"
)

type textAtom struct {
	key     Atom
	origin  Atom
	lamport uint64
	r       rune
	deleted bool
}

// outranks tells whether the atom goes closer to the common origin
// than a sibling with the given stamps.
func (a *textAtom) outranks(lamport uint64, key Atom) bool {
	if a.lamport != lamport {
		return a.lamport > lamport
	}
	if a.key.ID.Client != key.ID.Client {
		return a.key.ID.Client > key.ID.Client
	}
	if a.key.ID.Counter != key.ID.Counter {
		return a.key.ID.Counter > key.ID.Counter
	}
	return a.key.Off > key.Off
}

/*
Text is a replicated sequence of runes (RGA flavour).

Every rune is an atom that remembers its origin, the atom it was typed
after. The atom sequence is a depth-first walk of the origin tree where
the children of an atom go in descending (Lamport, Client) order, the
highest right next to their origin. Insertions are integrated by
skipping the higher ranked siblings together with everything that grew
out of them. Deleted atoms stay in place as tombstones, so later ops
can still address them.
*/
type Text struct {
	atoms   []textAtom
	visible int
}

func NewText() *Text {
	return &Text{}
}

func (t *Text) find(a Atom) int {
	for i := range t.atoms {
		if t.atoms[i].key == a {
			return i
		}
	}
	return -1
}

func (t *Text) Apply(op Op) error {
	switch c := op.Content.(type) {
	case TextInsert:
		return t.integrate(op, c)
	case TextDelete:
		return t.tombstone(c)
	}
	return errors.Wrapf(weave_errors.ErrBadChange, "%c op on a text", op.Content.Lit())
}

func (t *Text) integrate(op Op, ins TextInsert) error {
	if ins.Text == "" {
		return errors.Wrap(weave_errors.ErrBadChange, "empty insert")
	}
	first := Atom{ID: op.ID}
	if t.find(first) >= 0 {
		return nil
	}
	pos := 0
	if !ins.Origin.IsStart() {
		o := t.find(ins.Origin)
		if o < 0 {
			return errors.Wrapf(weave_errors.ErrMissingDependency, "no origin atom %s+%d",
				ins.Origin.ID, ins.Origin.Off)
		}
		pos = o + 1
	}
	var subtree map[Atom]struct{}
	for ; pos < len(t.atoms); pos++ {
		e := &t.atoms[pos]
		if e.origin == ins.Origin {
			if !e.outranks(op.Lamport, first) {
				break
			}
			subtree = map[Atom]struct{}{e.key: {}}
			continue
		}
		if _, ok := subtree[e.origin]; !ok {
			break
		}
		subtree[e.key] = struct{}{}
	}
	fresh := make([]textAtom, 0, utf8.RuneCountInString(ins.Text))
	origin := ins.Origin
	for _, r := range ins.Text {
		key := Atom{ID: op.ID, Off: uint32(len(fresh))}
		fresh = append(fresh, textAtom{key: key, origin: origin, lamport: op.Lamport, r: r})
		origin = key
	}
	t.atoms = slices.Insert(t.atoms, pos, fresh...)
	t.visible += len(fresh)
	return nil
}

func (t *Text) tombstone(del TextDelete) error {
	for _, span := range del.Spans {
		for off := span.Off; off < span.Off+span.Len; off++ {
			i := t.find(Atom{ID: span.ID, Off: off})
			if i < 0 {
				return errors.Wrapf(weave_errors.ErrMissingDependency, "no atom %s+%d", span.ID, off)
			}
			if !t.atoms[i].deleted {
				t.atoms[i].deleted = true
				t.visible--
			}
		}
	}
	return nil
}

// InFlight resolves inserts of the change being checked that precede
// the op at hand; they are not applied yet.
type InFlight func(id rdx.ID) (TextInsert, bool)

func NoInFlight(rdx.ID) (TextInsert, bool) {
	return TextInsert{}, false
}

func (t *Text) known(a Atom, inFlight InFlight) bool {
	if t.find(a) >= 0 {
		return true
	}
	ins, ok := inFlight(a.ID)
	return ok && int(a.Off) < utf8.RuneCountInString(ins.Text)
}

// Check verifies the op can be applied without touching the state.
func (t *Text) Check(op Op, inFlight InFlight) error {
	switch c := op.Content.(type) {
	case TextInsert:
		if c.Text == "" || !utf8.ValidString(c.Text) {
			return errors.Wrap(weave_errors.ErrBadChange, "bad insert text")
		}
		if !c.Origin.IsStart() && !t.known(c.Origin, inFlight) {
			return errors.Wrapf(weave_errors.ErrMissingDependency, "no origin atom %s+%d",
				c.Origin.ID, c.Origin.Off)
		}
		return nil
	case TextDelete:
		for _, span := range c.Spans {
			if span.Len == 0 {
				return errors.Wrap(weave_errors.ErrBadChange, "empty delete span")
			}
			for off := span.Off; off < span.Off+span.Len; off++ {
				if !t.known(Atom{ID: span.ID, Off: off}, inFlight) {
					return errors.Wrapf(weave_errors.ErrMissingDependency, "no atom %s+%d", span.ID, off)
				}
			}
		}
		return nil
	}
	return errors.Wrapf(weave_errors.ErrBadChange, "%c op on a text", op.Content.Lit())
}

func (t *Text) visibleIndex(pos int) int {
	for i := range t.atoms {
		if t.atoms[i].deleted {
			continue
		}
		if pos == 0 {
			return i
		}
		pos--
	}
	return -1
}

// InsertAt makes the payload that puts s at the visible position pos.
func (t *Text) InsertAt(pos int, s string) (ins TextInsert, err error) {
	if pos < 0 || pos > t.visible {
		return ins, errors.Wrapf(weave_errors.ErrOutOfRange, "insert at %d of %d", pos, t.visible)
	}
	if s == "" || !utf8.ValidString(s) {
		return ins, errors.Wrap(weave_errors.ErrBadChange, "bad insert text")
	}
	ins.Text = s
	if pos > 0 {
		ins.Origin = t.atoms[t.visibleIndex(pos-1)].key
	}
	return ins, nil
}

// DeleteAt makes the payload that removes n visible runes from pos.
func (t *Text) DeleteAt(pos, n int) (del TextDelete, err error) {
	if pos < 0 || n < 0 || pos+n > t.visible {
		return del, errors.Wrapf(weave_errors.ErrOutOfRange, "delete %d at %d of %d", n, pos, t.visible)
	}
	seen := 0
	for i := 0; i < len(t.atoms) && seen < pos+n; i++ {
		a := &t.atoms[i]
		if a.deleted {
			continue
		}
		if seen >= pos {
			l := len(del.Spans)
			if l > 0 && del.Spans[l-1].ID == a.key.ID && del.Spans[l-1].Off+del.Spans[l-1].Len == a.key.Off {
				del.Spans[l-1].Len++
			} else {
				del.Spans = append(del.Spans, Span{ID: a.key.ID, Off: a.key.Off, Len: 1})
			}
		}
		seen++
	}
	return del, nil
}

// Len is the number of visible runes.
func (t *Text) Len() int {
	return t.visible
}

// Size counts tombstones too.
func (t *Text) Size() int {
	return len(t.atoms)
}

func (t *Text) String() string {
	var b strings.Builder
	b.Grow(t.visible)
	for i := range t.atoms {
		if !t.atoms[i].deleted {
			b.WriteRune(t.atoms[i].r)
		}
	}
	return b.String()
}
