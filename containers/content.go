package containers

import (
	"github.com/drpcorg/weave/protocol"
	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/weave_errors"
	"github.com/pkg/errors"
)

// Op is an operation as a container sees it: the payload plus the
// stamps needed to order it against concurrent ops.
type Op struct {
	ID      rdx.ID
	Lamport uint64
	Content Content
}

// Content is the type-specific op payload. The variants are
// MapSet, TextInsert and TextDelete.
type Content interface {
	Lit() byte
	appendBody(into []byte) []byte
}

const (
	MapSetLit     = byte('M')
	TextInsertLit = byte('N')
	TextDeleteLit = byte('X')
)

// MapSet writes a key; Deleted makes it a tombstone.
type MapSet struct {
	Key     string
	Value   Value
	Deleted bool
}

func (MapSet) Lit() byte { return MapSetLit }

// Atom addresses a single rune of text: rune Off of the insert op ID.
// The zero Atom stands for the start of the document.
type Atom struct {
	ID  rdx.ID
	Off uint32
}

func (a Atom) IsStart() bool {
	return a == Atom{}
}

// TextInsert puts Text right after the Origin atom.
type TextInsert struct {
	Origin Atom
	Text   string
}

func (TextInsert) Lit() byte { return TextInsertLit }

// Span is a run of atoms of one insert op: offsets [Off, Off+Len).
type Span struct {
	ID  rdx.ID
	Off uint32
	Len uint32
}

// TextDelete tombstones the atoms in Spans.
type TextDelete struct {
	Spans []Span
}

func (TextDelete) Lit() byte { return TextDeleteLit }

// AppendContent writes the content as one TLV record.
func AppendContent(into []byte, c Content) []byte {
	bm, res := protocol.OpenHeader(into, c.Lit())
	res = c.appendBody(res)
	protocol.CloseHeader(res, bm)
	return res
}

func (s MapSet) appendBody(into []byte) []byte {
	into = protocol.Append(into, 'K', []byte(s.Key))
	if s.Deleted {
		return protocol.Append(into, 'D')
	}
	return AppendValue(into, s.Value)
}

func appendAtom(into []byte, lit byte, a Atom) []byte {
	return protocol.Append(into, lit,
		protocol.Record('I', a.ID.ZipBytes()),
		protocol.Record('O', rdx.ZipUint64(uint64(a.Off))),
	)
}

func (ins TextInsert) appendBody(into []byte) []byte {
	into = appendAtom(into, 'A', ins.Origin)
	return protocol.Append(into, 'S', []byte(ins.Text))
}

func (del TextDelete) appendBody(into []byte) []byte {
	for _, span := range del.Spans {
		into = protocol.Append(into, 'P',
			protocol.Record('I', span.ID.ZipBytes()),
			protocol.Record('O', rdx.ZipUint64(uint64(span.Off))),
			protocol.Record('L', rdx.ZipUint64(uint64(span.Len))),
		)
	}
	return into
}

// ParseContent reads a record produced by AppendContent.
func ParseContent(lit byte, body []byte) (Content, error) {
	switch lit {
	case MapSetLit:
		return parseMapSet(body)
	case TextInsertLit:
		return parseTextInsert(body)
	case TextDeleteLit:
		return parseTextDelete(body)
	}
	return nil, errors.Wrapf(weave_errors.ErrBadRecord, "unknown op content %c", lit)
}

func parseMapSet(body []byte) (set MapSet, err error) {
	key, rest, err := protocol.TakeWary('K', body)
	if err != nil {
		return set, errors.Wrap(weave_errors.ErrBadRecord, "map key")
	}
	set.Key = string(key)
	lit, vbody, rest, err := protocol.TakeAnyWary(rest)
	if err != nil || len(rest) != 0 {
		return set, errors.Wrap(weave_errors.ErrBadRecord, "map value")
	}
	if lit == 'D' {
		set.Deleted = true
		return set, nil
	}
	set.Value, err = parseValue(lit, vbody)
	return
}

func takeUint(lit byte, data []byte) (uint64, []byte, error) {
	body, rest, err := protocol.TakeWary(lit, data)
	if err != nil || len(body) > 8 {
		return 0, nil, errors.Wrapf(weave_errors.ErrBadRecord, "%c field", lit)
	}
	return rdx.UnzipUint64(body), rest, nil
}

func takeID(data []byte) (rdx.ID, []byte, error) {
	body, rest, err := protocol.TakeWary('I', data)
	if err != nil {
		return rdx.BadId, nil, errors.Wrap(weave_errors.ErrBadRecord, "id field")
	}
	id := rdx.IDFromZipBytes(body)
	if id == rdx.BadId {
		return id, nil, errors.Wrap(weave_errors.ErrBadRecord, "id field")
	}
	return id, rest, nil
}

func parseAtom(body []byte) (a Atom, err error) {
	var off uint64
	a.ID, body, err = takeID(body)
	if err == nil {
		off, body, err = takeUint('O', body)
	}
	if err == nil && (len(body) != 0 || off > 0xffffffff) {
		err = errors.Wrap(weave_errors.ErrBadRecord, "atom")
	}
	a.Off = uint32(off)
	return
}

func parseTextInsert(body []byte) (ins TextInsert, err error) {
	abody, rest, err := protocol.TakeWary('A', body)
	if err != nil {
		return ins, errors.Wrap(weave_errors.ErrBadRecord, "insert origin")
	}
	if ins.Origin, err = parseAtom(abody); err != nil {
		return
	}
	text, rest, err := protocol.TakeWary('S', rest)
	if err != nil || len(rest) != 0 {
		return ins, errors.Wrap(weave_errors.ErrBadRecord, "insert text")
	}
	ins.Text = string(text)
	return ins, nil
}

func parseTextDelete(body []byte) (del TextDelete, err error) {
	rest := body
	for len(rest) > 0 {
		var pbody []byte
		pbody, rest, err = protocol.TakeWary('P', rest)
		if err != nil {
			return del, errors.Wrap(weave_errors.ErrBadRecord, "delete span")
		}
		var span Span
		var off, length uint64
		span.ID, pbody, err = takeID(pbody)
		if err == nil {
			off, pbody, err = takeUint('O', pbody)
		}
		if err == nil {
			length, pbody, err = takeUint('L', pbody)
		}
		if err != nil {
			return del, err
		}
		if len(pbody) != 0 || off > 0xffffffff || length > 0xffffffff {
			return del, errors.Wrap(weave_errors.ErrBadRecord, "delete span")
		}
		span.Off, span.Len = uint32(off), uint32(length)
		del.Spans = append(del.Spans, span)
	}
	return del, nil
}

// AppendValue writes the value as a record of its kind.
func AppendValue(into []byte, v Value) []byte {
	switch v.Kind {
	case Integer:
		return protocol.Append(into, 'I', rdx.ZipInt64(v.Int))
	case Float:
		return protocol.Append(into, 'F', rdx.ZipFloat64(v.Float))
	case String:
		return protocol.Append(into, 'S', []byte(v.Str))
	case Term:
		return protocol.Append(into, 'T', []byte(v.Str))
	case Reference:
		return protocol.Append(into, 'R', AppendID(nil, v.Ref))
	}
	return into
}

func parseValue(lit byte, body []byte) (v Value, err error) {
	v.Kind = lit
	switch lit {
	case Integer:
		v.Int = rdx.UnzipInt64(body)
	case Float:
		v.Float = rdx.UnzipFloat64(body)
	case String, Term:
		v.Str = string(body)
	case Reference:
		v.Ref, err = ParseIDTLV(body)
	}
	if err == nil && (len(body) > 8 && (lit == Integer || lit == Float)) {
		err = weave_errors.ErrBadRecord
	}
	if err == nil && !v.Valid() {
		err = errors.Wrapf(weave_errors.ErrBadRecord, "bad %c value", lit)
	}
	return
}

// AppendID writes a container ID: the type byte, then the root name
// as an S record or the origin as an I record.
func AppendID(into []byte, id ID) []byte {
	into = append(into, byte(id.Type))
	if id.IsRoot() {
		return protocol.Append(into, 'S', []byte(id.Name))
	}
	return protocol.Append(into, 'I', id.Origin.ZipBytes())
}

func ParseIDTLV(body []byte) (id ID, err error) {
	if len(body) < 1 {
		return id, errors.Wrap(weave_errors.ErrBadRecord, "container id")
	}
	id.Type = Type(body[0])
	lit, rbody, rest, err := protocol.TakeAnyWary(body[1:])
	if err != nil || len(rest) != 0 {
		return id, errors.Wrap(weave_errors.ErrBadRecord, "container id")
	}
	switch lit {
	case 'S':
		id.Name = string(rbody)
	case 'I':
		id.Origin = rdx.IDFromZipBytes(rbody)
	}
	if !id.Valid() {
		return id, errors.Wrapf(weave_errors.ErrBadRecord, "container id %s", id)
	}
	return id, nil
}
