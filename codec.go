package weave

import (
	"github.com/drpcorg/weave/containers"
	"github.com/drpcorg/weave/protocol"
	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/weave_errors"
	"github.com/pkg/errors"
)

// Change record layout:
//
//	C {
//	    I client-counter
//	    L lamport
//	    T timestamp
//	    D { V dep ... }
//	    O { container id, content } ...
//	}
//
// Op counters are implied by the position.
const ChangeLit = 'C'

func AppendChange(into []byte, ch *Change) []byte {
	bm, res := protocol.OpenHeader(into, ChangeLit)
	res = protocol.Append(res, 'I', ch.ID().ZipBytes())
	res = protocol.Append(res, 'L', rdx.ZipUint64(ch.Lamport))
	res = protocol.Append(res, 'T', rdx.ZipInt64(ch.Timestamp))
	deps := make([][]byte, 0, len(ch.Deps))
	for _, dep := range ch.Deps {
		deps = append(deps, protocol.Record('V', dep.ZipBytes()))
	}
	res = protocol.Append(res, 'D', protocol.Concat(deps...))
	for _, op := range ch.Ops {
		obm, ores := protocol.OpenHeader(res, 'O')
		ores = protocol.Append(ores, 'R', containers.AppendID(nil, op.Container))
		ores = containers.AppendContent(ores, op.Content)
		protocol.CloseHeader(ores, obm)
		res = ores
	}
	protocol.CloseHeader(res, bm)
	return res
}

func EncodeChanges(changes []Change) (data []byte) {
	for i := range changes {
		data = AppendChange(data, &changes[i])
	}
	return
}

// DecodeChanges reads a sequence of C records.
func DecodeChanges(data []byte) (changes []Change, err error) {
	for len(data) > 0 {
		var body []byte
		body, data, err = protocol.TakeWary(ChangeLit, data)
		if err != nil {
			return nil, errors.Wrap(weave_errors.ErrBadRecord, "change record")
		}
		var ch Change
		if ch, err = DecodeChange(body); err != nil {
			return nil, err
		}
		changes = append(changes, ch)
	}
	return
}

// DecodeChange reads the body of one C record.
func DecodeChange(body []byte) (ch Change, err error) {
	ibody, rest, err := protocol.TakeWary('I', body)
	if err != nil {
		return ch, errors.Wrap(weave_errors.ErrBadRecord, "change id")
	}
	id := rdx.IDFromZipBytes(ibody)
	if id == rdx.BadId {
		return ch, errors.Wrap(weave_errors.ErrBadRecord, "change id")
	}
	ch.Client, ch.Counter = id.Client, id.Counter
	lbody, rest, err := protocol.TakeWary('L', rest)
	if err != nil || len(lbody) > 8 {
		return ch, errors.Wrapf(weave_errors.ErrBadRecord, "change %s lamport", id)
	}
	ch.Lamport = rdx.UnzipUint64(lbody)
	tbody, rest, err := protocol.TakeWary('T', rest)
	if err != nil || len(tbody) > 8 {
		return ch, errors.Wrapf(weave_errors.ErrBadRecord, "change %s timestamp", id)
	}
	ch.Timestamp = rdx.UnzipInt64(tbody)
	dbody, rest, err := protocol.TakeWary('D', rest)
	if err != nil {
		return ch, errors.Wrapf(weave_errors.ErrBadRecord, "change %s deps", id)
	}
	for len(dbody) > 0 {
		var vbody []byte
		vbody, dbody, err = protocol.TakeWary('V', dbody)
		if err != nil {
			return ch, errors.Wrapf(weave_errors.ErrBadRecord, "change %s deps", id)
		}
		dep := rdx.IDFromZipBytes(vbody)
		if dep == rdx.BadId {
			return ch, errors.Wrapf(weave_errors.ErrBadRecord, "change %s deps", id)
		}
		ch.Deps = append(ch.Deps, dep)
	}
	for len(rest) > 0 {
		var obody []byte
		obody, rest, err = protocol.TakeWary('O', rest)
		if err != nil {
			return ch, errors.Wrapf(weave_errors.ErrBadRecord, "change %s op", id)
		}
		op := RemoteOp{Counter: ch.Counter + rdx.Counter(len(ch.Ops))}
		if op.Container, op.Content, err = decodeOp(obody); err != nil {
			return ch, errors.Wrapf(err, "change %s op %d", id, len(ch.Ops))
		}
		ch.Ops = append(ch.Ops, op)
	}
	return ch, nil
}

func decodeOp(body []byte) (cid containers.ID, content containers.Content, err error) {
	rbody, rest, err := protocol.TakeWary('R', body)
	if err != nil {
		return cid, nil, errors.Wrap(weave_errors.ErrBadRecord, "op container")
	}
	if cid, err = containers.ParseIDTLV(rbody); err != nil {
		return
	}
	lit, cbody, rest, err := protocol.TakeAnyWary(rest)
	if err != nil || len(rest) != 0 {
		return cid, nil, errors.Wrap(weave_errors.ErrBadRecord, "op content")
	}
	content, err = containers.ParseContent(lit, cbody)
	return
}
