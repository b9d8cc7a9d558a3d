package rdx

import (
	"slices"

	"github.com/drpcorg/weave/protocol"
	"github.com/drpcorg/weave/weave_errors"
	"github.com/pkg/errors"
)

// VV is a version vector: for every known client, the end of the
// contiguous prefix of its ops seen so far (the next counter expected).
// A client that is absent has no ops seen.
type VV map[ClientID]Counter

func (vv VV) Get(client ClientID) Counter {
	return vv[client]
}

// SetEnd moves the client's end forward. Moving it back is a causality
// violation and leaves the VV untouched.
func (vv VV) SetEnd(client ClientID, end Counter) error {
	if pre := vv[client]; end < pre {
		return errors.Wrapf(weave_errors.ErrCausalityViolation,
			"client %x: end %d is behind %d", uint64(client), end, pre)
	}
	if end > 0 {
		vv[client] = end
	}
	return nil
}

// Put advances the entry; returns whether it made any difference.
func (vv VV) Put(client ClientID, end Counter) bool {
	if pre, ok := vv[client]; ok && pre >= end {
		return false
	}
	if end == 0 {
		return false
	}
	vv[client] = end
	return true
}

// Merge takes the pointwise maximum.
func (vv VV) Merge(other VV) {
	for client, end := range other {
		vv.Put(client, end)
	}
}

// Includes tells whether the op is within the frontier.
func (vv VV) Includes(id ID) bool {
	return id.Counter < vv[id.Client]
}

// Covers is true if vv dominates b (pointwise >=).
func (vv VV) Covers(b VV) bool {
	for client, end := range b {
		if end > vv[client] {
			return false
		}
	}
	return true
}

type Ordering int

const (
	Equal Ordering = iota
	Less
	Greater
	Concurrent
)

func (o Ordering) String() string {
	return []string{"Equal", "Less", "Greater", "Concurrent"}[o]
}

func (vv VV) Compare(b VV) Ordering {
	ab, ba := vv.Covers(b), b.Covers(vv)
	switch {
	case ab && ba:
		return Equal
	case ab:
		return Greater
	case ba:
		return Less
	default:
		return Concurrent
	}
}

func (vv VV) Clone() VV {
	c := make(VV, len(vv))
	for client, end := range vv {
		c[client] = end
	}
	return c
}

// Clients lists known clients in ascending order.
func (vv VV) Clients() []ClientID {
	clients := make([]ClientID, 0, len(vv))
	for client := range vv {
		clients = append(clients, client)
	}
	slices.Sort(clients)
	return clients
}

// IDs returns the ends as IDs, sorted by client.
func (vv VV) IDs() (ids []ID) {
	for _, client := range vv.Clients() {
		ids = append(ids, ID{client, vv[client]})
	}
	return
}

// LastIDs returns the IDs of the last known op of every client except
// the one given; these are the dependencies of a change authored now.
func (vv VV) LastIDs(except ClientID) (ids []ID) {
	for _, client := range vv.Clients() {
		if client == except || vv[client] == 0 {
			continue
		}
		ids = append(ids, ID{client, vv[client] - 1})
	}
	return
}

// InterestOver returns the entries of b for the clients where vv is ahead.
func (vv VV) InterestOver(b VV) VV {
	ahead := make(VV)
	for client, end := range vv {
		if end > b[client] {
			ahead[client] = b[client]
		}
	}
	return ahead
}

func (vv VV) String() string {
	ids := vv.IDs()
	ret := make([]byte, 0, len(ids)*16)
	for i, id := range ids {
		if i > 0 {
			ret = append(ret, ',')
		}
		ret = append(ret, id.String()...)
	}
	return string(ret)
}

func VVFromString(vvs string) VV {
	vv := make(VV)
	rest := []byte(vvs)
	for len(rest) > 0 {
		var id ID
		id, rest = readIDFromString(rest)
		if id == BadId {
			break
		}
		vv.Put(id.Client, id.Counter)
		if len(rest) > 0 && rest[0] == ',' {
			rest = rest[1:]
		}
	}
	return vv
}

// TLV is a sequence of V records, one per client, sorted.
func (vv VV) TLV() (ret []byte) {
	for _, id := range vv.IDs() {
		ret = protocol.Append(ret, 'V', id.ZipBytes())
	}
	return
}

// PutTLV merges V records into the vector.
func (vv VV) PutTLV(rec []byte) (err error) {
	rest := rec
	for len(rest) > 0 {
		var val []byte
		val, rest, err = protocol.TakeWary('V', rest)
		if err != nil {
			return errors.Wrap(weave_errors.ErrBadRecord, err.Error())
		}
		id := IDFromZipBytes(val)
		if id == BadId {
			return weave_errors.ErrBadRecord
		}
		vv.Put(id.Client, id.Counter)
	}
	return nil
}

func VVFromTLV(tlv []byte) (VV, error) {
	vv := make(VV)
	return vv, vv.PutTLV(tlv)
}
