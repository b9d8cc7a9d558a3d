package rdx

import (
	"strconv"
)

// ClientID identifies a replica. It is fixed for the lifetime of a store
// and must not collide with any peer the store ever syncs with.
type ClientID uint64

// Counter numbers the ops of one client: 0, 1, 2... with no gaps.
type Counter uint64

/*
ID is an op identifier: the client that authored the op and the op's
counter in that client's history. IDs are globally unique.

The text form is `client-counter`, both in hex, e.g. `1e-1ab`.
*/
type ID struct {
	Client  ClientID
	Counter Counter
}

var ID0 = ID{}

var BadId = ID{^ClientID(0), ^Counter(0)}

func NewID(client ClientID, counter Counter) ID {
	return ID{Client: client, Counter: counter}
}

// Compare orders IDs by counter, then by client. This is the order
// last-writer-wins registers use to pick the winner.
func (id ID) Compare(other ID) int {
	switch {
	case id.Counter < other.Counter:
		return -1
	case id.Counter > other.Counter:
		return 1
	case id.Client < other.Client:
		return -1
	case id.Client > other.Client:
		return 1
	}
	return 0
}

func (id ID) Less(other ID) bool {
	return id.Compare(other) < 0
}

// Inc returns the ID of the n-th next op of the same client.
func (id ID) Inc(n Counter) ID {
	return ID{id.Client, id.Counter + n}
}

func (id ID) IsZero() bool {
	return id == ID0
}

func (id ID) ZipBytes() []byte {
	return ZipUint64Pair(uint64(id.Client), uint64(id.Counter))
}

func IDFromZipBytes(zip []byte) ID {
	if !ValidZipPair(zip) {
		return BadId
	}
	client, counter := UnzipUint64Pair(zip)
	return ID{ClientID(client), Counter(counter)}
}

func (id ID) String() string {
	var buf [40]byte
	b := buf[:0]
	b = strconv.AppendUint(b, uint64(id.Client), 16)
	b = append(b, '-')
	b = strconv.AppendUint(b, uint64(id.Counter), 16)
	return string(b)
}

func IDFromString(idstr string) (parsed ID) {
	parsed, _ = readIDFromString([]byte(idstr))
	return
}

func readIDFromString(idstr []byte) (ID, []byte) {
	var parts [2]uint64
	i, p := 0, 0
	for i < len(idstr) && p < 2 {
		c := idstr[i]
		if c >= '0' && c <= '9' {
			parts[p] = (parts[p] << 4) | uint64(c-'0')
		} else if c >= 'A' && c <= 'F' {
			parts[p] = (parts[p] << 4) | uint64(10+c-'A')
		} else if c >= 'a' && c <= 'f' {
			parts[p] = (parts[p] << 4) | uint64(10+c-'a')
		} else if c == '-' {
			p++
		} else {
			break
		}
		i++
	}
	rest := idstr[i:]
	if p != 1 || i > 2*16+1 {
		return BadId, rest
	}
	return ID{ClientID(parts[0]), Counter(parts[1])}, rest
}
