// Package persist keeps sealed changes of a replica in pebble, so a
// replica can be reopened with its history.
package persist

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/drpcorg/weave"
	"github.com/drpcorg/weave/protocol"
	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/weave_errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// change key: C, client, start counter, all big-endian
const keyLen = 1 + 8 + 8

const changeKeyLit = 'C'

func ChangeKey(client rdx.ClientID, counter rdx.Counter) []byte {
	var ret = [keyLen]byte{changeKeyLit}
	key := binary.BigEndian.AppendUint64(ret[:1], uint64(client))
	return binary.BigEndian.AppendUint64(key, uint64(counter))
}

func ChangeKeyID(key []byte) rdx.ID {
	if len(key) != keyLen || key[0] != changeKeyLit {
		return rdx.BadId
	}
	return rdx.NewID(
		rdx.ClientID(binary.BigEndian.Uint64(key[1:9])),
		rdx.Counter(binary.BigEndian.Uint64(key[9:])),
	)
}

var WriteOptions = pebble.WriteOptions{Sync: false}

type Options struct {
	// Sync makes every Save wait for the disk.
	Sync      bool
	CacheSize int
}

func (o *Options) SetDefaults() {
	if o.CacheSize <= 0 {
		o.CacheSize = 1 << 12
	}
}

// Archive implements weave.Archive over a pebble database.
type Archive struct {
	db    *pebble.DB
	dir   string
	write *pebble.WriteOptions
	cache *lru.Cache[rdx.ID, weave.Change]
}

// Open opens the archive in dir, creating it if needed.
func Open(dir string, opts Options) (*Archive, error) {
	opts.SetDefaults()
	cache, err := lru.New[rdx.ID, weave.Change](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open archive %s", dir)
	}
	write := &WriteOptions
	if opts.Sync {
		write = pebble.Sync
	}
	return &Archive{db: db, dir: dir, write: write, cache: cache}, nil
}

func (a *Archive) Dir() string {
	return a.dir
}

func (a *Archive) DB() *pebble.DB {
	return a.db
}

func (a *Archive) Save(ch *weave.Change) error {
	if a.db == nil {
		return weave_errors.ErrClosed
	}
	err := a.db.Set(ChangeKey(ch.Client, ch.Counter), weave.AppendChange(nil, ch), a.write)
	if err == nil {
		a.cache.Add(ch.ID(), *ch)
	}
	return err
}

// Load reads every change, by client then counter.
func (a *Archive) Load() (changes []weave.Change, err error) {
	if a.db == nil {
		return nil, weave_errors.ErrClosed
	}
	it, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{changeKeyLit},
		UpperBound: []byte{changeKeyLit + 1},
	})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for it.SeekGE([]byte{changeKeyLit}); it.Valid(); it.Next() {
		ch, err := decodeValue(it.Key(), it.Value())
		if err != nil {
			return nil, err
		}
		changes = append(changes, ch)
	}
	return changes, it.Error()
}

// Get returns the change that starts at the given counter.
func (a *Archive) Get(client rdx.ClientID, counter rdx.Counter) (ch weave.Change, ok bool, err error) {
	if a.db == nil {
		return ch, false, weave_errors.ErrClosed
	}
	id := rdx.NewID(client, counter)
	if ch, ok = a.cache.Get(id); ok {
		return
	}
	key := ChangeKey(client, counter)
	val, clo, err := a.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return ch, false, nil
	}
	if err != nil {
		return ch, false, err
	}
	defer clo.Close()
	if ch, err = decodeValue(key, val); err != nil {
		return ch, false, err
	}
	a.cache.Add(id, ch)
	return ch, true, nil
}

func decodeValue(key, val []byte) (ch weave.Change, err error) {
	id := ChangeKeyID(key)
	body, rest, err := protocol.TakeWary(weave.ChangeLit, val)
	if err != nil || len(rest) != 0 {
		return ch, errors.Wrapf(weave_errors.ErrBadRecord, "stored change %s", id)
	}
	if ch, err = weave.DecodeChange(body); err != nil {
		return
	}
	if ch.ID() != id {
		return ch, errors.Wrapf(weave_errors.ErrBadRecord, "change %s stored as %s", ch.ID(), id)
	}
	return ch, nil
}

func (a *Archive) Close() error {
	if a.db == nil {
		return weave_errors.ErrClosed
	}
	err := a.db.Close()
	a.db = nil
	a.cache.Purge()
	return err
}
