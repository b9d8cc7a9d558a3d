package weave

import (
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/drpcorg/weave/containers"
	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/utils"
	"github.com/drpcorg/weave/weave_errors"
	"github.com/pkg/errors"
)

// Archive keeps sealed changes somewhere durable.
type Archive interface {
	Save(ch *Change) error
	Load() ([]Change, error)
}

type ImportReport struct {
	Applied    int
	Duplicates int
	// Pending is the number of changes left waiting for dependencies.
	Pending int
}

// LocalOp is an op authored by this replica, before it gets stamped.
type LocalOp struct {
	Container containers.ID
	Content   containers.Content
}

// LogStore keeps the per-client op log, the version vector and the
// containers built from the log. One RWMutex guards all of it;
// containers additionally lock themselves.
type LogStore struct {
	client rdx.ClientID
	opts   Options
	log    utils.Logger

	lock    sync.RWMutex
	vv      rdx.VV
	changes map[rdx.ClientID][]*Change
	// local ops not sealed into a change yet
	open *Change
	// the next Lamport stamp to hand out
	lamport uint64

	registry *containers.Registry
	archive  Archive
}

func NewLogStore(client rdx.ClientID, opts Options) *LogStore {
	opts.SetDefaults()
	return &LogStore{
		client:   client,
		opts:     opts,
		log:      opts.Logger,
		vv:       make(rdx.VV),
		changes:  make(map[rdx.ClientID][]*Change),
		registry: containers.NewRegistry(),
	}
}

func (ls *LogStore) Client() rdx.ClientID {
	return ls.client
}

// SetArchive attaches the archive; changes sealed from now on are saved.
func (ls *LogStore) SetArchive(archive Archive) {
	ls.lock.Lock()
	defer ls.lock.Unlock()
	ls.archive = archive
}

func (ls *LogStore) Registry() *containers.Registry {
	return ls.registry
}

func (ls *LogStore) GetOrCreateContainer(id containers.ID) (*containers.Instance, error) {
	ls.lock.RLock()
	inst, err := ls.registry.Get(id)
	ls.lock.RUnlock()
	if inst != nil || err != nil {
		return inst, err
	}
	ls.lock.Lock()
	defer ls.lock.Unlock()
	inst, created, err := ls.registry.GetOrCreate(id)
	if created {
		ls.log.Debug("container created", "id", id.String())
	}
	return inst, err
}

func (ls *LogStore) GetContainer(id containers.ID) (*containers.Instance, bool) {
	ls.lock.RLock()
	defer ls.lock.RUnlock()
	inst, err := ls.registry.Get(id)
	return inst, err == nil && inst != nil
}

func (ls *LogStore) VV() rdx.VV {
	ls.lock.RLock()
	defer ls.lock.RUnlock()
	return ls.vv.Clone()
}

// AppendLocal stamps the ops with the next counters of this client,
// applies them and adds them to the open change.
func (ls *LogStore) AppendLocal(ops ...LocalOp) error {
	ls.lock.Lock()
	defer ls.lock.Unlock()
	return ls.appendLocal(ops)
}

// Edit builds local ops against the current state of a container and
// appends them, all under the store lock. next is the ID the first op
// will get.
func (ls *LogStore) Edit(id containers.ID, build func(inst *containers.Instance, next rdx.ID) ([]containers.Content, error)) error {
	ls.lock.Lock()
	defer ls.lock.Unlock()
	inst, _, err := ls.registry.GetOrCreate(id)
	if err != nil {
		return err
	}
	contents, err := build(inst, rdx.NewID(ls.client, ls.vv.Get(ls.client)))
	if err != nil || len(contents) == 0 {
		return err
	}
	ops := make([]LocalOp, 0, len(contents))
	for _, content := range contents {
		ops = append(ops, LocalOp{Container: id, Content: content})
	}
	return ls.appendLocal(ops)
}

func (ls *LogStore) appendLocal(ops []LocalOp) error {
	if len(ops) == 0 {
		return nil
	}
	ch := Change{
		Client:  ls.client,
		Counter: ls.vv.Get(ls.client),
		Lamport: ls.lamport,
		Ops:     make([]RemoteOp, 0, len(ops)),
	}
	for i, op := range ops {
		ch.Ops = append(ch.Ops, RemoteOp{
			Container: op.Container,
			Counter:   ch.Counter + rdx.Counter(i),
			Content:   op.Content,
		})
	}
	if err := ch.Validate(); err != nil {
		return err
	}
	if err := ls.check(&ch); err != nil {
		return err
	}
	if err := ls.apply(&ch); err != nil {
		return err
	}
	LocalOps.Add(float64(len(ch.Ops)))
	// the open change never grows past MaxChangeLen
	for i, op := range ch.Ops {
		if ls.open == nil {
			_, lamport := ch.OpID(i)
			ls.open = &Change{
				Client:    ls.client,
				Counter:   op.Counter,
				Lamport:   lamport,
				Deps:      ls.vv.LastIDs(ls.client),
				Timestamp: time.Now().UnixMilli(),
			}
		}
		ls.open.Ops = append(ls.open.Ops, op)
		if ls.open.Len() >= ls.opts.MaxChangeLen {
			_ = ls.seal()
		}
	}
	return nil
}

// Commit seals the open change, if any. The error is the archive's;
// the change stays sealed in memory either way.
func (ls *LogStore) Commit() error {
	ls.lock.Lock()
	defer ls.lock.Unlock()
	return ls.seal()
}

func (ls *LogStore) seal() error {
	if ls.open == nil {
		return nil
	}
	ch := ls.open
	ls.open = nil
	ls.changes[ch.Client] = append(ls.changes[ch.Client], ch)
	ls.log.Debug("change sealed", "id", ch.ID().String(), "ops", ch.Len())
	return ls.save(ch)
}

// save hands a sealed change to the archive. Failures are logged and
// counted in ArchiveFailures.
func (ls *LogStore) save(ch *Change) error {
	if ls.archive == nil {
		return nil
	}
	if err := ls.archive.Save(ch); err != nil {
		ArchiveFailures.Inc()
		ls.log.Error("archive save failed", "id", ch.ID().String(), "err", err)
		return errors.WithMessagef(err, "archive %s", ch.ID())
	}
	return nil
}

type refOp struct {
	ref containers.Ref
	id  rdx.ID
}

// check tells whether every op of the change applies on the current
// state, taking earlier ops of the same change into account.
// Nothing is modified.
func (ls *LogStore) check(ch *Change) error {
	scratch := make(map[containers.Ref]*containers.Instance)
	types := make(map[containers.Ref]containers.Type)
	lookup := func(id containers.ID) (*containers.Instance, error) {
		if t, ok := types[id.Ref]; ok && t != id.Type {
			return nil, errors.Wrapf(weave_errors.ErrContainerTypeConflict,
				"%s used as %s and %s", id.Ref, t, id.Type)
		}
		types[id.Ref] = id.Type
		inst, err := ls.registry.Get(id)
		if inst != nil || err != nil {
			return inst, err
		}
		if inst = scratch[id.Ref]; inst == nil {
			if inst, err = containers.NewInstance(id); err == nil {
				scratch[id.Ref] = inst
			}
		}
		return inst, err
	}
	inserts := make(map[refOp]containers.TextInsert)
	for i, op := range ch.Ops {
		inst, err := lookup(op.Container)
		if err != nil {
			return err
		}
		if set, ok := op.Content.(containers.MapSet); ok && !set.Deleted && set.Value.IsRef() {
			if _, err = lookup(set.Value.Ref); err != nil {
				return err
			}
		}
		id, lamport := ch.OpID(i)
		ref := op.Container.Ref
		inFlight := func(atom rdx.ID) (containers.TextInsert, bool) {
			ins, ok := inserts[refOp{ref, atom}]
			return ins, ok
		}
		err = inst.Check(containers.Op{ID: id, Lamport: lamport, Content: op.Content}, inFlight)
		if err != nil {
			return errors.WithMessagef(err, "op %s on %s", id, op.Container)
		}
		if ins, ok := op.Content.(containers.TextInsert); ok {
			inserts[refOp{ref, id}] = ins
		}
	}
	return nil
}

// apply runs a checked change through the containers and advances
// the frontier.
func (ls *LogStore) apply(ch *Change) error {
	for i, op := range ch.Ops {
		inst, _, err := ls.registry.GetOrCreate(op.Container)
		if err != nil {
			return err
		}
		if set, ok := op.Content.(containers.MapSet); ok && !set.Deleted && set.Value.IsRef() {
			if _, _, err = ls.registry.GetOrCreate(set.Value.Ref); err != nil {
				return err
			}
		}
		id, lamport := ch.OpID(i)
		err = inst.Apply(containers.Op{ID: id, Lamport: lamport, Content: op.Content})
		if err != nil {
			return errors.WithMessagef(err, "op %s on %s", id, op.Container)
		}
	}
	if end := ch.Lamport + uint64(ch.Len()); end > ls.lamport {
		ls.lamport = end
	}
	return ls.vv.SetEnd(ch.Client, ch.End())
}

type changeKey struct {
	rdx.ID
	End rdx.Counter
}

func changeLess(a, b *Change) bool {
	if a.Lamport != b.Lamport {
		return a.Lamport < b.Lamport
	}
	if a.Client != b.Client {
		return a.Client < b.Client
	}
	return a.Counter < b.Counter
}

func (ls *LogStore) depsMet(ch *Change) bool {
	for _, dep := range ch.Deps {
		if !ls.vv.Includes(dep) {
			return false
		}
	}
	return true
}

// Import merges remote changes. Changes already known are skipped,
// partially known ones are trimmed, the rest is applied in causal
// order. What cannot be applied is reported as Pending along with
// ErrMissingDependency; the changes applied before that stay applied.
func (ls *LogStore) Import(changes []Change) (report ImportReport, err error) {
	for i := range changes {
		if err = changes[i].Validate(); err != nil {
			return
		}
	}
	ls.lock.Lock()
	defer ls.lock.Unlock()
	saveErr := ls.seal()

	pending := mapset.NewThreadUnsafeSet[changeKey]()
	byKey := make(map[changeKey]*Change, len(changes))
	for i := range changes {
		ch := &changes[i]
		if ch.End() <= ls.vv.Get(ch.Client) {
			report.Duplicates++
			continue
		}
		key := changeKey{ch.ID(), ch.End()}
		if !pending.Add(key) {
			report.Duplicates++
			continue
		}
		byKey[key] = ch
	}

	for pending.Cardinality() > 0 {
		queue := utils.NewHeap(changeLess)
		for _, key := range pending.ToSlice() {
			queue.Push(byKey[key])
		}
		progress := false
		for queue.Len() > 0 {
			ch := queue.Pop()
			key := changeKey{ch.ID(), ch.End()}
			end := ls.vv.Get(ch.Client)
			if ch.End() <= end {
				pending.Remove(key)
				report.Duplicates++
				progress = true
				continue
			}
			if ch.Counter > end || !ls.depsMet(ch) {
				continue
			}
			sliced := ch.Slice(end)
			if err = ls.check(&sliced); err != nil {
				if errors.Is(err, weave_errors.ErrMissingDependency) {
					err = nil
					continue
				}
				report.Pending = pending.Cardinality()
				ls.log.Warn("change rejected", "id", sliced.ID().String(), "err", err)
				return report, err
			}
			if err = ls.apply(&sliced); err != nil {
				report.Pending = pending.Cardinality()
				ls.log.Error("change apply failed", "id", sliced.ID().String(), "err", err)
				return report, err
			}
			ls.changes[sliced.Client] = append(ls.changes[sliced.Client], &sliced)
			if serr := ls.save(&sliced); serr != nil && saveErr == nil {
				saveErr = serr
			}
			pending.Remove(key)
			report.Applied++
			progress = true
		}
		if !progress {
			break
		}
	}

	AppliedChanges.Add(float64(report.Applied))
	DuplicateChanges.Add(float64(report.Duplicates))
	report.Pending = pending.Cardinality()
	PendingChanges.Set(float64(report.Pending))
	ls.log.Debug("import", "applied", report.Applied, "duplicates", report.Duplicates,
		"pending", report.Pending, "vv", ls.vv.String())
	if report.Pending > 0 {
		var missing []string
		pending.Each(func(key changeKey) bool {
			missing = append(missing, key.ID.String())
			return false
		})
		sort.Strings(missing)
		ls.log.Warn("changes wait for dependencies", "changes", missing)
		return report, errors.Wrapf(weave_errors.ErrMissingDependency,
			"%d changes wait, first %s", report.Pending, missing[0])
	}
	return report, saveErr
}

// Export lists what the holder of the remote frontier is missing:
// per client in ascending order, changes in counter order, the one
// straddling the remote end cut down to the unseen suffix.
// The open change is sealed first, so the batch covers the whole
// local frontier.
func (ls *LogStore) Export(remote rdx.VV) (changes []Change) {
	ls.lock.Lock()
	defer ls.lock.Unlock()
	_ = ls.seal()
	for _, client := range ls.vv.Clients() {
		from := remote.Get(client)
		if ls.vv.Get(client) <= from {
			continue
		}
		list := ls.changes[client]
		i := sort.Search(len(list), func(i int) bool {
			return list[i].End() > from
		})
		for ; i < len(list); i++ {
			changes = append(changes, list[i].Slice(from))
		}
	}
	ExportedChanges.Add(float64(len(changes)))
	ls.log.Debug("export", "remote", remote.String(), "changes", len(changes))
	return changes
}

// Changes lists copies of every sealed change, by client then counter.
func (ls *LogStore) Changes() (changes []Change) {
	ls.lock.RLock()
	defer ls.lock.RUnlock()
	for _, client := range ls.vv.Clients() {
		for _, ch := range ls.changes[client] {
			changes = append(changes, ch.Clone())
		}
	}
	return
}
