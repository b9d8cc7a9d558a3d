// Package weave keeps replicated state in sync without coordination:
// every replica appends its ops to a causal log, exchanges batches of
// them (changes) with others, and rebuilds Map and Text containers
// from whatever it has, converging once all replicas saw the same ops.
package weave

import (
	"fmt"
	"sync/atomic"

	"github.com/drpcorg/weave/containers"
	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/utils"
	"github.com/drpcorg/weave/weave_errors"
	"github.com/pkg/errors"
)

// Weave is one replica.
type Weave struct {
	opts   Options
	log    utils.Logger
	store  *LogStore
	closed atomic.Bool
}

// New opens a replica. With an Archive in the options, its history
// is replayed first.
func New(opts Options) (*Weave, error) {
	opts.SetDefaults()
	if opts.ClientID == 0 {
		opts.ClientID = NewClientID()
	}
	w := &Weave{
		opts:  opts,
		log:   opts.Logger,
		store: NewLogStore(opts.ClientID, opts),
	}
	for _, name := range opts.Containers {
		id, err := containers.ParseID(name)
		if err == nil && !id.IsRoot() {
			err = errors.Wrapf(weave_errors.ErrUnknownContainer, "%s is not a root container", name)
		}
		if err == nil {
			_, err = w.store.GetOrCreateContainer(id)
		}
		if err != nil {
			return nil, err
		}
	}
	if opts.Archive != nil {
		changes, err := opts.Archive.Load()
		if err != nil {
			return nil, errors.WithMessage(err, "archive load")
		}
		report, err := w.store.Import(changes)
		if err != nil {
			return nil, errors.WithMessage(err, "archive replay")
		}
		w.store.SetArchive(opts.Archive)
		w.log.Info("history restored", "changes", report.Applied, "vv", w.store.VV().String())
	}
	w.log.Info("replica open", "client", fmt.Sprintf("%x", uint64(w.ClientID())))
	return w, nil
}

func (w *Weave) ClientID() rdx.ClientID {
	return w.opts.ClientID
}

func (w *Weave) Store() *LogStore {
	return w.store
}

func (w *Weave) VV() rdx.VV {
	return w.store.VV()
}

func (w *Weave) GetMap(ref containers.Ref) (*Map, error) {
	inst, err := w.container(ref.WithType(containers.MapType))
	if err != nil {
		return nil, err
	}
	return &Map{w: w, inst: inst}, nil
}

func (w *Weave) GetText(ref containers.Ref) (*Text, error) {
	inst, err := w.container(ref.WithType(containers.TextType))
	if err != nil {
		return nil, err
	}
	return &Text{w: w, inst: inst}, nil
}

func (w *Weave) container(id containers.ID) (*containers.Instance, error) {
	if w.closed.Load() {
		return nil, weave_errors.ErrClosed
	}
	if !id.Valid() {
		return nil, errors.Wrapf(weave_errors.ErrUnknownContainer, "bad container id %s", id)
	}
	return w.store.GetOrCreateContainer(id)
}

func (w *Weave) GetContainer(id containers.ID) (*containers.Instance, bool) {
	return w.store.GetContainer(id)
}

// Export returns the changes the holder of remote has not seen.
func (w *Weave) Export(remote rdx.VV) []Change {
	return w.store.Export(remote)
}

func (w *Weave) Import(changes []Change) (ImportReport, error) {
	if w.closed.Load() {
		return ImportReport{}, weave_errors.ErrClosed
	}
	return w.store.Import(changes)
}

// Commit seals the local ops made so far into a change.
func (w *Weave) Commit() error {
	return w.store.Commit()
}

// Materialize returns the value of the container with nested
// containers resolved: maps become map[string]any, texts strings,
// scalars their Native form.
func (w *Weave) Materialize(id containers.ID) (any, error) {
	inst, ok := w.store.GetContainer(id)
	if !ok {
		return nil, errors.Wrapf(weave_errors.ErrUnknownContainer, "no container %s", id)
	}
	return w.materialize(inst, make(map[containers.Ref]bool)), nil
}

func (w *Weave) materialize(inst *containers.Instance, path map[containers.Ref]bool) any {
	val := inst.Value()
	entries, ok := val.(map[string]containers.Value)
	if !ok {
		return val
	}
	ref := inst.ID().Ref
	path[ref] = true
	defer delete(path, ref)
	ret := make(map[string]any, len(entries))
	for key, v := range entries {
		if !v.IsRef() {
			ret[key] = v.Native()
			continue
		}
		child, ok := w.store.GetContainer(v.Ref)
		if !ok || path[v.Ref.Ref] {
			ret[key] = v.Ref
			continue
		}
		ret[key] = w.materialize(child, path)
	}
	return ret
}

// Close seals the open change, so an archive gets it, and stops
// accepting edits.
func (w *Weave) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return weave_errors.ErrClosed
	}
	err := w.store.Commit()
	w.log.Info("replica closed", "client", fmt.Sprintf("%x", uint64(w.ClientID())), "vv", w.store.VV().String())
	return err
}
