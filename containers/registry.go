package containers

import (
	"slices"

	"github.com/drpcorg/weave/weave_errors"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry maps container refs to live instances. Containers refer to
// each other by ID only; the registry resolves them.
type Registry struct {
	instances *xsync.MapOf[Ref, *Instance]
}

func NewRegistry() *Registry {
	return &Registry{instances: xsync.NewMapOf[Ref, *Instance]()}
}

// Get returns nil, nil for a container that does not exist yet.
func (r *Registry) Get(id ID) (*Instance, error) {
	inst, ok := r.instances.Load(id.Ref)
	if !ok {
		return nil, nil
	}
	if inst.Type() != id.Type {
		return nil, errors.Wrapf(weave_errors.ErrContainerTypeConflict,
			"%s requested, %s exists", id, inst.ID())
	}
	return inst, nil
}

func (r *Registry) Lookup(ref Ref) (*Instance, bool) {
	return r.instances.Load(ref)
}

// GetOrCreate returns the instance, creating it on first use.
func (r *Registry) GetOrCreate(id ID) (inst *Instance, created bool, err error) {
	if !id.Valid() {
		return nil, false, errors.Wrapf(weave_errors.ErrUnknownContainer, "bad container id %s", id)
	}
	if inst, err = r.Get(id); inst != nil || err != nil {
		return
	}
	inst, loaded := r.instances.LoadOrCompute(id.Ref, func() *Instance {
		fresh, _ := NewInstance(id)
		return fresh
	})
	if loaded && inst.Type() != id.Type {
		return nil, false, errors.Wrapf(weave_errors.ErrContainerTypeConflict,
			"%s requested, %s exists", id, inst.ID())
	}
	return inst, !loaded, nil
}

func (r *Registry) Len() int {
	return r.instances.Size()
}

// IDs lists the registered containers, roots first, each group sorted.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, r.instances.Size())
	r.instances.Range(func(_ Ref, inst *Instance) bool {
		ids = append(ids, inst.ID())
		return true
	})
	slices.SortFunc(ids, func(a, b ID) int {
		switch {
		case a.IsRoot() != b.IsRoot():
			if a.IsRoot() {
				return -1
			}
			return 1
		case a.IsRoot():
			if a.Name < b.Name {
				return -1
			} else if a.Name > b.Name {
				return 1
			}
			return 0
		}
		return a.Origin.Compare(b.Origin)
	})
	return ids
}
