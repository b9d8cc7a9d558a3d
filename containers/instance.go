package containers

import (
	"sync"

	"github.com/drpcorg/weave/weave_errors"
	"github.com/pkg/errors"
)

// Instance is a live container: one of the variants plus its own lock.
// Exactly one of mp and txt is set, according to id.Type.
type Instance struct {
	id   ID
	lock sync.Mutex
	mp   *Map
	txt  *Text
}

func NewInstance(id ID) (*Instance, error) {
	inst := &Instance{id: id}
	switch id.Type {
	case MapType:
		inst.mp = NewMap()
	case TextType:
		inst.txt = NewText()
	default:
		return nil, errors.Wrapf(weave_errors.ErrUnknownContainer, "container type %c", byte(id.Type))
	}
	return inst, nil
}

func (inst *Instance) ID() ID {
	return inst.id
}

func (inst *Instance) Type() Type {
	return inst.id.Type
}

func (inst *Instance) Apply(op Op) error {
	inst.lock.Lock()
	defer inst.lock.Unlock()
	switch inst.id.Type {
	case MapType:
		return inst.mp.Apply(op)
	case TextType:
		return inst.txt.Apply(op)
	}
	return weave_errors.ErrUnknownContainer
}

// Check tells whether Apply would succeed, without changing anything.
func (inst *Instance) Check(op Op, inFlight InFlight) error {
	inst.lock.Lock()
	defer inst.lock.Unlock()
	switch inst.id.Type {
	case MapType:
		return inst.mp.Check(op)
	case TextType:
		return inst.txt.Check(op, inFlight)
	}
	return weave_errors.ErrUnknownContainer
}

// Value is the materialized value: map[string]Value for maps,
// string for texts. Nested containers stay references.
func (inst *Instance) Value() any {
	inst.lock.Lock()
	defer inst.lock.Unlock()
	switch inst.id.Type {
	case MapType:
		return inst.mp.Value()
	case TextType:
		return inst.txt.String()
	}
	return nil
}

// WithMap runs f on the map state under the container lock.
func (inst *Instance) WithMap(f func(m *Map) error) error {
	if inst.id.Type != MapType {
		return errors.Wrapf(weave_errors.ErrContainerTypeConflict, "%s is not a map", inst.id)
	}
	inst.lock.Lock()
	defer inst.lock.Unlock()
	return f(inst.mp)
}

// WithText runs f on the text state under the container lock.
func (inst *Instance) WithText(f func(t *Text) error) error {
	if inst.id.Type != TextType {
		return errors.Wrapf(weave_errors.ErrContainerTypeConflict, "%s is not a text", inst.id)
	}
	inst.lock.Lock()
	defer inst.lock.Unlock()
	return f(inst.txt)
}
