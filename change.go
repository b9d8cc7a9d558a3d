package weave

import (
	"slices"

	"github.com/drpcorg/weave/containers"
	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/weave_errors"
	"github.com/pkg/errors"
)

// RemoteOp is one op of a Change, addressed to a container.
type RemoteOp struct {
	Container containers.ID
	Counter   rdx.Counter
	Content   containers.Content
}

// Change is a batch of consecutive ops by one client.
// Ops occupy counters [Counter, Counter+len(Ops)); op i is stamped
// with Lamport+i. Deps names the last op known from every other client
// at the time the change was opened.
type Change struct {
	Client    rdx.ClientID
	Counter   rdx.Counter
	Lamport   uint64
	Deps      []rdx.ID
	Timestamp int64
	Ops       []RemoteOp
}

func (ch Change) Len() int {
	return len(ch.Ops)
}

// End is the counter right after the last op.
func (ch Change) End() rdx.Counter {
	return ch.Counter + rdx.Counter(len(ch.Ops))
}

func (ch Change) ID() rdx.ID {
	return rdx.NewID(ch.Client, ch.Counter)
}

func (ch Change) LastID() rdx.ID {
	return rdx.NewID(ch.Client, ch.End()-1)
}

// OpID returns the ID and the Lamport stamp of the i-th op.
func (ch Change) OpID(i int) (rdx.ID, uint64) {
	return rdx.NewID(ch.Client, ch.Counter+rdx.Counter(i)), ch.Lamport + uint64(i)
}

// Slice drops the ops before counter from; the rest keeps its stamps.
// The suffix depends on the op right before it, which is implied by
// the own-client contiguity rule, so Deps stay as they are.
// The result shares no memory with ch.
func (ch Change) Slice(from rdx.Counter) Change {
	skip := rdx.Counter(0)
	if from > ch.Counter {
		skip = min(from-ch.Counter, rdx.Counter(len(ch.Ops)))
	}
	ret := ch
	ret.Counter += skip
	ret.Lamport += uint64(skip)
	ret.Deps = slices.Clone(ch.Deps)
	ret.Ops = cloneOps(ch.Ops[skip:])
	return ret
}

// Clone is a deep copy of the change.
func (ch Change) Clone() Change {
	return ch.Slice(ch.Counter)
}

func cloneOps(ops []RemoteOp) []RemoteOp {
	if ops == nil {
		return nil
	}
	ret := make([]RemoteOp, len(ops))
	for i, op := range ops {
		if del, ok := op.Content.(containers.TextDelete); ok {
			del.Spans = slices.Clone(del.Spans)
			op.Content = del
		}
		ret[i] = op
	}
	return ret
}

// Validate checks the change is well-formed on its own.
func (ch Change) Validate() error {
	if ch.Client == 0 {
		return errors.Wrap(weave_errors.ErrBadChange, "client 0 is reserved")
	}
	if len(ch.Ops) == 0 {
		return errors.Wrapf(weave_errors.ErrBadChange, "empty change %s", ch.ID())
	}
	if ch.End() < ch.Counter {
		return errors.Wrapf(weave_errors.ErrBadChange, "counter overflow at %s", ch.ID())
	}
	for i, op := range ch.Ops {
		if op.Counter != ch.Counter+rdx.Counter(i) {
			return errors.Wrapf(weave_errors.ErrBadChange, "%s: op %d has counter %d", ch.ID(), i, op.Counter)
		}
		if !op.Container.Valid() {
			return errors.Wrapf(weave_errors.ErrBadChange, "%s: bad container %s", ch.ID(), op.Container)
		}
		if op.Content == nil {
			return errors.Wrapf(weave_errors.ErrBadChange, "%s: op %d has no content", ch.ID(), i)
		}
	}
	for _, dep := range ch.Deps {
		if dep.Client == ch.Client {
			return errors.Wrapf(weave_errors.ErrBadChange, "%s depends on its own client", ch.ID())
		}
	}
	return nil
}
