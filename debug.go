package weave

import (
	"fmt"
	"io"

	"github.com/sanity-io/litter"
)

// DumpAll writes the containers, the version vector and the log.
func (w *Weave) DumpAll(writer io.Writer) {
	w.DumpContainers(writer)
	fmt.Fprintln(writer, "")
	w.DumpVV(writer)
	fmt.Fprintln(writer, "")
	w.DumpLog(writer)
}

func (w *Weave) DumpContainers(writer io.Writer) {
	for _, id := range w.store.Registry().IDs() {
		inst, ok := w.store.GetContainer(id)
		if !ok {
			continue
		}
		switch val := inst.Value().(type) {
		case string:
			fmt.Fprintf(writer, "%s\t%q\n", id, val)
		default:
			fmt.Fprintf(writer, "%s\t%v\n", id, val)
		}
	}
}

func (w *Weave) DumpVV(writer io.Writer) {
	fmt.Fprintln(writer, "vv", " -> ", w.store.VV().String())
}

func (w *Weave) DumpLog(writer io.Writer) {
	for _, ch := range w.store.Changes() {
		fmt.Fprintf(writer, "%s\t%d ops\tlamport %d\tdeps %v\n", ch.ID(), ch.Len(), ch.Lamport, ch.Deps)
	}
}

var inspectOptions = litter.Options{
	HidePrivateFields: false,
	Compact:           false,
	StripPackageNames: true,
}

// DebugInspect dumps the complete replica state, private fields
// included.
func (w *Weave) DebugInspect(writer io.Writer) {
	w.store.lock.RLock()
	defer w.store.lock.RUnlock()
	_, _ = io.WriteString(writer, inspectOptions.Sdump(w.store.vv, w.store.open))
	fmt.Fprintln(writer)
	for _, id := range w.store.registry.IDs() {
		inst, _ := w.store.registry.Get(id)
		_, _ = io.WriteString(writer, inspectOptions.Sdump(id.String(), inst.Value()))
		fmt.Fprintln(writer)
	}
}
