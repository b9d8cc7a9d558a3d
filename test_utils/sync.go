package testutils

import (
	"github.com/drpcorg/weave"
)

// SyncData brings a and b to the same state by exporting whatever one
// has and the other lacks, in both directions.
func SyncData(a, b *weave.Weave) error {
	if _, err := b.Import(a.Export(b.VV())); err != nil {
		return err
	}
	_, err := a.Import(b.Export(a.VV()))
	return err
}

// SyncAll runs SyncData over every pair, so all replicas converge.
func SyncAll(replicas ...*weave.Weave) error {
	for i := range replicas {
		for j := i + 1; j < len(replicas); j++ {
			if err := SyncData(replicas[i], replicas[j]); err != nil {
				return err
			}
		}
	}
	// the first ones missed what the later pairs exchanged
	for i := 1; i < len(replicas); i++ {
		if err := SyncData(replicas[i], replicas[0]); err != nil {
			return err
		}
	}
	for i := 1; i < len(replicas); i++ {
		if err := SyncData(replicas[0], replicas[i]); err != nil {
			return err
		}
	}
	return nil
}
