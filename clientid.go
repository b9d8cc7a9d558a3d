package weave

import (
	"github.com/cespare/xxhash"
	"github.com/drpcorg/weave/rdx"
	"github.com/google/uuid"
)

// NewClientID makes a random, practically unique client id.
// 0 is reserved.
func NewClientID() rdx.ClientID {
	for {
		id := uuid.Must(uuid.NewV7())
		if client := rdx.ClientID(xxhash.Sum64(id[:])); client != 0 {
			return client
		}
	}
}
