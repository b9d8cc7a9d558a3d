package testutils

import (
	"log/slog"
	"testing"

	"github.com/drpcorg/weave"
	"github.com/drpcorg/weave/containers"
	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/utils"
	"github.com/stretchr/testify/assert"
)

func TestSyncAll(t *testing.T) {
	var replicas []*weave.Weave
	for client := rdx.ClientID(1); client <= 4; client++ {
		w, err := weave.New(weave.Options{ClientID: client, Logger: utils.NewDefaultLogger(slog.LevelWarn)})
		assert.Nil(t, err)
		txt, err := w.GetText(containers.Root("doc"))
		assert.Nil(t, err)
		assert.Nil(t, txt.Insert(0, string(rune('a'+client-1))))
		replicas = append(replicas, w)
	}
	assert.Nil(t, SyncAll(replicas...))
	want, _ := replicas[0].GetText(containers.Root("doc"))
	assert.Equal(t, 4, want.Len())
	// equal stamps at the same origin: higher client first
	assert.Equal(t, "dcba", want.String())
	for _, w := range replicas[1:] {
		assert.Equal(t, replicas[0].VV(), w.VV())
		txt, _ := w.GetText(containers.Root("doc"))
		assert.Equal(t, want.String(), txt.String())
	}
}
