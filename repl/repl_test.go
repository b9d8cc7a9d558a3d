package main

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/drpcorg/weave"
	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/utils"
	"github.com/stretchr/testify/assert"
)

func newTestREPL(t *testing.T, client uint64) (*REPL, *bytes.Buffer) {
	host, err := weave.New(weave.Options{
		ClientID: rdx.ClientID(client),
		Logger:   utils.NewDefaultLogger(slog.LevelWarn),
	})
	assert.Nil(t, err)
	out := &bytes.Buffer{}
	return &REPL{Host: host, out: out}, out
}

func TestREPL_EditAndShow(t *testing.T) {
	repl, out := newTestREPL(t, 1)
	assert.Nil(t, repl.Execute(`text /doc ins 0 "hello world"`))
	assert.Contains(t, out.String(), `"hello world"`)
	assert.Nil(t, repl.Execute("text /doc del 5 6"))
	assert.Contains(t, out.String(), `"hello"`)

	out.Reset()
	assert.Nil(t, repl.Execute("map /meta set title \"notes\""))
	assert.Nil(t, repl.Execute("map /meta set n 3"))
	assert.Nil(t, repl.Execute("map /meta del n"))
	assert.Contains(t, out.String(), "title:\t\"notes\"")

	out.Reset()
	assert.Nil(t, repl.Execute("show /meta:Map"))
	assert.Contains(t, out.String(), "title:notes")

	assert.Equal(t, HelpText, repl.Execute("text /doc ins x y"))
	assert.Equal(t, HelpShow, repl.Execute("show nothing"))
	assert.Equal(t, io.EOF, repl.Execute("exit"))
}

func TestREPL_ExportImport(t *testing.T) {
	a, _ := newTestREPL(t, 1)
	b, out := newTestREPL(t, 2)
	path := filepath.Join(t.TempDir(), "batch.tlv")

	assert.Nil(t, a.Execute(`text /doc ins 0 "shared"`))
	assert.Nil(t, a.Execute("export "+path))
	assert.Nil(t, b.Execute("import "+path))
	assert.Contains(t, out.String(), "applied 1, duplicates 0, pending 0")
	assert.Nil(t, b.Execute("import "+path))
	assert.Contains(t, out.String(), "applied 0, duplicates 1, pending 0")

	out.Reset()
	assert.Nil(t, b.Execute("text /doc"))
	assert.Equal(t, "\"shared\"\n", out.String())

	// nothing new past b's frontier
	assert.Nil(t, a.Execute("export "+path+" "+b.Host.VV().String()))
	assert.Nil(t, b.Execute("import "+path))
	assert.Contains(t, out.String(), "applied 0, duplicates 0, pending 0")
}
