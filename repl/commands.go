package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/drpcorg/weave"
	"github.com/drpcorg/weave/containers"
	"github.com/drpcorg/weave/rdx"
)

var HelpText = errors.New("text /ref | text /ref ins 3 \"string\" | text /ref del 3 2")
var HelpMap = errors.New("map /ref | map /ref set key value | map /ref del key | map /ref nest key Text")
var HelpShow = errors.New("show /ref:Map")
var HelpExport = errors.New("export file.tlv [client-end,...]")
var HelpImport = errors.New("import file.tlv")

func (repl *REPL) CommandHelp(arg string) error {
	for _, help := range []error{HelpText, HelpMap, HelpShow, HelpExport, HelpImport} {
		_, _ = fmt.Fprintln(repl.out, help.Error())
	}
	_, _ = fmt.Fprintln(repl.out, "vv | commit | dump | inspect | exit")
	return nil
}

// unquote accepts Go-quoted or bare strings.
func unquote(s string) string {
	if len(s) > 1 && s[0] == '"' {
		if unq, err := strconv.Unquote(s); err == nil {
			return unq
		}
	}
	return s
}

func (repl *REPL) CommandText(arg string) error {
	refs, arg := splitCommand(arg)
	ref, err := containers.ParseRef(refs)
	if err != nil {
		return HelpText
	}
	txt, err := repl.Host.GetText(ref)
	if err != nil {
		return err
	}
	op, arg := splitCommand(arg)
	switch op {
	case "":
	case "ins", "insert":
		poss, str := splitCommand(arg)
		pos, err := strconv.Atoi(poss)
		if err != nil {
			return HelpText
		}
		if err = txt.Insert(pos, unquote(str)); err != nil {
			return err
		}
	case "del", "delete":
		var pos, n int
		if _, err = fmt.Sscanf(arg, "%d %d", &pos, &n); err != nil {
			return HelpText
		}
		if err = txt.Delete(pos, n); err != nil {
			return err
		}
	default:
		return HelpText
	}
	_, _ = fmt.Fprintf(repl.out, "%q\n", txt.String())
	return nil
}

func (repl *REPL) CommandMap(arg string) error {
	refs, arg := splitCommand(arg)
	ref, err := containers.ParseRef(refs)
	if err != nil {
		return HelpMap
	}
	m, err := repl.Host.GetMap(ref)
	if err != nil {
		return err
	}
	op, arg := splitCommand(arg)
	key, arg := splitCommand(arg)
	switch op {
	case "":
	case "set":
		val, err := containers.ParseValue(arg)
		if err != nil || key == "" || arg == "" {
			return HelpMap
		}
		if err = m.Set(key, val); err != nil {
			return err
		}
	case "del", "delete":
		if key == "" {
			return HelpMap
		}
		if err = m.Delete(key); err != nil {
			return err
		}
	case "nest":
		t, err := containers.ParseType(arg)
		if err != nil || key == "" {
			return HelpMap
		}
		child, err := m.InsertContainer(key, t)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(repl.out, child.String())
		return nil
	default:
		return HelpMap
	}
	for _, key := range m.Keys() {
		val, _ := m.Get(key)
		_, _ = fmt.Fprintf(repl.out, "%s:\t%s\n", key, val.String())
	}
	return nil
}

func (repl *REPL) CommandShow(arg string) error {
	id, err := containers.ParseID(arg)
	if err != nil {
		return HelpShow
	}
	val, err := repl.Host.Materialize(id)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(repl.out, "%v\n", val)
	return nil
}

func (repl *REPL) CommandVV(arg string) error {
	_, _ = fmt.Fprintf(repl.out, "%x\t%s\n", uint64(repl.Host.ClientID()), repl.Host.VV().String())
	return nil
}

func (repl *REPL) CommandExport(arg string) error {
	path, vvs := splitCommand(arg)
	if path == "" {
		return HelpExport
	}
	remote := rdx.VVFromString(vvs)
	changes := repl.Host.Export(remote)
	if err := os.WriteFile(path, weave.EncodeChanges(changes), 0o644); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(repl.out, "%d changes exported\n", len(changes))
	return nil
}

func (repl *REPL) CommandImport(arg string) error {
	path := strings.TrimSpace(arg)
	if path == "" {
		return HelpImport
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	changes, err := weave.DecodeChanges(data)
	if err != nil {
		return err
	}
	report, err := repl.Host.Import(changes)
	_, _ = fmt.Fprintf(repl.out, "applied %d, duplicates %d, pending %d\n",
		report.Applied, report.Duplicates, report.Pending)
	return err
}
