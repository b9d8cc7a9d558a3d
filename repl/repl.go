package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/drpcorg/weave"
	"github.com/drpcorg/weave/persist"
	"github.com/ergochat/readline"
)

// REPL per se.
type REPL struct {
	Host    *weave.Weave
	archive *persist.Archive
	rl      *readline.Instance
	out     io.Writer
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("text",
		readline.PcItem("ins"),
		readline.PcItem("del"),
	),
	readline.PcItem("map",
		readline.PcItem("set"),
		readline.PcItem("del"),
		readline.PcItem("nest"),
	),
	readline.PcItem("show"),
	readline.PcItem("vv"),
	readline.PcItem("commit"),

	readline.PcItem("export"),
	readline.PcItem("import"),

	readline.PcItem("dump"),
	readline.PcItem("inspect"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func (repl *REPL) Open(history string) (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     history,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.out = os.Stdout
	repl.rl.CaptureExitSignal()
	return
}

func (repl *REPL) Close() (err error) {
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	if repl.Host != nil {
		err = repl.Host.Close()
	}
	if repl.archive != nil {
		err = errors.Join(err, repl.archive.Close())
	}
	return
}

// splitCommand cuts the first word off the line.
func splitCommand(line string) (cmd, rest string) {
	line = strings.TrimSpace(line)
	ws := strings.IndexAny(line, " \t\r\n")
	if ws < 0 {
		return line, ""
	}
	return line[:ws], strings.TrimSpace(line[ws:])
}

func (repl *REPL) REPL() (err error) {
	var line string
	line, err = repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return nil
	}
	if err != nil {
		return err
	}
	return repl.Execute(line)
}

// Execute runs one command line.
func (repl *REPL) Execute(line string) (err error) {
	cmd, arg := splitCommand(line)
	switch cmd {
	case "":
	case "help":
		err = repl.CommandHelp(arg)
	case "text":
		err = repl.CommandText(arg)
	case "map":
		err = repl.CommandMap(arg)
	case "show", "cat":
		err = repl.CommandShow(arg)
	case "vv":
		err = repl.CommandVV(arg)
	case "commit":
		err = repl.Host.Commit()
	case "export":
		err = repl.CommandExport(arg)
	case "import":
		err = repl.CommandImport(arg)
	case "dump":
		repl.Host.DumpAll(repl.out)
	case "inspect":
		repl.Host.DebugInspect(repl.out)
	case "exit", "quit":
		err = io.EOF
	default:
		_, _ = fmt.Fprintf(os.Stderr, "command unknown: %s\n", cmd)
	}
	return
}
