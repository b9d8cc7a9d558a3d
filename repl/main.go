package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/drpcorg/weave"
	"github.com/drpcorg/weave/persist"
	"github.com/drpcorg/weave/rdx"
	"github.com/joho/godotenv"
)

// loadOptions reads WEAVE_CONFIG (a TOML file), then lets the
// environment override the client id.
func loadOptions() (opts weave.Options, err error) {
	if path := os.Getenv("WEAVE_CONFIG"); path != "" {
		if opts, err = weave.LoadOptions(path); err != nil {
			return
		}
	}
	if cid := os.Getenv("WEAVE_CLIENT_ID"); cid != "" {
		var client uint64
		if client, err = strconv.ParseUint(cid, 16, 64); err != nil {
			return opts, fmt.Errorf("WEAVE_CLIENT_ID: %w", err)
		}
		opts.ClientID = rdx.ClientID(client)
	}
	if level := os.Getenv("WEAVE_LOG_LEVEL"); level != "" {
		opts.LogLevel = level
	}
	return
}

func open(repl *REPL) (err error) {
	opts, err := loadOptions()
	if err != nil {
		return
	}
	if dir := os.Getenv("WEAVE_DIR"); dir != "" {
		if repl.archive, err = persist.Open(dir, persist.Options{}); err != nil {
			return
		}
		opts.Archive = repl.archive
	}
	repl.Host, err = weave.New(opts)
	return
}

func main() {
	_ = godotenv.Load()

	repl := REPL{}
	if err := open(&repl); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
	err := repl.Open(".weave_cmd_log.txt")
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		_ = repl.Close()
		os.Exit(-1)
	}
	for err != io.EOF {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", err.Error())
		}
		err = repl.REPL()
	}
	if err = repl.Close(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
	}
}
