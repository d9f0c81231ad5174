// Command authctl manages the persisted session of an authstate client from
// the command line.
//
// Usage:
//
//	authctl login -email alice@example.com -password correct-horse
//	authctl status
//	authctl logout
//	authctl serve -addr 127.0.0.1:8080 -email alice@example.com -password correct-horse
//
// Configuration is read from AUTHSTATE_* environment variables. When the
// configured storage backend is memory, the token is kept in
// <user config dir>/authstate/credentials.toml so it survives between runs.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], environ(), os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}
