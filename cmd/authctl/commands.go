package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/MrEthical07/authstate"
	"github.com/MrEthical07/authstate/jwt"
	"github.com/MrEthical07/authstate/logging"
	"github.com/MrEthical07/authstate/state"
)

const usage = `usage: authctl <command> [flags]

commands:
  login    authenticate against the login endpoint and persist the token
  logout   remove the persisted token
  status   show the restored authentication state
  serve    run a local login endpoint
`

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func run(ctx context.Context, args []string, vars map[string]string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "login":
		err = cmdLogin(ctx, rest, vars, stdout, stderr)
	case "logout":
		err = cmdLogout(ctx, rest, vars, stdout, stderr)
	case "status":
		err = cmdStatus(ctx, rest, vars, stdout, stderr)
	case "serve":
		err = cmdServe(ctx, rest, vars, stdout, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "authctl: unknown command %q\n\n%s", cmd, usage)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		return exitUsage
	default:
		fmt.Fprintf(stderr, "authctl %s: %v\n", cmd, err)
		return exitError
	}
}

var (
	errUsage = errors.New("usage")
	timeNow  = time.Now
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("authctl "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %v\n", fs.Args())
		return errUsage
	}
	return nil
}

// openEngine builds and mounts an Engine from the environment. A memory
// backend is replaced by the credentials file so the session persists.
func openEngine(ctx context.Context, vars map[string]string, stderr io.Writer) (*authstate.Engine, error) {
	cfg, err := authstate.LoadConfigFromMap(vars)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Backend == authstate.StorageMemory {
		path, err := credentialsPath(vars)
		if err != nil {
			return nil, err
		}
		cfg.Storage.Backend = authstate.StorageFile
		cfg.Storage.FilePath = path
	}

	logger := logging.New(stderr, cfg.Log.Level, cfg.Log.Pretty, "authctl")
	b := authstate.New().WithConfig(cfg).WithLogger(logger)
	if cfg.Audit.Enabled {
		b = b.WithAuditSink(authstate.NewJSONWriterSink(stderr))
	}

	e, err := b.BuildContext(ctx)
	if err != nil {
		return nil, err
	}
	e.Mount(ctx)
	return e, nil
}

func credentialsPath(vars map[string]string) (string, error) {
	dir := vars["XDG_CONFIG_HOME"]
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return "", fmt.Errorf("locate config dir: %w", err)
		}
	}
	return filepath.Join(dir, "authstate", "credentials.toml"), nil
}

func cmdLogin(ctx context.Context, args []string, vars map[string]string, stdout, stderr io.Writer) error {
	fs := newFlagSet("login", stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (or AUTHCTL_PASSWORD)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *password == "" {
		*password = vars["AUTHCTL_PASSWORD"]
	}
	if *email == "" || *password == "" {
		fmt.Fprintln(stderr, "login requires -email and -password")
		return errUsage
	}

	e, err := openEngine(ctx, vars, stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	view, err := e.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	return writeStatus(stdout, view)
}

func cmdLogout(ctx context.Context, args []string, vars map[string]string, stdout, stderr io.Writer) error {
	if err := parseFlags(newFlagSet("logout", stderr), args); err != nil {
		return err
	}

	e, err := openEngine(ctx, vars, stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.Logout(ctx); err != nil {
		return err
	}
	return writeStatus(stdout, e.Auth())
}

func cmdStatus(ctx context.Context, args []string, vars map[string]string, stdout, stderr io.Writer) error {
	if err := parseFlags(newFlagSet("status", stderr), args); err != nil {
		return err
	}

	e, err := openEngine(ctx, vars, stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	return writeStatus(stdout, e.Auth())
}

type statusOutput struct {
	Authenticated bool          `json:"authenticated"`
	User          *state.User   `json:"user,omitempty"`
	Token         string        `json:"token,omitempty"`
	Identity      *jwt.Identity `json:"identity,omitempty"`
	Expired       bool          `json:"expired,omitempty"`
	Error         string        `json:"error,omitempty"`
}

func writeStatus(w io.Writer, view authstate.View) error {
	out := statusOutput{
		Authenticated: view.IsAuthenticated,
		User:          view.User,
		Token:         maskToken(view.Token),
		Error:         view.Error,
	}
	if view.Token != "" {
		if id, err := jwt.Inspect(view.Token); err == nil {
			out.Identity = &id
			out.Expired = id.Expired(timeNow())
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func maskToken(token string) string {
	const visible = 8
	if token == "" {
		return ""
	}
	if len(token) <= visible {
		return "********"
	}
	return token[:visible] + "..."
}
