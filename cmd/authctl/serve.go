package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/MrEthical07/authstate/jwt"
	"github.com/MrEthical07/authstate/logging"
	"github.com/MrEthical07/authstate/loginserver"
)

// cmdServe runs a loginserver with one user until ctx is cancelled.
func cmdServe(ctx context.Context, args []string, vars map[string]string, stdout, stderr io.Writer) error {
	fs := newFlagSet("serve", stderr)
	addr := fs.String("addr", "127.0.0.1:8080", "listen address")
	userID := fs.String("user-id", "user-1", "id of the seeded user")
	email := fs.String("email", "", "email of the seeded user")
	password := fs.String("password", "", "password of the seeded user (or AUTHCTL_PASSWORD)")
	ttl := fs.Duration("ttl", time.Hour, "issued token lifetime")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *password == "" {
		*password = vars["AUTHCTL_PASSWORD"]
	}
	if *email == "" || *password == "" {
		fmt.Fprintln(stderr, "serve requires -email and -password")
		return errUsage
	}

	secret := []byte(vars["AUTHCTL_JWT_SECRET"])
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
	}
	tokens, err := jwt.NewManager(jwt.Config{TTL: *ttl, PrivateKey: secret, Issuer: "authctl"})
	if err != nil {
		return err
	}

	logger := logging.New(stderr, vars["AUTHSTATE_LOG_LEVEL"], false, "loginserver")
	srv, err := loginserver.New(loginserver.Config{Tokens: tokens, Logger: logger})
	if err != nil {
		return err
	}
	if err := srv.AddUser(*userID, *email, *password); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Handler:           logging.RequestLogger(logger, srv.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Fprintf(stdout, "login endpoint: http://%s%s\n", ln.Addr(), loginserver.LoginPath)

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
