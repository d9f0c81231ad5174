package loginserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/authstate/internal/rate"
	"github.com/MrEthical07/authstate/jwt"
	"github.com/MrEthical07/authstate/logging"
	"github.com/MrEthical07/authstate/password"
	"github.com/redis/go-redis/v9"
)

// LoginPath is the route the Server handles.
const LoginPath = "/v1/auth/login"

const (
	msgInvalidCredentials = "invalid email or password"
	msgTooManyAttempts    = "too many login attempts"
)

// ErrDuplicateUser is returned by AddUser for an email already registered.
var ErrDuplicateUser = errors.New("user already exists")

// Config configures a Server.
type Config struct {
	Tokens *jwt.Manager
	// Hash defaults to password.DefaultConfig when zero.
	Hash password.Config
	// Logger receives throttle and rehash failures. Nil discards them.
	Logger *logging.Logger
	// Throttle enables failed-attempt limiting when Redis is set.
	Throttle ThrottleConfig
}

// ThrottleConfig limits failed logins per email and optionally per client
// address in a fixed Redis window.
type ThrottleConfig struct {
	Redis       redis.UniversalClient
	MaxAttempts int
	Window      time.Duration
	PerIP       bool
}

type user struct {
	id    string
	email string
	hash  string
}

// Server is an in-memory login endpoint. It is safe for concurrent use.
type Server struct {
	tokens  *jwt.Manager
	hasher  *password.Argon2
	limiter *rate.Limiter
	logger  *logging.Logger

	mu    sync.RWMutex
	users map[string]user
}

// New returns a Server issuing tokens with cfg.Tokens.
func New(cfg Config) (*Server, error) {
	if cfg.Tokens == nil {
		return nil, errors.New("loginserver: token manager is required")
	}
	if cfg.Hash == (password.Config{}) {
		cfg.Hash = password.DefaultConfig()
	}
	hasher, err := password.NewArgon2(cfg.Hash)
	if err != nil {
		return nil, err
	}
	s := &Server{
		tokens: cfg.Tokens,
		hasher: hasher,
		logger: cfg.Logger,
		users:  make(map[string]user),
	}
	if cfg.Throttle.Redis != nil {
		s.limiter = rate.New(cfg.Throttle.Redis, rate.Config{
			Prefix:      "authstate:login",
			MaxAttempts: cfg.Throttle.MaxAttempts,
			Window:      cfg.Throttle.Window,
			PerIP:       cfg.Throttle.PerIP,
		})
	}
	return s, nil
}

// AddUser registers a user. Emails are matched case-insensitively.
func (s *Server) AddUser(userID, email, plain string) error {
	key := normalizeEmail(email)
	if userID == "" || key == "" {
		return errors.New("loginserver: user id and email are required")
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[key]; ok {
		return ErrDuplicateUser
	}
	s.users[key] = user{id: userID, email: strings.TrimSpace(email), hash: hash}
	return nil
}

// Handler serves POST LoginPath.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+LoginPath, s.handleLogin)
	return mux
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Token  struct {
		AccessToken string `json:"access_token"`
	} `json:"token"`
}

type envelope struct {
	Data       *loginData `json:"data,omitempty"`
	Message    string     `json:"message,omitempty"`
	Detail     string     `json:"detail,omitempty"`
	StatusCode int        `json:"status_code"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Detail: "invalid request body"})
		return
	}

	ctx := r.Context()
	ip := clientIP(r)
	if s.limiter != nil {
		if err := s.limiter.Check(ctx, req.Email, ip); err != nil {
			s.writeThrottleError(w, err)
			return
		}
	}

	s.mu.RLock()
	u, ok := s.users[normalizeEmail(req.Email)]
	s.mu.RUnlock()
	if !ok {
		s.rejectCredentials(ctx, w, req.Email, ip)
		return
	}

	match, err := s.hasher.Verify(req.Password, u.hash)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, envelope{Message: "internal error"})
		return
	}
	if !match {
		s.rejectCredentials(ctx, w, req.Email, ip)
		return
	}
	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, req.Email); err != nil {
			s.warn("login: attempt counter reset failed for %s: %v", u.email, err)
		}
	}
	s.upgradeHash(u, req.Password)

	token, err := s.tokens.Issue(u.id, u.email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, envelope{Message: "internal error"})
		return
	}

	data := &loginData{UserID: u.id, Email: u.email}
	data.Token.AccessToken = token
	writeJSON(w, http.StatusOK, envelope{Data: data, Message: "login successful"})
}

func (s *Server) rejectCredentials(ctx context.Context, w http.ResponseWriter, email, ip string) {
	if s.limiter != nil {
		if err := s.limiter.RecordFailure(ctx, email, ip); err != nil {
			s.writeThrottleError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, envelope{Message: msgInvalidCredentials})
}

func (s *Server) writeThrottleError(w http.ResponseWriter, err error) {
	if errors.Is(err, rate.ErrRateLimited) {
		w.Header().Set("Retry-After", fmt.Sprint(int(s.limiter.Window().Seconds())))
		writeJSON(w, http.StatusTooManyRequests, envelope{Message: msgTooManyAttempts})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, envelope{Message: "login temporarily unavailable"})
}

// upgradeHash re-hashes a verified password stored with weaker parameters.
func (s *Server) upgradeHash(u user, plain string) {
	stale, err := s.hasher.NeedsUpgrade(u.hash)
	if err != nil || !stale {
		return
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		s.warn("login: rehash failed for %s: %v", u.email, err)
		return
	}

	key := normalizeEmail(u.email)
	s.mu.Lock()
	if cur, ok := s.users[key]; ok && cur.hash == u.hash {
		cur.hash = hash
		s.users[key] = cur
	}
	s.mu.Unlock()
}

func (s *Server) warn(format string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(format, args...)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	body.StatusCode = status
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
