package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MrEthical07/authstate/state"
)

const maxLoginResponseBytes = 1 << 20

var (
	// ErrLoginRejected marks a non-2xx login response.
	ErrLoginRejected = errors.New("login failed")
	// ErrLoginMalformed marks a 2xx response without an access token.
	ErrLoginMalformed = errors.New("invalid response from server")
	// ErrLoginTransport marks a request that never produced a response.
	ErrLoginTransport = errors.New("login request failed")
)

// HTTPDoer is the subset of *http.Client the login flow needs.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Endpoint     string
	Client       HTTPDoer
	Apply        func(state.Patch) state.State
	PersistToken func(ctx context.Context, token string) error
}

// LoginRequest is the JSON body posted to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the login endpoint's response envelope.
type LoginResponse struct {
	Data struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
		Token  struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	} `json:"data"`
	Message    string `json:"message"`
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}

// LoginResult describes a finished login attempt. Err is nil on success.
type LoginResult struct {
	User       *state.User
	StatusCode int
	Err        error
	// PersistErr is set when the state was authenticated but the token could
	// not be written to storage.
	PersistErr error
}

// RunLogin posts credentials, then either authenticates the state and
// persists the token, or clears the state and records the error message.
func RunLogin(ctx context.Context, req LoginRequest, deps LoginDeps) LoginResult {
	deps.Apply(state.Patch{
		IsLoading: state.Set(true),
		Error:     state.Set(""),
	})

	resp, status, err := postLogin(ctx, req, deps)
	if err != nil {
		deps.Apply(state.Patch{
			User:            state.Set[*state.User](nil),
			Token:           state.Set(""),
			IsAuthenticated: state.Set(false),
			IsLoading:       state.Set(false),
			Error:           state.Set(errorMessage(err)),
		})
		return LoginResult{StatusCode: status, Err: err}
	}

	user := &state.User{UserID: resp.Data.UserID, Email: resp.Data.Email}
	token := resp.Data.Token.AccessToken
	deps.Apply(state.Patch{
		User:            state.Set(user),
		Token:           state.Set(token),
		IsAuthenticated: state.Set(true),
		IsLoading:       state.Set(false),
		Error:           state.Set(""),
	})

	res := LoginResult{User: user, StatusCode: status}
	if deps.PersistToken != nil {
		res.PersistErr = deps.PersistToken(ctx, token)
	}
	return res
}

func postLogin(ctx context.Context, req LoginRequest, deps LoginDeps) (*LoginResponse, int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrLoginTransport, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, deps.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrLoginTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := deps.Client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrLoginTransport, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxLoginResponseBytes))
	if err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("%w: %v", ErrLoginTransport, err)
	}

	var resp LoginResponse
	decodeErr := json.Unmarshal(raw, &resp)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		msg := resp.Detail
		if msg == "" {
			msg = resp.Message
		}
		if decodeErr != nil || msg == "" {
			return nil, httpResp.StatusCode, ErrLoginRejected
		}
		return nil, httpResp.StatusCode, &RejectedError{Message: msg}
	}

	if decodeErr != nil || resp.Data.Token.AccessToken == "" {
		return nil, httpResp.StatusCode, ErrLoginMalformed
	}
	return &resp, httpResp.StatusCode, nil
}

// RejectedError carries the server's message for a rejected login.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return e.Message }

func (e *RejectedError) Unwrap() error { return ErrLoginRejected }

func errorMessage(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	switch {
	case errors.Is(err, ErrLoginRejected):
		return ErrLoginRejected.Error()
	case errors.Is(err, ErrLoginMalformed):
		return ErrLoginMalformed.Error()
	default:
		return err.Error()
	}
}
