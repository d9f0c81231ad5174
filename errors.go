package authstate

import (
	"errors"

	"github.com/MrEthical07/authstate/internal/flows"
	"github.com/MrEthical07/authstate/storage"
)

var (
	// ErrEngineNotReady is returned by operations on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrBuilderReused is returned when Build is called twice on one Builder.
	ErrBuilderReused = errors.New("builder already used")
	// ErrLoginFailed is returned when the login endpoint rejects the credentials.
	ErrLoginFailed = flows.ErrLoginRejected
	// ErrInvalidLoginResponse is returned for a 2xx response without an access token.
	ErrInvalidLoginResponse = flows.ErrLoginMalformed
	// ErrLoginUnavailable is returned when the login request could not be sent.
	ErrLoginUnavailable = flows.ErrLoginTransport
	// ErrStorageUnavailable wraps token storage failures.
	ErrStorageUnavailable = storage.ErrUnavailable
	// ErrUnknownStorageBackend is returned for an unsupported storage backend name.
	ErrUnknownStorageBackend = errors.New("unknown storage backend")
)
