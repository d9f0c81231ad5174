package flows

import (
	"context"

	"github.com/MrEthical07/authstate/state"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	RemoveToken func(ctx context.Context) error
	Snapshot    func() state.State
	Apply       func(state.Patch) state.State
}

// LogoutResult describes a finished logout. The state is always cleared;
// StorageErr reports a failed token removal.
type LogoutResult struct {
	WasAuthenticated bool
	StorageErr       error
}

// RunLogout removes the persisted token before clearing the state, so a
// reconciliation triggered by the cleared flag finds nothing to restore.
func RunLogout(ctx context.Context, deps LogoutDeps) LogoutResult {
	var res LogoutResult
	if deps.RemoveToken != nil {
		res.StorageErr = deps.RemoveToken(ctx)
	}

	res.WasAuthenticated = deps.Snapshot().IsAuthenticated

	deps.Apply(state.Patch{
		User:            state.Set[*state.User](nil),
		Token:           state.Set(""),
		IsAuthenticated: state.Set(false),
		Error:           state.Set(""),
	})
	return res
}
