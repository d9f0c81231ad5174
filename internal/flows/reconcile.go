package flows

import (
	"context"

	"github.com/MrEthical07/authstate/state"
)

// ReconcileDeps captures reconciliation dependencies.
//
// Update must run its callback atomically with respect to every other state
// writer (state.Container.Update does). The token is read inside that
// callback so a concurrent logout cannot land between the read and the write.
type ReconcileDeps struct {
	Update    func(func(state.State) state.Patch) state.State
	ReadToken func(ctx context.Context) (string, bool, error)
}

// ReconcileResult describes what one reconciliation pass did.
type ReconcileResult struct {
	Restored bool
	// Skipped is true when the state was already authenticated.
	Skipped bool
	// StorageErr is the read failure, if any. It is treated as "no token".
	StorageErr error
}

// RunReconcile restores authentication from the persisted token when the
// current state is not authenticated. It only ever moves the state from
// not-authenticated to authenticated.
func RunReconcile(ctx context.Context, deps ReconcileDeps) ReconcileResult {
	var res ReconcileResult
	deps.Update(func(current state.State) state.Patch {
		if current.IsAuthenticated {
			res.Skipped = true
			return state.Patch{}
		}

		token, ok, err := deps.ReadToken(ctx)
		if err != nil {
			res.StorageErr = err
			return state.Patch{}
		}
		if !ok || token == "" {
			return state.Patch{}
		}

		res.Restored = true
		return state.Patch{
			Token:           state.Set(token),
			IsAuthenticated: state.Set(true),
		}
	})
	return res
}
