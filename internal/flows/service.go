package flows

import "context"

// Deps groups flow dependency sets. The reconciler wires Reconcile; the root
// engine wires Login and Logout.
type Deps struct {
	Reconcile ReconcileDeps
	Login     LoginDeps
	Logout    LogoutDeps
}

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with the login and
// logout deps the engine needs.
func (s Service) Initialized() bool {
	return s.deps.Login.Apply != nil && s.deps.Logout.Apply != nil
}

func (s Service) Reconcile(ctx context.Context) ReconcileResult {
	return RunReconcile(ctx, s.deps.Reconcile)
}

func (s Service) Login(ctx context.Context, email, password string) LoginResult {
	return RunLogin(ctx, LoginRequest{Email: email, Password: password}, s.deps.Login)
}

func (s Service) Logout(ctx context.Context) LogoutResult {
	return RunLogout(ctx, s.deps.Logout)
}
