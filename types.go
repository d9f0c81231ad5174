package authstate

import "github.com/MrEthical07/authstate/state"

// View is the read-only authentication view handed to consumers.
//
// IsAuthenticated is derived from token presence, the same rule the state
// container enforces on every write.
type View struct {
	User            *state.User `json:"user,omitempty"`
	Token           string      `json:"token,omitempty"`
	IsAuthenticated bool        `json:"is_authenticated"`
	IsLoading       bool        `json:"is_loading"`
	Error           string      `json:"error,omitempty"`
}

// ViewOf derives the consumer view from a state snapshot.
func ViewOf(s state.State) View {
	return View{
		User:            s.User,
		Token:           s.Token,
		IsAuthenticated: s.Token != "",
		IsLoading:       s.IsLoading,
		Error:           s.Error,
	}
}
