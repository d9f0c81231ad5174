package state

// User is the identity record returned by the login endpoint.
type User struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// State is the authentication state shared by every consumer of a Container.
//
// Empty Token and Error mean "absent".
type State struct {
	User            *User  `json:"user,omitempty"`
	Token           string `json:"token,omitempty"`
	IsAuthenticated bool   `json:"is_authenticated"`
	IsLoading       bool   `json:"is_loading"`
	Error           string `json:"error,omitempty"`
}

func (s State) clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

// Field names one State field for field-scoped subscriptions.
type Field uint8

const (
	FieldUser Field = iota + 1
	FieldToken
	FieldAuthenticated
	FieldLoading
	FieldError
)

func (f Field) String() string {
	switch f {
	case FieldUser:
		return "user"
	case FieldToken:
		return "token"
	case FieldAuthenticated:
		return "is_authenticated"
	case FieldLoading:
		return "is_loading"
	case FieldError:
		return "error"
	default:
		return "unknown"
	}
}

// Changed reports whether field f differs between prev and next.
func Changed(f Field, prev, next State) bool {
	switch f {
	case FieldUser:
		return !sameUser(prev.User, next.User)
	case FieldToken:
		return prev.Token != next.Token
	case FieldAuthenticated:
		return prev.IsAuthenticated != next.IsAuthenticated
	case FieldLoading:
		return prev.IsLoading != next.IsLoading
	case FieldError:
		return prev.Error != next.Error
	default:
		return false
	}
}

func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equal(a, b State) bool {
	return sameUser(a.User, b.User) &&
		a.Token == b.Token &&
		a.IsAuthenticated == b.IsAuthenticated &&
		a.IsLoading == b.IsLoading &&
		a.Error == b.Error
}
