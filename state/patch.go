package state

// Opt is an optional patch value. The zero Opt leaves the field untouched.
type Opt[T any] struct {
	value T
	set   bool
}

// Set returns an Opt that overwrites the field with v.
func Set[T any](v T) Opt[T] {
	return Opt[T]{value: v, set: true}
}

// Get returns the value and whether it was set.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.set
}

// Patch is a merge-style partial update. Only set fields are applied.
type Patch struct {
	User            Opt[*User]
	Token           Opt[string]
	IsAuthenticated Opt[bool]
	IsLoading       Opt[bool]
	Error           Opt[string]
}

// Empty reports whether the patch sets no field.
func (p Patch) Empty() bool {
	return !p.User.set && !p.Token.set && !p.IsAuthenticated.set && !p.IsLoading.set && !p.Error.set
}

func (p Patch) apply(s State) State {
	if u, ok := p.User.Get(); ok {
		if u == nil {
			s.User = nil
		} else {
			cp := *u
			s.User = &cp
		}
	}
	if v, ok := p.Token.Get(); ok {
		s.Token = v
	}
	if v, ok := p.IsAuthenticated.Get(); ok {
		s.IsAuthenticated = v
	}
	if v, ok := p.IsLoading.Get(); ok {
		s.IsLoading = v
	}
	if v, ok := p.Error.Get(); ok {
		s.Error = v
	}
	return normalize(s)
}

func normalize(s State) State {
	s.IsAuthenticated = s.Token != ""
	return s
}
