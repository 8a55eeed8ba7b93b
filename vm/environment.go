package vm

// Environment is one lexical scope. Closures hold a pointer to the scope they
// were created in, so every closure sharing a scope sees the same bindings.
type Environment struct {
	vars   map[string]Value
	parent *Environment
}

// NewEnvironment creates a scope nested in parent (nil for the global scope).
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{vars: make(map[string]Value), parent: parent}
}

// Parent returns the enclosing scope.
func (e *Environment) Parent() *Environment { return e.parent }

// Lookup walks the chain outward and returns the first binding of name.
func (e *Environment) Lookup(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return Null, false
}

// Declare binds name in this scope, shadowing outer bindings.
func (e *Environment) Declare(name string, v Value) {
	e.vars[name] = v
}

// Assign updates the nearest existing binding of name. It never creates one.
func (e *Environment) Assign(name string, v Value) bool {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[name]; ok {
			env.vars[name] = v
			return true
		}
	}
	return false
}
