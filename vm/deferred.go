package vm

import (
	"context"
	"sync"
)

// Deferred is the pending result of an async builtin. It is resolved or
// rejected exactly once, usually from another goroutine.
type Deferred struct {
	done chan struct{}
	once sync.Once
	val  Value
	err  error
}

// NewDeferred returns an unresolved Deferred.
func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Resolved returns a Deferred already holding v.
func Resolved(v Value) *Deferred {
	d := NewDeferred()
	d.Resolve(v)
	return d
}

// Resolve completes d with v. Later calls are ignored.
func (d *Deferred) Resolve(v Value) {
	d.once.Do(func() {
		d.val = v
		close(d.done)
	})
}

// Reject completes d with err. An *ExceptionValue is raised in the program.
func (d *Deferred) Reject(err error) {
	d.once.Do(func() {
		d.err = err
		close(d.done)
	})
}

// Done is closed once d completes.
func (d *Deferred) Done() <-chan struct{} { return d.done }

// Go runs fn on a new goroutine and settles d with its result.
func Go(fn func() (Value, error)) *Deferred {
	d := NewDeferred()
	go func() {
		v, err := fn()
		if err != nil {
			d.Reject(err)
			return
		}
		d.Resolve(v)
	}()
	return d
}

// await blocks the interpreter until d completes or ctx is cancelled. It is
// the only place the run loop waits on anything outside itself.
func (it *Interpreter) await(ctx context.Context, d *Deferred) (Value, error) {
	if d == nil {
		return Null, nil
	}
	select {
	case <-d.done:
		return d.val, d.err
	case <-ctx.Done():
		return Null, ctx.Err()
	}
}
