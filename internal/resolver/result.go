package resolver

import "fmt"

// Unresolved records why a lookup produced no data.
type Unresolved struct {
	Source string
	Err    error
}

func (u *Unresolved) Error() string { return fmt.Sprintf("%s: %v", u.Source, u.Err) }

func (u *Unresolved) Unwrap() error { return u.Err }

// Result is the outcome of one upstream lookup. A failed lookup carries an
// Unresolved instead of a value and is read through Coalesce, so callers never
// branch on errors at the join point.
type Result[T any] struct {
	value      T
	unresolved *Unresolved
}

func Resolved[T any](v T) Result[T] { return Result[T]{value: v} }

func Failed[T any](source string, err error) Result[T] {
	return Result[T]{unresolved: &Unresolved{Source: source, Err: err}}
}

func (r Result[T]) OK() bool { return r.unresolved == nil }

// Unresolved returns nil when the lookup succeeded.
func (r Result[T]) Unresolved() *Unresolved { return r.unresolved }

// Coalesce returns the value, or def when the lookup failed.
func (r Result[T]) Coalesce(def T) T {
	if r.unresolved != nil {
		return def
	}
	return r.value
}
