package repokit

// Binder binds a domain repo to a Queryer, the pool or an open transaction
// The catalog import binds once per transaction, every other call binds to the pool
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a constructor to Binder
type BindFunc[T any] func(Queryer) T

// Bind calls f, a nil q is a wiring bug
func (f BindFunc[T]) Bind(q Queryer) T {
	if q == nil {
		panic("repokit: bind to nil Queryer")
	}
	return f(q)
}
