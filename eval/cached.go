package eval

import "sync"

var exprCache sync.Map // map[string]*Expr

// Cached returns a compiled expression from a process-wide cache, for call
// sites that compile at render time rather than statement-build time.
func Cached(src string) (*Expr, error) {
	if e, ok := exprCache.Load(src); ok {
		return e.(*Expr), nil
	}
	e, err := Compile(src)
	if err != nil {
		return nil, err
	}
	actual, _ := exprCache.LoadOrStore(src, e)
	return actual.(*Expr), nil
}
