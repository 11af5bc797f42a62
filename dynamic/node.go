package dynamic

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Konsultn-Engineering/enmap/eval"
)

// Node is one fragment of a statement tree. Nodes are immutable once
// built; all render state lives in the Scope. Apply reports whether the
// node contributed, which is how choose picks its branch.
type Node interface {
	Apply(s Scope) (bool, error)
}

// StaticText is literal SQL text. #{} placeholders pass through opaquely
// and are resolved later, during parameter binding.
type StaticText string

func (n StaticText) Apply(s Scope) (bool, error) {
	s.AppendSQL(string(n))
	return true, nil
}

// Text is SQL text carrying ${} substitutions, expanded inline at render
// time by evaluating each token against the bindings. The expansion is
// raw text, meant for identifiers and fragments rather than values.
type Text string

func (n Text) Apply(s Scope) (bool, error) {
	var substErr error
	expanded := ParseTokens(string(n), "${", "}", func(content string) string {
		e, err := eval.Cached(strings.TrimSpace(content))
		if err != nil {
			if substErr == nil {
				substErr = err
			}
			return ""
		}
		v, err := e.Value(s.Bindings().Env())
		if err != nil {
			if substErr == nil {
				substErr = err
			}
			return ""
		}
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	})
	if substErr != nil {
		return false, substErr
	}
	s.AppendSQL(expanded)
	return true, nil
}

// NewText wraps raw SQL text in the cheapest node that can render it.
func NewText(text string) Node {
	if strings.Contains(text, "${") {
		return Text(text)
	}
	return StaticText(text)
}

// Nodes renders its children in order.
type Nodes []Node

func (n Nodes) Apply(s Scope) (bool, error) {
	for _, child := range n {
		if _, err := child.Apply(s); err != nil {
			return false, err
		}
	}
	return true, nil
}

// If renders its child when the test expression is truthy. A false test
// leaves the scope completely untouched.
type If struct {
	test  *eval.Expr
	child Node
}

func NewIf(test string, child Node) (*If, error) {
	e, err := eval.Compile(test)
	if err != nil {
		return nil, err
	}
	return &If{test: e, child: child}, nil
}

func (n *If) Apply(s Scope) (bool, error) {
	ok, err := n.test.Bool(s.Bindings().Env())
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if _, err := n.child.Apply(s); err != nil {
		return false, err
	}
	return true, nil
}

// Choose renders the first branch whose test passes, falling back to the
// otherwise child when none does.
type Choose struct {
	whens     []*If
	otherwise Node
}

// NewChoose builds a choose node. otherwise may be nil.
func NewChoose(whens []*If, otherwise Node) *Choose {
	return &Choose{whens: whens, otherwise: otherwise}
}

func (n *Choose) Apply(s Scope) (bool, error) {
	for _, w := range n.whens {
		applied, err := w.Apply(s)
		if err != nil {
			return false, err
		}
		if applied {
			return true, nil
		}
	}
	if n.otherwise != nil {
		if _, err := n.otherwise.Apply(s); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Bind evaluates an expression once and adds the result to the bindings,
// available to every later node and placeholder of the render.
type Bind struct {
	name string
	expr *eval.Expr
}

func NewBind(name, expression string) (*Bind, error) {
	e, err := eval.Compile(expression)
	if err != nil {
		return nil, err
	}
	return &Bind{name: name, expr: e}, nil
}

func (n *Bind) Apply(s Scope) (bool, error) {
	v, err := n.expr.Value(s.Bindings().Env())
	if err != nil {
		return false, err
	}
	s.Bind(n.name, v)
	return true, nil
}

// Fragments is a registry of reusable statement fragments addressed by id.
type Fragments struct {
	mu sync.RWMutex
	m  map[string]Node
}

func NewFragments() *Fragments {
	return &Fragments{m: make(map[string]Node)}
}

func (f *Fragments) Register(id string, node Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.m[id]; exists {
		return fmt.Errorf("dynamic: duplicate fragment %q", id)
	}
	f.m[id] = node
	return nil
}

func (f *Fragments) Lookup(id string) (Node, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	node, ok := f.m[id]
	return node, ok
}

// Include renders a reusable fragment by reference. Resolution happens at
// render time, so fragments may be registered in any order.
type Include struct {
	ref       string
	fragments *Fragments
}

func NewInclude(ref string, fragments *Fragments) *Include {
	return &Include{ref: ref, fragments: fragments}
}

func (n *Include) Apply(s Scope) (bool, error) {
	frag, ok := n.fragments.Lookup(n.ref)
	if !ok {
		return false, fmt.Errorf("dynamic: unknown fragment %q", n.ref)
	}
	return frag.Apply(s)
}
