package dynamic

import (
	"strconv"
	"strings"

	"github.com/Konsultn-Engineering/enmap/eval"
)

// itemPrefix namespaces per-iteration bindings so concurrent loops and
// repeated renders never collide.
const itemPrefix = "__frch_"

func suffixed(name string, seq int) string {
	return itemPrefix + name + "_" + strconv.Itoa(seq)
}

// Foreach renders its child once per element of an iterable expression.
// Each iteration binds the element (and its index or key) under both the
// bare name and a sequence-suffixed name, and rewrites placeholders that
// reference the bare name to the suffixed one, so the bound arguments
// survive after the loop scope ends.
//
// An absent source (nil) renders nothing at all. An empty collection
// contributes no iterations and no bindings, but still emits the
// configured open and close text. The separator lands between iterations
// lazily: only once an iteration writes something non-blank.
type Foreach struct {
	collection *eval.Expr
	child      Node
	item       string
	index      string
	open       string
	close      string
	separator  string
}

// ForeachConfig names the loop's options; Collection and Item are
// required.
type ForeachConfig struct {
	Collection string
	Item       string
	Index      string
	Open       string
	Close      string
	Separator  string
}

func NewForeach(cfg ForeachConfig, child Node) (*Foreach, error) {
	e, err := eval.Compile(cfg.Collection)
	if err != nil {
		return nil, err
	}
	return &Foreach{
		collection: e,
		child:      child,
		item:       cfg.Item,
		index:      cfg.Index,
		open:       cfg.Open,
		close:      cfg.Close,
		separator:  cfg.Separator,
	}, nil
}

func (n *Foreach) Apply(s Scope) (bool, error) {
	entries, ok, err := n.collection.Iterable(s.Bindings().Env())
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if n.open != "" {
		s.AppendSQL(n.open)
	}
	first := true
	for _, entry := range entries {
		var pc *prefixScope
		if first || n.separator == "" {
			pc = newPrefixScope(s, "")
		} else {
			pc = newPrefixScope(s, n.separator)
		}
		seq := pc.NextSeq()
		if n.index != "" {
			pc.Bind(n.index, entry.Key)
			pc.Bind(suffixed(n.index, seq), entry.Key)
		}
		if n.item != "" {
			pc.Bind(n.item, entry.Value)
			pc.Bind(suffixed(n.item, seq), entry.Value)
		}
		if _, err := n.child.Apply(newFilterScope(pc, n.item, n.index, seq)); err != nil {
			return false, err
		}
		if first {
			first = !pc.applied
		}
	}
	if n.close != "" {
		s.AppendSQL(n.close)
	}
	if n.item != "" {
		s.Bindings().Delete(n.item)
	}
	if n.index != "" {
		s.Bindings().Delete(n.index)
	}
	return true, nil
}

// prefixScope defers a prefix until the first non-blank write. Once
// applied it stays applied for the scope's lifetime; blank writes never
// trigger it.
type prefixScope struct {
	Scope
	prefix  string
	applied bool
}

func newPrefixScope(parent Scope, prefix string) *prefixScope {
	return &prefixScope{Scope: parent, prefix: prefix}
}

func (p *prefixScope) AppendSQL(fragment string) {
	if !p.applied && strings.TrimSpace(fragment) != "" {
		p.applied = true
		if p.prefix != "" {
			p.Scope.AppendSQL(p.prefix)
		}
	}
	p.Scope.AppendSQL(fragment)
}

// filterScope rewrites placeholders whose leading identifier is the loop
// item or index into the iteration's suffixed names before forwarding.
// Only the head of the placeholder is rewritten; trailing property paths
// ride along ("item.sku" becomes "__frch_item_3.sku").
type filterScope struct {
	Scope
	item  string
	index string
	seq   int
}

func newFilterScope(parent Scope, item, index string, seq int) *filterScope {
	return &filterScope{Scope: parent, item: item, index: index, seq: seq}
}

func (f *filterScope) AppendSQL(fragment string) {
	out := ParseTokens(fragment, "#{", "}", func(content string) string {
		rewritten, changed := rewriteLeading(content, f.item, suffixed(f.item, f.seq))
		if !changed && f.index != "" {
			rewritten, _ = rewriteLeading(content, f.index, suffixed(f.index, f.seq))
		}
		return "#{" + rewritten + "}"
	})
	f.Scope.AppendSQL(out)
}

// rewriteLeading replaces a leading reference to name (after optional
// whitespace) with repl, provided the reference is a whole identifier:
// followed by end of input, whitespace, '.', ',' or ':'.
func rewriteLeading(content, name, repl string) (string, bool) {
	if name == "" {
		return content, false
	}
	i := 0
	for i < len(content) && isSpace(content[i]) {
		i++
	}
	if !strings.HasPrefix(content[i:], name) {
		return content, false
	}
	j := i + len(name)
	if j < len(content) {
		c := content[j]
		if c != '.' && c != ',' && c != ':' && !isSpace(c) {
			return content, false
		}
	}
	return repl + content[j:], true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
