package dynamic

import "strings"

// Trim buffers its child's output, strips configured leading and trailing
// tokens, and wraps whatever is left with a prefix and suffix. A child
// that renders nothing but whitespace contributes nothing, prefix and
// suffix included.
type Trim struct {
	child           Node
	prefix          string
	suffix          string
	prefixOverrides []string
	suffixOverrides []string
}

// TrimConfig names the trim options. Overrides match case-insensitively
// at the buffer's edges.
type TrimConfig struct {
	Prefix          string
	Suffix          string
	PrefixOverrides []string
	SuffixOverrides []string
}

func NewTrim(cfg TrimConfig, child Node) *Trim {
	return &Trim{
		child:           child,
		prefix:          cfg.Prefix,
		suffix:          cfg.Suffix,
		prefixOverrides: cfg.PrefixOverrides,
		suffixOverrides: cfg.SuffixOverrides,
	}
}

var whereOverrides = []string{"AND ", "OR ", "AND\n", "OR\n", "AND\t", "OR\t"}

// NewWhere wraps conditions with WHERE and strips a leading AND/OR left
// behind by unrendered branches.
func NewWhere(child Node) *Trim {
	return NewTrim(TrimConfig{Prefix: "WHERE", PrefixOverrides: whereOverrides}, child)
}

// NewSet wraps assignments with SET and strips dangling commas on either
// side.
func NewSet(child Node) *Trim {
	return NewTrim(TrimConfig{
		Prefix:          "SET",
		PrefixOverrides: []string{","},
		SuffixOverrides: []string{","},
	}, child)
}

func (n *Trim) Apply(s Scope) (bool, error) {
	buf := &captureScope{Scope: s}
	applied, err := n.child.Apply(buf)
	if err != nil {
		return false, err
	}
	n.flush(buf, s)
	return applied, nil
}

func (n *Trim) flush(buf *captureScope, s Scope) {
	sql := strings.TrimSpace(strings.Join(buf.parts, " "))
	if sql == "" {
		return
	}
	upper := strings.ToUpper(sql)
	for _, o := range n.prefixOverrides {
		if strings.HasPrefix(upper, strings.ToUpper(o)) {
			sql = strings.TrimSpace(sql[len(o):])
			break
		}
	}
	upper = strings.ToUpper(sql)
	for _, o := range n.suffixOverrides {
		if strings.HasSuffix(upper, strings.ToUpper(o)) {
			sql = strings.TrimSpace(sql[:len(sql)-len(o)])
			break
		}
	}
	if n.prefix != "" {
		sql = n.prefix + " " + sql
	}
	if n.suffix != "" {
		sql = sql + " " + n.suffix
	}
	s.AppendSQL(sql)
}

// captureScope buffers appended fragments so a wrapping node can rework
// them before forwarding. Bindings and sequence numbers flow through to
// the parent untouched.
type captureScope struct {
	Scope
	parts []string
}

func (c *captureScope) AppendSQL(fragment string) {
	c.parts = append(c.parts, fragment)
}
