package dialect

// Dialect abstracts the SQL flavor differences the runtime cares about:
// positional placeholder style, identifier quoting, literal rendering for
// debug output, and the database id exposed to statements as _databaseId.
type Dialect interface {
	Name() string
	QuoteIdentifier(name string) string
	Placeholder(n int) string
	RenderValue(v any) string
}
