package scan

import (
	"strings"
	"unicode"

	pluralizer "github.com/gertd/go-pluralize"
)

// pluralizeClient is a singleton so table-name derivation stays consistent.
var pluralizeClient = pluralizer.NewClient()

// Naming converts Go identifiers into database names.
type Naming interface {
	ColumnName(fieldName string) string
	TableName(structName string) string
}

type snakeNaming struct{}

func (snakeNaming) ColumnName(fieldName string) string { return SnakeCase(fieldName) }

func (snakeNaming) TableName(structName string) string {
	return pluralizeClient.Plural(SnakeCase(structName))
}

// DefaultNaming is snake_case columns with pluralized snake_case tables:
// UserID -> user_id, BlogPost -> blog_posts.
func DefaultNaming() Naming { return snakeNaming{} }

// SnakeCase converts any Go naming convention to snake_case, keeping
// acronym runs intact (HTTPServer -> http_server).
func SnakeCase(name string) string {
	if name == "" {
		return ""
	}

	switch name {
	case "ID":
		return "id"
	case "UUID":
		return "uuid"
	case "URL":
		return "url"
	case "API":
		return "api"
	case "JSON":
		return "json"
	case "SQL":
		return "sql"
	case "HTML":
		return "html"
	}

	// already snake_case
	if strings.Contains(name, "_") && !strings.ContainsFunc(name, unicode.IsUpper) {
		return strings.ToLower(name)
	}

	var out strings.Builder
	out.Grow(len(name) + 8)

	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			switch {
			case unicode.IsLower(prev) || unicode.IsDigit(prev):
				out.WriteByte('_')
			case unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				out.WriteByte('_')
			}
		}
		out.WriteRune(unicode.ToLower(r))
	}
	return out.String()
}
