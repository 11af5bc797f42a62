package dynamic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type order struct {
	ID     int
	Status string
	Lines  []orderLine
}

type orderLine struct {
	SKU string
	Qty int
}

func TestContextReservedBindings(t *testing.T) {
	param := order{ID: 1, Status: "open"}
	ctx := NewContext(param, "postgres", nil)

	v, ok := ctx.Bindings().Lookup(ParameterKey)
	require.True(t, ok)
	assert.Equal(t, param, v)

	v, ok = ctx.Bindings().Lookup(DatabaseIDKey)
	require.True(t, ok)
	assert.Equal(t, "postgres", v)
}

func TestContextSequenceOnlyIncreases(t *testing.T) {
	ctx := NewContext(nil, "postgres", nil)

	assert.Equal(t, 0, ctx.NextSeq())
	assert.Equal(t, 1, ctx.NextSeq())
	assert.Equal(t, 2, ctx.NextSeq())
}

func TestContextSQLJoinsFragments(t *testing.T) {
	ctx := NewContext(nil, "postgres", nil)
	ctx.AppendSQL("SELECT *")
	ctx.AppendSQL("FROM users")
	ctx.AppendSQL("WHERE id = #{id}")

	assert.Equal(t, "SELECT * FROM users WHERE id = #{id}", ctx.SQL())
}

func TestBindingsLookup(t *testing.T) {
	param := order{ID: 9, Status: "open", Lines: []orderLine{{SKU: "a-1", Qty: 2}}}
	b := NewBindings(param, nil)
	b.Put("limit", 10)
	b.Put("line", orderLine{SKU: "b-2", Qty: 1})

	tests := []struct {
		name   string
		path   string
		want   any
		wantOK bool
	}{
		{name: "Explicit", path: "limit", want: 10, wantOK: true},
		{name: "ParamProperty", path: "status", want: "open", wantOK: true},
		{name: "ParamPath", path: "lines[0].sku", want: "a-1", wantOK: true},
		{name: "ExplicitHeadWithPath", path: "line.sku", want: "b-2", wantOK: true},
		{name: "ExplicitWinsOverParam", path: "limit", want: 10, wantOK: true},
		{name: "Missing", path: "ghost", wantOK: false},
		{name: "MissingUnderExplicitHead", path: "line.ghost", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := b.Lookup(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestBindingsEnvOverlay(t *testing.T) {
	b := NewBindings(order{Status: "open"}, nil)
	b.Put("status", "overridden")
	b.Put("extra", 1)

	env := b.Env()
	assert.Equal(t, "overridden", env["status"])
	assert.Equal(t, "open", env["Status"])
	assert.Equal(t, 1, env["extra"])
}

func TestBindingsDelete(t *testing.T) {
	b := NewBindings(nil, nil)
	b.Put("x", 1)
	b.Delete("x")

	_, ok := b.Lookup("x")
	assert.False(t, ok)
}
