package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/enmap/cache"
)

type staticSource struct {
	sql string
}

func (s staticSource) BoundSQL(any) (*BoundSQL, error) {
	return &BoundSQL{SQL: s.sql}, nil
}

type noopKeyGen struct{}

func (noopKeyGen) Assign(any) error { return nil }

func buildStatement(t *testing.T, b *Builder) *Statement {
	t.Helper()
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

// --- kinds ---

func TestKindString(t *testing.T) {
	assert.Equal(t, "select", Select.String())
	assert.Equal(t, "insert", Insert.String())
	assert.Equal(t, "update", Update.String())
	assert.Equal(t, "delete", Delete.String())
	assert.Equal(t, "unknown", Unknown.String())
}

func TestKindIsSelect(t *testing.T) {
	assert.True(t, Select.IsSelect())
	assert.False(t, Insert.IsSelect())
	assert.False(t, Update.IsSelect())
	assert.False(t, Delete.IsSelect())
}

// --- builder defaults ---

func TestBuildSelectDefaults(t *testing.T) {
	s := buildStatement(t, NewBuilder("user.find", Select).Source(staticSource{"SELECT 1"}))

	assert.True(t, s.UseCache)
	assert.False(t, s.FlushCache)
	assert.Equal(t, TypePrepared, s.Type)
}

func TestBuildWriteDefaults(t *testing.T) {
	for _, kind := range []Kind{Insert, Update, Delete} {
		s := buildStatement(t, NewBuilder("user.write", kind).Source(staticSource{"..."}))

		assert.False(t, s.UseCache, kind)
		assert.True(t, s.FlushCache, kind)
	}
}

func TestBuildOverridesDefaults(t *testing.T) {
	s := buildStatement(t, NewBuilder("user.find", Select).
		Source(staticSource{"SELECT 1"}).
		UseCache(false).
		FlushCache(true))
	assert.False(t, s.UseCache)
	assert.True(t, s.FlushCache)

	s = buildStatement(t, NewBuilder("user.touch", Update).
		Source(staticSource{"UPDATE ..."}).
		UseCache(true).
		FlushCache(false))
	assert.True(t, s.UseCache)
	assert.False(t, s.FlushCache)
}

func TestBuildRequiredFields(t *testing.T) {
	_, err := NewBuilder("", Select).Source(staticSource{"SELECT 1"}).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id is required")

	_, err = NewBuilder("user.find", Unknown).Source(staticSource{"SELECT 1"}).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind is required")

	_, err = NewBuilder("user.find", Select).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source is required")
}

func TestBuildKeyGeneratorOnlyForInserts(t *testing.T) {
	_, err := NewBuilder("user.find", Select).
		Source(staticSource{"SELECT 1"}).
		KeyGenerator(noopKeyGen{}).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key generators only apply to inserts")

	s := buildStatement(t, NewBuilder("user.create", Insert).
		Source(staticSource{"INSERT ..."}).
		KeyGenerator(noopKeyGen{}))
	assert.NotNil(t, s.KeyGen)
}

func TestBuildDoesNotMutateBuilder(t *testing.T) {
	b := NewBuilder("user.find", Select).Source(staticSource{"SELECT 1"})

	first := buildStatement(t, b)
	second := buildStatement(t, b.UseCache(false))

	assert.True(t, first.UseCache)
	assert.False(t, second.UseCache)
}

// --- statement flags ---

func TestHasOutParams(t *testing.T) {
	base := func() *Builder {
		return NewBuilder("proc.call", Select).Source(staticSource{"CALL sync()"}).Callable()
	}

	s := buildStatement(t, base())
	assert.False(t, s.HasOutParams())
	assert.Equal(t, TypeCallable, s.Type)

	s = buildStatement(t, base().ParamModes(ModeIn, ModeIn))
	assert.False(t, s.HasOutParams())

	s = buildStatement(t, base().ParamModes(ModeIn, ModeOut))
	assert.True(t, s.HasOutParams())

	s = buildStatement(t, base().ParamModes(ModeInOut))
	assert.True(t, s.HasOutParams())
}

func TestCached(t *testing.T) {
	s := buildStatement(t, NewBuilder("user.find", Select).Source(staticSource{"SELECT 1"}))
	assert.False(t, s.Cached(), "no cache attached")

	s = buildStatement(t, NewBuilder("user.find", Select).
		Source(staticSource{"SELECT 1"}).
		Cache(cache.NewPerpetual("users")))
	assert.True(t, s.Cached())

	s = buildStatement(t, NewBuilder("user.find", Select).
		Source(staticSource{"SELECT 1"}).
		Cache(cache.NewPerpetual("users")).
		UseCache(false))
	assert.False(t, s.Cached(), "UseCache(false) wins over attached cache")
}

// --- registry ---

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	s := buildStatement(t, NewBuilder("user.find", Select).Source(staticSource{"SELECT 1"}))

	require.NoError(t, r.Register(s))

	got, ok := r.Lookup("user.find")
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = r.Lookup("user.ghost")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	s := buildStatement(t, NewBuilder("user.find", Select).Source(staticSource{"SELECT 1"}))

	require.NoError(t, r.Register(s))
	err := r.Register(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate id "user.find"`)
}

func TestRegistryIDs(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(buildStatement(t, NewBuilder("a", Select).Source(staticSource{"..."}))))
	require.NoError(t, r.Register(buildStatement(t, NewBuilder("b", Delete).Source(staticSource{"..."}))))

	assert.ElementsMatch(t, []string{"a", "b"}, r.IDs())
}

// --- row bounds ---

func TestRowBounds(t *testing.T) {
	assert.True(t, NoBounds.IsDefault())
	assert.False(t, NewRowBounds(5, 10).IsDefault())
	assert.False(t, NewRowBounds(5, NoLimit).IsDefault(), "offset alone disables the default")
	assert.False(t, NewRowBounds(0, 10).IsDefault(), "limit alone disables the default")
}
