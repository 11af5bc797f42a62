package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	keySeed       = 17
	keyMultiplier = 37
	partSeparator = '\x1f'
)

// Key identifies one cacheable execution: statement id, row bounds, SQL
// text and argument values, folded in order. Keys are comparable and serve
// directly as map keys. Two keys are equal only when they were built from
// equal parts in the same order.
type Key struct {
	hash     uint64
	checksum uint64
	count    int
	parts    string
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d:%s", k.hash, k.checksum,
		strings.ReplaceAll(k.parts, string(rune(partSeparator)), ":"))
}

// Equal is equivalent to ==; it exists for readability at call sites.
func (k Key) Equal(other Key) bool {
	return k == other
}

// KeyBuilder accumulates the parts of a Key. Each part contributes its
// position-weighted hash to a rolling value plus a checksum, and its
// canonical string to the part list that backs exact equality.
type KeyBuilder struct {
	hash     uint64
	checksum uint64
	count    int
	parts    strings.Builder
}

func NewKeyBuilder() *KeyBuilder {
	return &KeyBuilder{hash: keySeed}
}

func (b *KeyBuilder) Update(v any) *KeyBuilder {
	part := formatPart(v)
	h := xxhash.Sum64String(part)
	b.count++
	b.checksum += h
	h *= uint64(b.count)
	b.hash = keyMultiplier*b.hash + h
	if b.parts.Len() > 0 {
		b.parts.WriteByte(partSeparator)
	}
	b.parts.WriteString(part)
	return b
}

func (b *KeyBuilder) UpdateAll(vs ...any) *KeyBuilder {
	for _, v := range vs {
		b.Update(v)
	}
	return b
}

func (b *KeyBuilder) Key() Key {
	return Key{hash: b.hash, checksum: b.checksum, count: b.count, parts: b.parts.String()}
}

// formatPart renders one part canonically. The type name participates so
// int64(1) and "1" stay distinct.
func formatPart(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case []byte:
		return fmt.Sprintf("[]byte\x00%x", x)
	case time.Time:
		return "time.Time\x00" + x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%T\x00%v", v, v)
	}
}
