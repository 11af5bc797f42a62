package keygen

import (
	"fmt"

	"github.com/Konsultn-Engineering/enmap/props"
	"github.com/Konsultn-Engineering/enmap/statement"
)

// Assigner writes a freshly generated key onto the statement parameter
// before the insert runs.
type Assigner struct {
	gen      Generator
	property string
	accessor props.Accessor
}

var _ statement.KeyGenerator = (*Assigner)(nil)

func NewAssigner(property string, g Generator) *Assigner {
	return &Assigner{gen: g, property: property, accessor: props.Default()}
}

func (a *Assigner) WithAccessor(acc props.Accessor) *Assigner {
	a.accessor = acc
	return a
}

// Assign mints a key and sets it on param at the configured property.
// When the target field cannot hold the generated type directly, values
// that print via fmt.Stringer are retried as strings, so uuid and ulid
// keys land in string columns without extra conversion plumbing.
func (a *Assigner) Assign(param any) error {
	v, err := a.gen.Generate()
	if err != nil {
		return err
	}
	if err := a.accessor.Set(param, a.property, v); err != nil {
		if s, ok := v.(fmt.Stringer); ok {
			if serr := a.accessor.Set(param, a.property, s.String()); serr == nil {
				return nil
			}
		}
		return fmt.Errorf("keygen: assign %q: %w", a.property, err)
	}
	return nil
}
