// Package ids generates note identifiers that are unique across a workspace.
package ids

import (
	"math/big"

	"github.com/google/uuid"
)

// maxAttempts bounds the reject-and-retry loop. Reaching it means the source
// is broken, not unlucky.
const maxAttempts = 64

// Source yields candidate identifiers.
type Source func() string

// Random encodes 128 bits from a random UUID in base 36.
func Random() string {
	u := uuid.New()
	return new(big.Int).SetBytes(u[:]).Text(36)
}

// Generator hands out identifiers not present in a running set.
type Generator struct {
	src Source
}

// New returns a Generator backed by src, or by Random when src is nil.
func New(src Source) *Generator {
	if src == nil {
		src = Random
	}
	return &Generator{src: src}
}

// Next returns an identifier absent from existing and records it there, so
// later calls sharing the same set never repeat it. It panics if the source
// keeps colliding.
func (g *Generator) Next(existing map[string]struct{}) string {
	for range maxAttempts {
		id := g.src()
		if id == "" {
			continue
		}
		if _, taken := existing[id]; taken {
			continue
		}
		existing[id] = struct{}{}
		return id
	}
	panic("ids: identifier source keeps colliding")
}

// Sequence returns a Source cycling through fixed values. Tests use it to
// force collisions.
func Sequence(values ...string) Source {
	i := 0
	return func() string {
		v := values[i%len(values)]
		i++
		return v
	}
}
