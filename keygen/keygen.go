// Package keygen produces identifiers for insert statements whose keys
// are assigned on the client before the row is written.
package keygen

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator produces one new identifier per call. Implementations must be
// safe for concurrent use.
type Generator interface {
	Generate() (any, error)
	Type() string
}

// UUID generates random (v4) UUIDs.
type UUID struct{}

func (UUID) Generate() (any, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("keygen: generate uuid: %w", err)
	}
	return id, nil
}

func (UUID) Type() string { return "uuid" }

// ULID generates lexicographically sortable ULIDs with monotonic entropy,
// so IDs minted within the same millisecond still sort in mint order.
type ULID struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewULID() *ULID {
	return &ULID{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ULID) Generate() (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		return nil, fmt.Errorf("keygen: generate ulid: %w", err)
	}
	return id, nil
}

func (g *ULID) Type() string { return "ulid" }

// Snowflake generates 63-bit time-ordered integers laid out as
// 41 bits of milliseconds since the epoch, 10 bits of machine ID and
// 12 bits of per-millisecond sequence.
type Snowflake struct {
	mu        sync.Mutex
	machineID uint64
	sequence  uint64
	lastTime  uint64
	epoch     uint64
}

func NewSnowflake(machineID uint64) *Snowflake {
	epoch := uint64(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	return &Snowflake{
		machineID: machineID & 0x3FF,
		epoch:     epoch,
	}
}

func (g *Snowflake) Generate() (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := uint64(time.Now().UnixMilli())
	if now < g.lastTime {
		return nil, fmt.Errorf("keygen: clock moved backwards")
	}

	if now == g.lastTime {
		g.sequence = (g.sequence + 1) & 0xFFF
		if g.sequence == 0 {
			// sequence exhausted for this millisecond
			for now <= g.lastTime {
				now = uint64(time.Now().UnixMilli())
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTime = now

	id := ((now - g.epoch) << 22) | (g.machineID << 12) | g.sequence
	return int64(id), nil
}

func (g *Snowflake) Type() string { return "snowflake" }

const nanoAlphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NanoID generates short random string IDs from a fixed alphabet.
type NanoID struct {
	size     int
	alphabet string
}

func NewNanoID(size int, alphabet string) *NanoID {
	if size <= 0 {
		size = 21
	}
	if alphabet == "" {
		alphabet = nanoAlphabet
	}
	return &NanoID{size: size, alphabet: alphabet}
}

func (g *NanoID) Generate() (any, error) {
	raw := make([]byte, g.size)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("keygen: generate nanoid: %w", err)
	}

	id := make([]byte, g.size)
	for i := range raw {
		id[i] = g.alphabet[raw[i]%byte(len(g.alphabet))]
	}
	return string(id), nil
}

func (g *NanoID) Type() string { return "nanoid" }

// Registry maps generator names to implementations.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
}

// NewRegistry returns a registry preloaded with the built-in generators.
func NewRegistry() *Registry {
	r := &Registry{generators: make(map[string]Generator)}
	r.Register(UUID{})
	r.Register(NewULID())
	r.Register(NewSnowflake(1))
	r.Register(NewNanoID(21, ""))
	return r
}

func (r *Registry) Register(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[g.Type()] = g
}

func (r *Registry) Get(name string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[name]
	return g, ok
}

func (r *Registry) Generate(name string) (any, error) {
	g, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("keygen: unknown generator %q", name)
	}
	return g.Generate()
}

var defaultRegistry = NewRegistry()

// Register adds a generator to the package default registry.
func Register(g Generator) { defaultRegistry.Register(g) }

// Generate mints an ID with a named generator from the default registry.
func Generate(name string) (any, error) { return defaultRegistry.Generate(name) }
