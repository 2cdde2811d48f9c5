package vm

import (
	"fmt"
	"io"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fxamacker/cbor/v2"
)

// CacheReport is the hit/miss count of one cache.
type CacheReport struct {
	Hits   uint64 `toml:"hits" cbor:"hits"`
	Misses uint64 `toml:"misses" cbor:"misses"`
}

func (c CacheReport) HitRate() float64 {
	if c.Hits+c.Misses == 0 {
		return 0
	}
	return float64(c.Hits) / float64(c.Hits+c.Misses) * 100.0
}

// Stats is a snapshot of a runtime's counters.
type Stats struct {
	RuntimeID string    `toml:"runtime-id" cbor:"runtime_id"`
	TakenAt   time.Time `toml:"taken-at" cbor:"taken_at"`

	FamilyCache     CacheReport `toml:"family-cache" cbor:"family_cache"`
	LastAccessCache CacheReport `toml:"last-access-cache" cbor:"last_access_cache"`
	ContainerCache  CacheReport `toml:"container-cache" cbor:"container_cache"`

	Fields          int    `toml:"fields" cbor:"fields"`
	FamiliesCreated uint64 `toml:"families-created" cbor:"families_created"`
	ShapesCreated   uint64 `toml:"shapes-created" cbor:"shapes_created"`
	Propagations    uint64 `toml:"propagations" cbor:"propagations"`
	Specializations uint64 `toml:"specializations" cbor:"specializations"`
	Blacklisted     uint64 `toml:"blacklisted" cbor:"blacklisted"`
	Calls           uint64 `toml:"calls" cbor:"calls"`

	PropagationTime time.Duration `toml:"propagation-time" cbor:"propagation_time"`
	SpecializeTime  time.Duration `toml:"specialize-time" cbor:"specialize_time"`
}

func report(s *CacheStats) CacheReport {
	return CacheReport{Hits: s.Hits(), Misses: s.Misses()}
}

// Stats snapshots the runtime counters.
func (rt *Runtime) Stats() Stats {
	c := &rt.counters
	return Stats{
		RuntimeID:       rt.ID.String(),
		TakenAt:         time.Now().UTC().Truncate(time.Second),
		FamilyCache:     report(&c.familyCache),
		LastAccessCache: report(&c.lastAccess),
		ContainerCache:  report(&c.containers),
		Fields:          rt.fields.Size(),
		FamiliesCreated: c.familiesCreated.Load(),
		ShapesCreated:   c.shapesCreated.Load(),
		Propagations:    c.propagations.Load(),
		Specializations: c.specializations.Load(),
		Blacklisted:     c.blacklisted.Load(),
		Calls:           c.calls.Load(),
		PropagationTime: time.Duration(c.propagationNanos.Load()),
		SpecializeTime:  time.Duration(c.specializeNanos.Load()),
	}
}

// ResetStats zeroes the cache hit/miss counters.
func (rt *Runtime) ResetStats() {
	rt.counters.familyCache.reset()
	rt.counters.lastAccess.reset()
	rt.counters.containers.reset()
}

// WriteStats encodes s as "toml" or canonical "cbor".
func WriteStats(w io.Writer, s Stats, format string) error {
	switch format {
	case "toml", "":
		return toml.NewEncoder(w).Encode(s)
	case "cbor":
		em, err := cbor.CanonicalEncOptions().EncMode()
		if err != nil {
			return err
		}
		return em.NewEncoder(w).Encode(s)
	}
	return fmt.Errorf("unknown stats format %q", format)
}

// ReadStats decodes a report written by WriteStats.
func ReadStats(r io.Reader, format string) (Stats, error) {
	var s Stats
	switch format {
	case "toml", "":
		_, err := toml.NewDecoder(r).Decode(&s)
		return s, err
	case "cbor":
		err := cbor.NewDecoder(r).Decode(&s)
		return s, err
	}
	return s, fmt.Errorf("unknown stats format %q", format)
}
