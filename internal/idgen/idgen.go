// Package idgen produces identifiers for menu categories and items.
//
// Identifiers are canonical version-4 UUID strings. A Generator is a plain
// function so that tests and the document model can swap strategies freely.
package idgen

import (
	"regexp"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// V4 returns a Generator producing random version-4 UUIDs
// (xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx, y in 8..b).
func V4() Generator {
	return func() string {
		return uuid.New().String()
	}
}

// Unique wraps gen so that it never returns the same identifier twice.
// Issued identifiers are tracked in a Bloom filter sized for expected
// entries; a candidate the filter may have seen is thrown away and
// regenerated. False positives only cost an extra draw.
func Unique(gen Generator, expected uint) Generator {
	if expected == 0 {
		expected = 1024
	}
	var mu sync.Mutex
	seen := bloom.NewWithEstimates(expected, 0.0001)

	return func() string {
		mu.Lock()
		defer mu.Unlock()
		for {
			id := gen()
			if !seen.TestAndAddString(id) {
				return id
			}
		}
	}
}

// Default is used by New and by components built without an explicit generator.
var Default Generator = Unique(V4(), 1<<16)

// New produces an identifier using Default.
func New() string {
	return Default()
}

var v4Pattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// Valid reports whether s is a lower-case canonical version-4 UUID.
func Valid(s string) bool {
	return v4Pattern.MatchString(s)
}

// Sequence returns a deterministic Generator for tests: it cycles through
// ids in order and panics when exhausted.
func Sequence(ids ...string) Generator {
	var mu sync.Mutex
	next := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(ids) {
			panic("idgen: sequence exhausted")
		}
		id := ids[next]
		next++
		return id
	}
}
