// v0
// internal/rank/index.go
package rank

import (
	"errors"
	"fmt"
)

// ErrDataIntegrity classifies every dataset defect detected while building an
// index. Use errors.Is to test for it.
var ErrDataIntegrity = errors.New("data integrity violation")

// Entity is a single ranked row of the precomputed leaderboard.
type Entity struct {
	Identifier string
	Rank       int
}

// DataIntegrityError reports the first row of a dataset that breaks the index
// invariants. Position is the zero-based offset inside the dataset.
type DataIntegrityError struct {
	Identifier string
	Position   int
	Reason     string
}

func (e *DataIntegrityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("dataset row %d (%q): %s", e.Position, e.Identifier, e.Reason)
}

// Is lets errors.Is match any DataIntegrityError against ErrDataIntegrity.
func (e *DataIntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}

// Result is the outcome of a lookup. The zero value is NotFound.
type Result struct {
	rank  int
	found bool
}

// Found builds a result for a ranked identifier.
func Found(rank int) Result {
	return Result{rank: rank, found: true}
}

// NotFound builds the result for an identifier absent from the dataset.
func NotFound() Result {
	return Result{}
}

// Rank returns the 1-based rank and whether the identifier was ranked at all.
func (r Result) Rank() (int, bool) {
	return r.rank, r.found
}

// IsFound reports whether the result carries a rank.
func (r Result) IsFound() bool {
	return r.found
}

func (r Result) String() string {
	if !r.found {
		return "not_found"
	}
	return fmt.Sprintf("found(#%d)", r.rank)
}

// Index maps identifiers to their rank. It is immutable once built and safe
// for concurrent readers without locking.
type Index struct {
	entities []Entity
	ranks    map[string]int
}

// Build indexes the dataset in a single pass. The dataset must already be in
// rank order: identifiers unique and non-empty, ranks >= 1 and strictly
// increasing. Any violation aborts the build and no index is returned.
func Build(entities []Entity) (*Index, error) {
	ranks := make(map[string]int, len(entities))
	prev := 0
	for i, entity := range entities {
		if entity.Identifier == "" {
			return nil, &DataIntegrityError{Position: i, Reason: "empty identifier"}
		}
		if _, dup := ranks[entity.Identifier]; dup {
			return nil, &DataIntegrityError{Identifier: entity.Identifier, Position: i, Reason: "duplicate identifier"}
		}
		if entity.Rank < 1 {
			return nil, &DataIntegrityError{
				Identifier: entity.Identifier,
				Position:   i,
				Reason:     fmt.Sprintf("rank %d must be >= 1", entity.Rank),
			}
		}
		if entity.Rank <= prev {
			return nil, &DataIntegrityError{
				Identifier: entity.Identifier,
				Position:   i,
				Reason:     fmt.Sprintf("rank %d does not follow rank %d", entity.Rank, prev),
			}
		}
		ranks[entity.Identifier] = entity.Rank
		prev = entity.Rank
	}

	owned := make([]Entity, len(entities))
	copy(owned, entities)
	return &Index{entities: owned, ranks: ranks}, nil
}

// FromIdentifiers builds an index where each identifier is ranked by its
// position in the slice.
func FromIdentifiers(ids []string) (*Index, error) {
	entities := make([]Entity, len(ids))
	for i, id := range ids {
		entities[i] = Entity{Identifier: id, Rank: i + 1}
	}
	return Build(entities)
}

// Lookup performs a case-sensitive exact match on the identifier.
func (x *Index) Lookup(identifier string) Result {
	if x == nil {
		return NotFound()
	}
	if rank, ok := x.ranks[identifier]; ok {
		return Found(rank)
	}
	return NotFound()
}

// TopN returns the first min(n, Len()) entities in dataset order. The order is
// never corrected: an unsorted dataset yields an unsorted prefix.
func (x *Index) TopN(n int) []Entity {
	if x == nil || n <= 0 {
		return []Entity{}
	}
	if n > len(x.entities) {
		n = len(x.entities)
	}
	out := make([]Entity, n)
	copy(out, x.entities[:n])
	return out
}

// Len returns the number of indexed entities.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entities)
}
