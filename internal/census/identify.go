package census

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dshills/census-mcp/pkg/manifold"
)

// MaxEqualityRounds caps the randomized equality search.
const MaxEqualityRounds = 100

// Outcome is the result class of an identification.
type Outcome int

const (
	// NonMember means no stored manifold shares the query's hash, so the
	// query is certainly not in the table.
	NonMember Outcome = iota
	// Inconclusive means candidates with the same hash exist but none could
	// be confirmed or ruled out.
	Inconclusive
	// Match means Identification.Manifold is the stored manifold.
	Match
)

func (o Outcome) String() string {
	switch o {
	case NonMember:
		return "non-member"
	case Inconclusive:
		return "inconclusive"
	case Match:
		return "match"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Identification is the answer to Identify. Manifold is set only for Match.
type Identification struct {
	Outcome  Outcome
	Manifold manifold.Manifold
}

// IdentifyOptions tunes Identify.
type IdentifyOptions struct {
	// ExtendsToLink requires an isometry taking meridians to meridians.
	ExtendsToLink bool
}

// Finder is the part of a Table the identifier searches.
type Finder interface {
	Find(ctx context.Context, where string, opts FindOptions, args ...any) ([]manifold.Manifold, error)
}

// Identifier matches manifolds against hash buckets of a table.
type Identifier struct {
	hash   manifold.Hasher
	rounds int
	logger *slog.Logger
}

// NewIdentifier returns an identifier bucketing by hash. Of the options only
// WithLogger applies.
func NewIdentifier(hash manifold.Hasher, opts ...Option) *Identifier {
	o := buildOptions(opts)
	if hash == nil {
		hash = o.hasher
	}
	return &Identifier{
		hash:   hash,
		rounds: MaxEqualityRounds,
		logger: o.logger,
	}
}

// Identify looks for a stored manifold isometric to query.
//
// Candidates are the rows whose hash equals the query's. Each is tested for
// isometry in id order and the first success wins; a failing test only
// skips that candidate. If none is confirmed and every cusp of the query is
// complete, the query is compared for equality with every candidate over up
// to MaxEqualityRounds rounds, re-randomizing its triangulation between
// rounds. The query itself is never modified.
//
// Errors are returned for hashing, storage and randomization failures; a
// failing isometry test is not an error.
func (id *Identifier) Identify(ctx context.Context, query manifold.Manifold, table Finder, opts IdentifyOptions) (Identification, error) {
	q := query.Copy()

	h, err := id.hash(q)
	if err != nil {
		return Identification{}, fmt.Errorf("failed to hash manifold: %w", err)
	}
	siblings, err := table.Find(ctx, "hash = ?", FindOptions{}, h)
	if err != nil {
		return Identification{}, err
	}
	if len(siblings) == 0 {
		id.logger.DebugContext(ctx, "identify finished", "query", q.Name(), "outcome", NonMember.String())
		return Identification{Outcome: NonMember}, nil
	}

	for _, sib := range siblings {
		ok, err := id.isometric(q, sib, opts.ExtendsToLink)
		if err != nil {
			id.logger.DebugContext(ctx, "isometry test failed",
				"query", q.Name(),
				"candidate", sib.Name(),
				"error", err,
			)
			continue
		}
		if ok {
			id.logger.DebugContext(ctx, "identify finished",
				"query", q.Name(), "outcome", Match.String(), "match", sib.Name())
			return Identification{Outcome: Match, Manifold: sib}, nil
		}
	}

	if !slices.Contains(q.CuspComplete(), false) {
		for round := 0; round < id.rounds; round++ {
			for _, sib := range siblings {
				if q.Equal(sib) {
					id.logger.DebugContext(ctx, "identify finished",
						"query", q.Name(), "outcome", Match.String(),
						"match", sib.Name(), "round", round)
					return Identification{Outcome: Match, Manifold: sib}, nil
				}
			}
			if err := q.Randomize(); err != nil {
				return Identification{}, fmt.Errorf("failed to randomize %s: %w", q.Name(), err)
			}
		}
	}

	id.logger.DebugContext(ctx, "identify finished",
		"query", q.Name(), "outcome", Inconclusive.String(), "candidates", len(siblings))
	return Identification{Outcome: Inconclusive}, nil
}

func (id *Identifier) isometric(q, candidate manifold.Manifold, extendsToLink bool) (bool, error) {
	if !extendsToLink {
		return q.IsIsometricTo(candidate)
	}
	isoms, err := q.Isometries(candidate)
	if err != nil {
		return false, err
	}
	for _, iso := range isoms {
		if iso.ExtendsToLink() {
			return true, nil
		}
	}
	return false, nil
}
