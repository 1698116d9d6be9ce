// Package census provides read-only access to catalogs of hyperbolic
// 3-manifolds stored in SQLite.
//
// # Tables
//
// A Table is a filtered view of one catalog relation. Rows are addressed by
// 0-based ordinal (row i is stored with id i+1), by name, by ordinal range or
// by volume range:
//
//	t, err := census.OpenTable(ctx, src, census.Filter{Betti: &two})
//	m, err := t.At(ctx, 0)
//	ms, err := t.Slice(ctx, census.Range{Start: census.Volume(2.0), Stop: census.Volume(2.1)})
//
// Every materialized manifold is built through a manifold.Factory from the
// row's triangulation blob, then finalized according to the relation's Kind.
//
// # Identification
//
// Identify answers whether a manifold occurs in a table. Candidates are the
// rows sharing the query's hash. The answer is Match, NonMember (no
// candidates, so certainly absent) or Inconclusive.
//
// # Registry
//
// A Registry opens the standard censuses once per process. Catalogs that
// are missing leave their censuses unavailable; the rest keep working.
package census
